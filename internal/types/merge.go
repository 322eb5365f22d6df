package types

import (
	"fmt"
	"strings"
	"time"
)

// Merge rule scopes
const (
	ScopeParent = "parent"
	ScopeChild  = "child"
)

// MergeRule is a learned source-name to canonical-name mapping read by the
// tag classifier. Rules are unique on (SourceName, Scope); repeated upserts
// bump MergeCount instead of adding rows.
type MergeRule struct {
	ID            string    `json:"id" yaml:"id,omitempty"`
	SourceName    string    `json:"source_name" yaml:"source_name"`
	CanonicalName string    `json:"canonical_name" yaml:"canonical_name"`
	Scope         string    `json:"scope" yaml:"scope"`
	MergeCount    int       `json:"merge_count" yaml:"merge_count,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at,omitempty"`
}

// Validate checks if the rule has valid field values
func (r *MergeRule) Validate() error {
	if strings.TrimSpace(r.SourceName) == "" {
		return fmt.Errorf("source_name is required")
	}
	if strings.TrimSpace(r.CanonicalName) == "" {
		return fmt.Errorf("canonical_name is required")
	}
	if r.Scope != ScopeParent && r.Scope != ScopeChild {
		return fmt.Errorf("invalid scope: %s", r.Scope)
	}
	return nil
}

// RuleKey identifies a rule for upsert purposes.
func (r *MergeRule) RuleKey() string {
	return r.Scope + "\x00" + r.SourceName
}

// MergePlan is the ordered set of mutations produced by committing a
// conflict case. Steps are applied in field order: reparent, clear parent,
// delete, upsert rules.
type MergePlan struct {
	TargetID   string   `json:"target_id"`
	TargetName string   `json:"target_name"`
	SourceIDs  []string `json:"source_ids"`

	// Reparent moves each listed tag under NewParentID.
	Reparent    []string `json:"reparent,omitempty"`
	NewParentID string   `json:"new_parent_id,omitempty"`

	// ClearParent lists tags whose parent reference is cleared.
	ClearParent []string `json:"clear_parent,omitempty"`

	Delete []string    `json:"delete"`
	Rules  []MergeRule `json:"rules"`
}

// Validate checks the plan is internally consistent
func (p *MergePlan) Validate() error {
	if p.TargetID == "" {
		return fmt.Errorf("target_id is required")
	}
	if len(p.Delete) == 0 {
		return fmt.Errorf("plan deletes nothing")
	}
	if len(p.Reparent) > 0 && p.NewParentID == "" {
		return fmt.Errorf("new_parent_id is required when reparenting")
	}
	for _, id := range p.Delete {
		if id == p.TargetID {
			return fmt.Errorf("plan deletes its own target %s", id)
		}
	}
	for i := range p.Rules {
		if err := p.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}
