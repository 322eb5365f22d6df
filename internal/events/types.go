package events

import (
	"fmt"
	"time"

	"github.com/steveyegge/taxon/internal/types"
)

// ActionType identifies the kind of taxonomy decision that was recorded.
type ActionType string

const (
	// ActionMergeParent records a parent or semantic duplicate merge
	ActionMergeParent ActionType = "merge_parent"
	// ActionMergeChild records a merge of sibling child tags
	ActionMergeChild ActionType = "merge_child"
	// ActionAdoptOrphan records an orphan being given a new parent
	ActionAdoptOrphan ActionType = "adopt_orphan"
	// ActionDeleteOrphan records a single orphan deletion
	ActionDeleteOrphan ActionType = "delete_orphan"
	// ActionBulkDeleteOrphans records several orphans deleted in one decision
	ActionBulkDeleteOrphans ActionType = "bulk_delete_orphans"
	// ActionRejectDuplicate records a duplicate case dismissed without changes
	ActionRejectDuplicate ActionType = "reject_duplicate"
)

// IsValid checks if the action type value is valid
func (a ActionType) IsValid() bool {
	switch a {
	case ActionMergeParent, ActionMergeChild, ActionAdoptOrphan,
		ActionDeleteOrphan, ActionBulkDeleteOrphans, ActionRejectDuplicate:
		return true
	}
	return false
}

// Decision outcomes
const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

// TagRef is the part of a tag that a decision record keeps.
type TagRef struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Kind     types.TagKind `json:"kind"`
	ParentID string        `json:"parent_id,omitempty"`
}

// RefOf copies the identifying fields of t.
func RefOf(t types.Tag) TagRef {
	return TagRef{ID: t.ID, Name: t.Name, Kind: t.Kind, ParentID: t.ParentRef()}
}

// RefsOf copies the identifying fields of every tag in tags.
func RefsOf(tags []types.Tag) []TagRef {
	refs := make([]TagRef, len(tags))
	for i, t := range tags {
		refs[i] = RefOf(t)
	}
	return refs
}

// DecisionEvent is one recorded admin decision about the taxonomy.
// Events are append-only and are consumed by the classifier training job.
type DecisionEvent struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Timestamp is when the decision was made
	Timestamp time.Time `json:"timestamp"`
	// Action is the kind of decision
	Action ActionType `json:"action"`
	// InputTags are the tags the admin was looking at
	InputTags []TagRef `json:"input_tags"`
	// UserDecision is DecisionAccepted or DecisionRejected
	UserDecision string `json:"user_decision"`
	// Reasons are the categorical reasons selected, if any
	Reasons []string `json:"reasons,omitempty"`
	// Rationale is free text entered by the admin
	Rationale string `json:"rationale,omitempty"`
	// SimilarityScore is the detector score that surfaced the case, if any
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	// TimeToDecisionMs is how long the case was open before the decision
	TimeToDecisionMs int64 `json:"time_to_decision_ms"`
	// Actor identifies who made the decision
	Actor string `json:"actor,omitempty"`
	// Data contains action-specific details (must be JSON-serializable)
	Data map[string]interface{} `json:"data,omitempty"`
}

// Validate checks if the event has valid field values
func (e *DecisionEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !e.Action.IsValid() {
		return fmt.Errorf("invalid action type: %s", e.Action)
	}
	if len(e.InputTags) == 0 {
		return fmt.Errorf("input_tags cannot be empty")
	}
	if e.UserDecision != DecisionAccepted && e.UserDecision != DecisionRejected {
		return fmt.Errorf("invalid user_decision: %s", e.UserDecision)
	}
	if e.TimeToDecisionMs < 0 {
		return fmt.Errorf("time_to_decision_ms cannot be negative (got %d)", e.TimeToDecisionMs)
	}
	if e.SimilarityScore != nil && (*e.SimilarityScore < 0 || *e.SimilarityScore > 100) {
		return fmt.Errorf("similarity_score must be in [0, 100] (got %.2f)", *e.SimilarityScore)
	}
	return nil
}

// MergeData contains structured data for merge_parent and merge_child events.
type MergeData struct {
	// TargetID is the surviving tag
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
	// SourceIDs are the tags deleted by the merge
	SourceIDs []string `json:"source_ids"`
	// NewParentID is the unifying parent of a child merge
	NewParentID string `json:"new_parent_id,omitempty"`
	// Migrated and Orphaned partition the children of the source parents
	Migrated []string `json:"migrated,omitempty"`
	Orphaned []string `json:"orphaned,omitempty"`
	// RulesUpserted counts merge rules written by the commit
	RulesUpserted int `json:"rules_upserted"`
}

// OrphanData contains structured data for orphan resolution events.
type OrphanData struct {
	// TagIDs are the orphans resolved by this decision
	TagIDs []string `json:"tag_ids"`
	// MissingParentIDs are the dangling references the orphans carried
	MissingParentIDs []string `json:"missing_parent_ids,omitempty"`
	// NewParentID is set for adoptions
	NewParentID string `json:"new_parent_id,omitempty"`
}

// DecisionFilter narrows ListDecisionEvents results.
type DecisionFilter struct {
	// Action limits results to one action type (empty means all)
	Action ActionType
	// Since excludes events older than this time (zero means no bound)
	Since time.Time
	// Limit caps the number of events returned, newest first (0 means no cap)
	Limit int
}
