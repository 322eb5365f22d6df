package types

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Tag is one node of the two-level category taxonomy.
// ParentID is a weak lookup key: nothing guarantees that it resolves.
type Tag struct {
	ID         string     `json:"id" yaml:"id" validate:"required"`
	Name       string     `json:"name" yaml:"name" validate:"required,max=200"`
	Kind       TagKind    `json:"kind" yaml:"kind" validate:"required,oneof=parent child"`
	Confidence *float64   `json:"confidence,omitempty" yaml:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Source     Provenance `json:"source,omitempty" yaml:"source,omitempty"`
	ParentID   *string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Synonyms   []string   `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	DocumentID *string    `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks if the tag has valid field values
func (t *Tag) Validate() error {
	if err := structValidator().Struct(t); err != nil {
		return fmt.Errorf("invalid tag %q: %w", t.ID, err)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("invalid tag %q: name is blank", t.ID)
	}
	if t.ParentID != nil && *t.ParentID == t.ID {
		return fmt.Errorf("invalid tag %q: tag cannot be its own parent", t.ID)
	}
	return nil
}

// IsTopLevel reports whether the tag is a parent tag.
func (t *Tag) IsTopLevel() bool {
	return t.Kind == KindParent
}

// HasParent reports whether the tag carries a non-empty parent reference.
func (t *Tag) HasParent() bool {
	return t.ParentID != nil && *t.ParentID != ""
}

// ParentRef returns the parent id or "" when none is set.
func (t *Tag) ParentRef() string {
	if t.ParentID == nil {
		return ""
	}
	return *t.ParentID
}

// Clone returns a deep copy so snapshots never share pointers with callers.
func (t Tag) Clone() Tag {
	c := t
	if t.Confidence != nil {
		v := *t.Confidence
		c.Confidence = &v
	}
	if t.ParentID != nil {
		v := *t.ParentID
		c.ParentID = &v
	}
	if t.DocumentID != nil {
		v := *t.DocumentID
		c.DocumentID = &v
	}
	if t.Synonyms != nil {
		c.Synonyms = append([]string(nil), t.Synonyms...)
	}
	return c
}

// TagKind is the level of a tag in the taxonomy
type TagKind string

const (
	KindParent TagKind = "parent"
	KindChild  TagKind = "child"
)

// IsValid checks if the kind value is valid
func (k TagKind) IsValid() bool {
	switch k {
	case KindParent, KindChild:
		return true
	}
	return false
}

// Provenance records who created a tag. Values other than the
// constants below are accepted and stored verbatim.
type Provenance string

const (
	SourceAI    Provenance = "ai"
	SourceAdmin Provenance = "admin"
)

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}
