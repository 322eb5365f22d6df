package types

// DuplicateGroup is a set of top-level tags sharing the same name key.
type DuplicateGroup struct {
	// Name is the name as stored on the first tag of the group
	Name   string   `json:"name"`
	Key    string   `json:"key"`
	TagIDs []string `json:"tag_ids"`
	Count  int      `json:"count"`
}

// SemanticDuplicate is an unordered pair of distinct top-level tag names
// whose similarity is high but below 100.
type SemanticDuplicate struct {
	NameA      string   `json:"name_a"`
	NameB      string   `json:"name_b"`
	Similarity float64  `json:"similarity"`
	TagIDs     []string `json:"tag_ids"`
}

// SimilarChildPair is two children of the same parent with similar names.
type SimilarChildPair struct {
	A          Tag     `json:"a"`
	B          Tag     `json:"b"`
	Similarity float64 `json:"similarity"`
}

// SimilarChildGroup holds the best similar-child pairs found under one parent.
type SimilarChildGroup struct {
	ParentID   string             `json:"parent_id"`
	ParentName string             `json:"parent_name"`
	Pairs      []SimilarChildPair `json:"pairs"`
}

// OrphanedTag is a tag whose parent reference no longer resolves to a
// parent tag, or a child tag with no parent at all. It carries enough
// fields to adopt or delete it without another lookup.
type OrphanedTag struct {
	TagID      string     `json:"tag_id"`
	Name       string     `json:"name"`
	Confidence *float64   `json:"confidence,omitempty"`
	Source     Provenance `json:"source,omitempty"`
	DocumentID *string    `json:"document_id,omitempty"`

	// MissingParentID is the dangling reference, or "" when the parent
	// was cleared
	MissingParentID string `json:"missing_parent_id"`
}

// Cause describes why the tag is orphaned.
func (o OrphanedTag) Cause() string {
	if o.MissingParentID == "" {
		return "no parent"
	}
	return "missing parent " + o.MissingParentID
}
