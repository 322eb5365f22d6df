package deduplication

import (
	"fmt"
	"time"

	"github.com/steveyegge/taxon/internal/similarity"
	"github.com/steveyegge/taxon/internal/types"
)

// Input is one immutable snapshot of the taxonomy handed to the engine.
type Input struct {
	// Tags is the full tag set, in the order the store returned it
	Tags []types.Tag

	// ChildrenByParent maps a parent id to its children in tag order.
	// The parent id need not exist (orphans are indexed too).
	ChildrenByParent map[string][]types.Tag
}

// NewInput builds an Input from a tag set, deriving the child index.
func NewInput(tags []types.Tag) Input {
	return Input{
		Tags:             tags,
		ChildrenByParent: BuildChildIndex(tags),
	}
}

// BuildChildIndex groups tags by parent reference, preserving tag order
// within each group.
func BuildChildIndex(tags []types.Tag) map[string][]types.Tag {
	index := make(map[string][]types.Tag)
	for _, t := range tags {
		if !t.HasParent() {
			continue
		}
		index[*t.ParentID] = append(index[*t.ParentID], t)
	}
	return index
}

// clone deep-copies the input so a generation never observes later
// mutations made by the caller.
func (in Input) clone() Input {
	out := Input{
		Tags:             make([]types.Tag, len(in.Tags)),
		ChildrenByParent: make(map[string][]types.Tag, len(in.ChildrenByParent)),
	}
	for i, t := range in.Tags {
		out.Tags[i] = t.Clone()
	}
	for parentID, children := range in.ChildrenByParent {
		cs := make([]types.Tag, len(children))
		for i, c := range children {
			cs[i] = c.Clone()
		}
		out.ChildrenByParent[parentID] = cs
	}
	return out
}

// Results is an immutable snapshot of every derived view. A new value is
// published for each change; callers must not modify the slices.
type Results struct {
	// Generation is the id of the computation that produced the pairwise
	// views (0 until the first one completes)
	Generation uint64 `json:"generation"`

	DuplicateParentTags       []types.DuplicateGroup    `json:"duplicate_parent_tags"`
	SemanticDuplicates        []types.SemanticDuplicate `json:"semantic_duplicates"`
	SimilarChildTagsPerParent []types.SimilarChildGroup `json:"similar_child_tags_per_parent"`
	OrphanedTags              []types.OrphanedTag       `json:"orphaned_tags"`

	// IsCalculating is true while a newer pairwise computation is pending
	IsCalculating bool `json:"is_calculating"`

	// SkippedTags counts malformed tags left out of the last input
	SkippedTags int `json:"skipped_tags"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants every published snapshot must hold
func (r *Results) Validate() error {
	seenNames := make(map[string]bool)
	for _, g := range r.DuplicateParentTags {
		if g.Count < 2 || g.Count != len(g.TagIDs) {
			return fmt.Errorf("duplicate group %q has count %d with %d ids", g.Name, g.Count, len(g.TagIDs))
		}
		if seenNames[g.Key] {
			return fmt.Errorf("duplicate group %q appears twice", g.Name)
		}
		seenNames[g.Key] = true
	}

	for i, d := range r.SemanticDuplicates {
		if d.Similarity < SemanticThreshold || d.Similarity >= similarity.Max {
			return fmt.Errorf("semantic pair %q/%q has out-of-range similarity %.2f", d.NameA, d.NameB, d.Similarity)
		}
		if d.NameA == d.NameB {
			return fmt.Errorf("semantic pair repeats name %q", d.NameA)
		}
		if similarity.Key(d.NameA) == similarity.Key(d.NameB) {
			return fmt.Errorf("semantic pair %q/%q is an exact duplicate", d.NameA, d.NameB)
		}
		if i > 0 && r.SemanticDuplicates[i-1].Similarity < d.Similarity {
			return fmt.Errorf("semantic pairs not sorted at index %d", i)
		}
	}

	for _, g := range r.SimilarChildTagsPerParent {
		for i, p := range g.Pairs {
			if p.Similarity < SimilarChildThreshold || p.Similarity >= similarity.Max {
				return fmt.Errorf("child pair %q/%q under %s has out-of-range similarity %.2f",
					p.A.Name, p.B.Name, g.ParentID, p.Similarity)
			}
			if i > 0 && g.Pairs[i-1].Similarity < p.Similarity {
				return fmt.Errorf("child pairs under %s not sorted at index %d", g.ParentID, i)
			}
		}
	}

	return nil
}
