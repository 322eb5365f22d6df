package deduplication

import "github.com/steveyegge/taxon/internal/types"

// FindOrphans returns, in tag order, every tag whose parent reference does
// not name an existing top-level tag, and every child tag without a parent
// reference. The latter is what a parent merge leaves behind when it clears
// a child's parent.
func FindOrphans(tags []types.Tag) []types.OrphanedTag {
	parentIDs := make(map[string]bool)
	for _, t := range tags {
		if t.IsTopLevel() {
			parentIDs[t.ID] = true
		}
	}

	orphans := make([]types.OrphanedTag, 0)
	for _, t := range tags {
		switch {
		case t.HasParent() && parentIDs[*t.ParentID]:
			continue
		case !t.HasParent() && t.Kind != types.KindChild:
			continue
		}
		orphans = append(orphans, types.OrphanedTag{
			TagID:           t.ID,
			Name:            t.Name,
			Confidence:      t.Confidence,
			Source:          t.Source,
			DocumentID:      t.DocumentID,
			MissingParentID: t.ParentRef(),
		})
	}
	return orphans
}
