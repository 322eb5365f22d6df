package resolution

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/steveyegge/taxon/internal/deduplication"
	"github.com/steveyegge/taxon/internal/events"
	"github.com/steveyegge/taxon/internal/types"
)

// OrphanDecision carries the admin input for an orphan resolution
type OrphanDecision struct {
	Reasons   []Reason
	Rationale string
	// OpenedAt is when the orphan was presented; zero means unknown
	OpenedAt time.Time
}

// AdoptOrphan moves an orphaned tag under an existing top-level parent.
// Reasons are optional.
func (c *Controller) AdoptOrphan(ctx context.Context, orphan types.OrphanedTag, parentID string, d OrphanDecision) error {
	const op = "adopt orphan"
	if err := checkReasons(op, d.Reasons, false); err != nil {
		return err
	}

	tags, err := c.store.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	var child, parent *types.Tag
	for i := range tags {
		switch tags[i].ID {
		case orphan.TagID:
			child = &tags[i]
		case parentID:
			parent = &tags[i]
		}
	}
	if child == nil {
		return invalid(op, fmt.Errorf("%w: %s", ErrUnknownTag, orphan.TagID))
	}
	if err := checkOrphaned(tags, []string{child.ID}); err != nil {
		return invalid(op, err)
	}
	if parent == nil || !parent.IsTopLevel() {
		return invalid(op, fmt.Errorf("%w: %s", ErrInvalidParent, parentID))
	}

	if err := c.store.UpdateParent(ctx, child.ID, &parent.ID); err != nil {
		return fmt.Errorf("failed to adopt %q under %q: %w", child.Name, parent.Name, err)
	}

	event, err := events.NewOrphanEvent(events.ActionAdoptOrphan,
		c.decision([]types.Tag{*child, *parent}, d.Reasons, d.Rationale, nil, d.OpenedAt),
		events.OrphanData{
			TagIDs:           []string{child.ID},
			MissingParentIDs: missingParents([]types.OrphanedTag{orphan}),
			NewParentID:      parent.ID,
		})
	c.record(event, err)

	c.logger.Info().
		Str("tag", child.Name).
		Str("parent", parent.Name).
		Msg("orphan adopted")
	c.refresh(ctx)
	return nil
}

// DeleteOrphan deletes one orphaned tag. At least one reason is required.
func (c *Controller) DeleteOrphan(ctx context.Context, orphan types.OrphanedTag, d OrphanDecision) error {
	if err := checkReasons("delete orphan", d.Reasons, true); err != nil {
		return err
	}
	_, err := c.deleteOrphans(ctx, events.ActionDeleteOrphan, []types.OrphanedTag{orphan}, d)
	return err
}

// BulkDeleteOrphans deletes every selected orphan in one decision and
// returns how many were removed. Reasons are optional.
func (c *Controller) BulkDeleteOrphans(ctx context.Context, orphans []types.OrphanedTag, d OrphanDecision) (int, error) {
	const op = "bulk delete orphans"
	if len(orphans) == 0 {
		return 0, invalid(op, ErrNoSelection)
	}
	if err := checkReasons(op, d.Reasons, false); err != nil {
		return 0, err
	}
	return c.deleteOrphans(ctx, events.ActionBulkDeleteOrphans, orphans, d)
}

func (c *Controller) deleteOrphans(ctx context.Context, action events.ActionType, orphans []types.OrphanedTag, d OrphanDecision) (int, error) {
	ids := make([]string, 0, len(orphans))
	selected := make([]types.OrphanedTag, 0, len(orphans))
	tags := make([]types.Tag, 0, len(orphans))
	seen := make(map[string]bool)
	for _, o := range orphans {
		if seen[o.TagID] {
			continue
		}
		seen[o.TagID] = true
		ids = append(ids, o.TagID)
		selected = append(selected, o)
		t := types.Tag{
			ID:         o.TagID,
			Name:       o.Name,
			Kind:       types.KindChild,
			Confidence: o.Confidence,
			Source:     o.Source,
			DocumentID: o.DocumentID,
		}
		if o.MissingParentID != "" {
			t.ParentID = types.StringPtr(o.MissingParentID)
		}
		tags = append(tags, t)
	}

	current, err := c.store.ListTags(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load tags: %w", err)
	}
	if err := checkOrphaned(current, ids); err != nil {
		return 0, invalid(string(action), err)
	}

	n, err := c.store.DeleteTags(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %d orphans: %w", len(ids), err)
	}
	if n == 0 {
		return 0, fmt.Errorf("orphan %s: %w", ids[0], types.ErrNotFound)
	}

	event, err := events.NewOrphanEvent(action,
		c.decision(tags, d.Reasons, d.Rationale, nil, d.OpenedAt),
		events.OrphanData{TagIDs: ids, MissingParentIDs: missingParents(selected)})
	c.record(event, err)

	c.logger.Info().
		Str("action", string(action)).
		Int("deleted", n).
		Msg("orphans deleted")
	c.refresh(ctx)
	return n, nil
}

func checkReasons(op string, reasons []Reason, required bool) error {
	if required && len(reasons) == 0 {
		return invalid(op, ErrNoReason)
	}
	for _, r := range reasons {
		if !r.IsValid() {
			return invalid(op, fmt.Errorf("%w: %s", ErrInvalidReason, r))
		}
	}
	return nil
}

// checkOrphaned fails when a listed tag still exists but has since been
// adopted, or is not a child. Tags that are gone are left for the store to
// report.
func checkOrphaned(tags []types.Tag, ids []string) error {
	orphaned := make(map[string]bool)
	for _, o := range deduplication.FindOrphans(tags) {
		orphaned[o.TagID] = true
	}
	for _, t := range tags {
		if !slices.Contains(ids, t.ID) {
			continue
		}
		if t.Kind != types.KindChild || !orphaned[t.ID] {
			return fmt.Errorf("%w: %s (%s)", ErrNotOrphan, t.Name, t.ID)
		}
	}
	return nil
}

// missingParents lists the dangling references, skipping cleared ones.
func missingParents(orphans []types.OrphanedTag) []string {
	var missing []string
	for _, o := range orphans {
		if o.MissingParentID != "" {
			missing = append(missing, o.MissingParentID)
		}
	}
	return missing
}
