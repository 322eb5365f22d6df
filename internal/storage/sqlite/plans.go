package sqlite

import (
	"context"
	"fmt"

	"github.com/steveyegge/taxon/internal/types"
)

// ApplyMergePlan applies every step of plan in one transaction. On failure
// nothing is changed and the error is a *types.PlanStepError.
func (s *SQLiteStorage) ApplyMergePlan(ctx context.Context, plan *types.MergePlan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid merge plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(plan.Reparent) > 0 {
		parentID := plan.NewParentID
		for _, id := range plan.Reparent {
			if err := updateParent(ctx, tx, id, &parentID); err != nil {
				return &types.PlanStepError{Step: types.StepReparent, TagID: id, Err: err}
			}
		}
	}

	for _, id := range plan.ClearParent {
		if err := updateParent(ctx, tx, id, nil); err != nil {
			return &types.PlanStepError{Step: types.StepClearParent, TagID: id, Err: err}
		}
	}

	for _, id := range plan.Delete {
		if err := deleteTag(ctx, tx, id); err != nil {
			return &types.PlanStepError{Step: types.StepDelete, TagID: id, Err: err}
		}
	}

	for _, rule := range plan.Rules {
		if _, err := upsertMergeRule(ctx, tx, rule); err != nil {
			return &types.PlanStepError{Step: types.StepUpsertRule, Name: rule.SourceName, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge plan: %w", err)
	}
	return nil
}
