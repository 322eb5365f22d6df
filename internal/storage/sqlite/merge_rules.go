package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/taxon/internal/types"
)

// UpsertMergeRule inserts a rule or, when (source_name, scope) already
// exists, points it at the new canonical name and bumps its merge count.
func (s *SQLiteStorage) UpsertMergeRule(ctx context.Context, rule types.MergeRule) (*types.MergeRule, error) {
	return upsertMergeRule(ctx, s.db, rule)
}

// ListMergeRules returns rules for scope ("" for all), most used first
func (s *SQLiteStorage) ListMergeRules(ctx context.Context, scope string) ([]types.MergeRule, error) {
	query := `
		SELECT id, source_name, canonical_name, scope, merge_count, created_at, updated_at
		FROM merge_rules
	`
	var args []any
	if scope != "" {
		query += " WHERE scope = ?"
		args = append(args, scope)
	}
	query += " ORDER BY merge_count DESC, source_name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge rules: %w", err)
	}
	defer rows.Close()

	rules := make([]types.MergeRule, 0)
	for rows.Next() {
		rule, err := scanMergeRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate merge rules: %w", err)
	}
	return rules, nil
}

func upsertMergeRule(ctx context.Context, q queryer, rule types.MergeRule) (*types.MergeRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid merge rule: %w", err)
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := toMillis(time.Now())

	row := q.QueryRowContext(ctx, `
		INSERT INTO merge_rules (id, source_name, canonical_name, scope, merge_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (source_name, scope) DO UPDATE SET
			canonical_name = excluded.canonical_name,
			merge_count = merge_rules.merge_count + 1,
			updated_at = excluded.updated_at
		RETURNING id, source_name, canonical_name, scope, merge_count, created_at, updated_at
	`, rule.ID, rule.SourceName, rule.CanonicalName, rule.Scope, now, now)

	stored, err := scanMergeRule(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert merge rule %s -> %s: %w", rule.SourceName, rule.CanonicalName, err)
	}
	return stored, nil
}

func scanMergeRule(row rowScanner) (*types.MergeRule, error) {
	var (
		rule                 types.MergeRule
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rule.ID, &rule.SourceName, &rule.CanonicalName, &rule.Scope,
		&rule.MergeCount, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan merge rule: %w", err)
	}
	rule.CreatedAt = fromMillis(createdAt)
	rule.UpdatedAt = fromMillis(updatedAt)
	return &rule, nil
}
