package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/taxon/internal/types"
)

const tagColumns = `id, name, kind, confidence, source, parent_id, synonyms, document_id, created_at`

// ListTags returns every tag in insertion order
func (s *SQLiteStorage) ListTags(ctx context.Context) ([]types.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]types.Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

// GetTag retrieves a tag by id
func (s *SQLiteStorage) GetTag(ctx context.Context, id string) (*types.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// CreateTag inserts a tag, assigning an id and creation time when unset
func (s *SQLiteStorage) CreateTag(ctx context.Context, tag *types.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now()
	}
	if err := tag.Validate(); err != nil {
		return err
	}

	synonyms := tag.Synonyms
	if synonyms == nil {
		synonyms = []string{}
	}
	synonymsJSON, err := json.Marshal(synonyms)
	if err != nil {
		return fmt.Errorf("failed to marshal synonyms: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tag.ID,
		tag.Name,
		string(tag.Kind),
		nullFloat(tag.Confidence),
		string(tag.Source),
		nullString(tag.ParentID),
		string(synonymsJSON),
		nullString(tag.DocumentID),
		toMillis(tag.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create tag %s (%s): %w", tag.ID, tag.Name, err)
	}
	return nil
}

// UpdateParent sets or clears (nil) the parent reference of a tag
func (s *SQLiteStorage) UpdateParent(ctx context.Context, tagID string, parentID *string) error {
	return updateParent(ctx, s.db, tagID, parentID)
}

// DeleteTags deletes the given tags and returns how many existed
func (s *SQLiteStorage) DeleteTags(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM tags WHERE id IN (` + placeholders(len(ids)) + `)`
	res, err := s.db.ExecContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tags: %w", err)
	}
	return int(n), nil
}

// DeleteTagsByName deletes every tag whose name is in names
func (s *SQLiteStorage) DeleteTagsByName(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	query := `DELETE FROM tags WHERE name IN (` + placeholders(len(names)) + `)`
	res, err := s.db.ExecContext(ctx, query, stringArgs(names)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tags by name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tags: %w", err)
	}
	return int(n), nil
}

// ReparentChildren moves every tag under fromParentID to toParentID
func (s *SQLiteStorage) ReparentChildren(ctx context.Context, fromParentID, toParentID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tags SET parent_id = ? WHERE parent_id = ?`, toParentID, fromParentID)
	if err != nil {
		return 0, fmt.Errorf("failed to reparent children of %s: %w", fromParentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reparented tags: %w", err)
	}
	return int(n), nil
}

func updateParent(ctx context.Context, q queryer, tagID string, parentID *string) error {
	res, err := q.ExecContext(ctx, `UPDATE tags SET parent_id = ? WHERE id = ?`, nullString(parentID), tagID)
	if err != nil {
		return fmt.Errorf("failed to update parent of %s: %w", tagID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update parent of %s: %w", tagID, err)
	}
	if n == 0 {
		return fmt.Errorf("tag %s: %w", tagID, types.ErrNotFound)
	}
	return nil
}

func deleteTag(ctx context.Context, q queryer, tagID string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID)
	if err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", tagID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", tagID, err)
	}
	if n == 0 {
		return fmt.Errorf("tag %s: %w", tagID, types.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (*types.Tag, error) {
	var (
		tag          types.Tag
		kind, source string
		confidence   sql.NullFloat64
		parentID     sql.NullString
		documentID   sql.NullString
		synonyms     string
		createdAt    int64
	)
	err := row.Scan(&tag.ID, &tag.Name, &kind, &confidence, &source, &parentID, &synonyms, &documentID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}

	tag.Kind = types.TagKind(kind)
	tag.Source = types.Provenance(source)
	tag.Confidence = floatPtr(confidence)
	tag.ParentID = stringPtr(parentID)
	tag.DocumentID = stringPtr(documentID)
	tag.CreatedAt = fromMillis(createdAt)
	if err := json.Unmarshal([]byte(synonyms), &tag.Synonyms); err != nil {
		return nil, fmt.Errorf("failed to parse synonyms of %s: %w", tag.ID, err)
	}
	if len(tag.Synonyms) == 0 {
		tag.Synonyms = nil
	}
	return &tag, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
