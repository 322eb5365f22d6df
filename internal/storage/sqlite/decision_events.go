package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/steveyegge/taxon/internal/events"
)

// StoreDecisionEvent appends a decision event to the log
func (s *SQLiteStorage) StoreDecisionEvent(ctx context.Context, event *events.DecisionEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid decision event: %w", err)
	}

	inputJSON, err := json.Marshal(event.InputTags)
	if err != nil {
		return fmt.Errorf("failed to marshal input tags: %w", err)
	}
	reasons := event.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}
	data := event.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decision_events (
			id, timestamp, action, input_tags, user_decision, reasons,
			rationale, similarity_score, time_to_decision_ms, actor, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		toMillis(event.Timestamp),
		string(event.Action),
		string(inputJSON),
		event.UserDecision,
		string(reasonsJSON),
		event.Rationale,
		nullFloat(event.SimilarityScore),
		event.TimeToDecisionMs,
		event.Actor,
		string(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store decision event (action=%s): %w", event.Action, err)
	}
	return nil
}

// ListDecisionEvents retrieves events matching the filter, newest first
func (s *SQLiteStorage) ListDecisionEvents(ctx context.Context, filter events.DecisionFilter) ([]*events.DecisionEvent, error) {
	query := `
		SELECT id, timestamp, action, input_tags, user_decision, reasons,
		       rationale, similarity_score, time_to_decision_ms, actor, data
		FROM decision_events
		WHERE 1=1
	`
	var args []any

	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, string(filter.Action))
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, toMillis(filter.Since))
	}

	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision events: %w", err)
	}
	defer rows.Close()

	result := make([]*events.DecisionEvent, 0)
	for rows.Next() {
		var (
			event                       events.DecisionEvent
			timestamp                   int64
			action                      string
			inputJSON, reasonsJSON, raw string
			score                       sql.NullFloat64
		)
		if err := rows.Scan(&event.ID, &timestamp, &action, &inputJSON, &event.UserDecision,
			&reasonsJSON, &event.Rationale, &score, &event.TimeToDecisionMs, &event.Actor, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan decision event: %w", err)
		}

		event.Timestamp = fromMillis(timestamp)
		event.Action = events.ActionType(action)
		event.SimilarityScore = floatPtr(score)
		if err := json.Unmarshal([]byte(inputJSON), &event.InputTags); err != nil {
			return nil, fmt.Errorf("failed to parse input tags of %s: %w", event.ID, err)
		}
		if err := json.Unmarshal([]byte(reasonsJSON), &event.Reasons); err != nil {
			return nil, fmt.Errorf("failed to parse reasons of %s: %w", event.ID, err)
		}
		if len(event.Reasons) == 0 {
			event.Reasons = nil
		}
		if err := json.Unmarshal([]byte(raw), &event.Data); err != nil {
			return nil, fmt.Errorf("failed to parse data of %s: %w", event.ID, err)
		}
		if len(event.Data) == 0 {
			event.Data = nil
		}
		result = append(result, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decision events: %w", err)
	}
	return result, nil
}
