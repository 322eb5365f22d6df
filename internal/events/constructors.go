package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/taxon/internal/types"
)

// Decision holds the fields common to every decision record.
type Decision struct {
	Tags       []types.Tag
	Reasons    []string
	Rationale  string
	Similarity *float64
	// OpenedAt is when the case was presented; zero means unknown
	OpenedAt time.Time
	Actor    string
}

func newDecisionEvent(action ActionType, outcome string, d Decision) *DecisionEvent {
	now := time.Now()
	var elapsed int64
	if !d.OpenedAt.IsZero() && now.After(d.OpenedAt) {
		elapsed = now.Sub(d.OpenedAt).Milliseconds()
	}
	var score *float64
	if d.Similarity != nil {
		score = types.FloatPtr(*d.Similarity)
	}
	return &DecisionEvent{
		ID:               uuid.New().String(),
		Timestamp:        now,
		Action:           action,
		InputTags:        RefsOf(d.Tags),
		UserDecision:     outcome,
		Reasons:          append([]string(nil), d.Reasons...),
		Rationale:        d.Rationale,
		SimilarityScore:  score,
		TimeToDecisionMs: elapsed,
		Actor:            d.Actor,
	}
}

// NewMergeEvent creates an accepted merge_parent or merge_child event with type-safe data.
func NewMergeEvent(action ActionType, d Decision, data MergeData) (*DecisionEvent, error) {
	if action != ActionMergeParent && action != ActionMergeChild {
		return nil, fmt.Errorf("not a merge action: %s", action)
	}
	event := newDecisionEvent(action, DecisionAccepted, d)
	if err := event.SetMergeData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewOrphanEvent creates an accepted orphan resolution event with type-safe data.
func NewOrphanEvent(action ActionType, d Decision, data OrphanData) (*DecisionEvent, error) {
	switch action {
	case ActionAdoptOrphan, ActionDeleteOrphan, ActionBulkDeleteOrphans:
	default:
		return nil, fmt.Errorf("not an orphan action: %s", action)
	}
	event := newDecisionEvent(action, DecisionAccepted, d)
	if err := event.SetOrphanData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewRejectEvent creates a reject_duplicate event. Nothing was mutated, so
// it carries no data.
func NewRejectEvent(d Decision) *DecisionEvent {
	return newDecisionEvent(ActionRejectDuplicate, DecisionRejected, d)
}
