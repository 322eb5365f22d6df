// Package resolution drives the admin workflow that resolves duplicate,
// near-duplicate and orphaned tags.
//
// A Controller opens a Case from detector output, the admin fills in the
// selections the case kind requires, and Commit turns them into a
// types.MergePlan applied to the store. Every accepted or rejected decision
// is handed to a Recorder, and every mutation triggers a refresh of the
// similarity engine.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/steveyegge/taxon/internal/deduplication"
	"github.com/steveyegge/taxon/internal/events"
	"github.com/steveyegge/taxon/internal/storage"
	"github.com/steveyegge/taxon/internal/types"
)

// Store is the subset of storage.Storage the controller needs
type Store interface {
	ListTags(ctx context.Context) ([]types.Tag, error)
	UpdateParent(ctx context.Context, tagID string, parentID *string) error
	DeleteTags(ctx context.Context, ids []string) (int, error)
	UpsertMergeRule(ctx context.Context, rule types.MergeRule) (*types.MergeRule, error)
}

// Recorder receives decision events. *events.Logger satisfies it.
type Recorder interface {
	Log(event *events.DecisionEvent)
}

// Refresher is told about every new tag snapshot. *deduplication.Engine
// satisfies it.
type Refresher interface {
	Update(in deduplication.Input) uint64
}

// Controller opens and resolves conflict cases against a store
type Controller struct {
	store     Store
	recorder  Recorder
	refresher Refresher
	logger    zerolog.Logger
	actor     string
}

// Option configures a Controller
type Option func(*Controller)

// WithRecorder sets where decision events go. The default drops them.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithRefresher sets the engine refreshed after each mutation
func WithRefresher(r Refresher) Option {
	return func(c *Controller) {
		c.refresher = r
	}
}

// WithLogger sets the controller logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithActor names who decisions are attributed to
func WithActor(actor string) Option {
	return func(c *Controller) {
		c.actor = actor
	}
}

// NewController creates a controller over store
func NewController(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a case over the given tags, read fresh from the store. The
// first id is the default target.
func (c *Controller) Open(ctx context.Context, kind Kind, tagIDs []string, similarity *float64) (*Case, error) {
	const op = "open case"
	if !kind.IsValid() {
		return nil, invalid(op, fmt.Errorf("unknown case kind %q", kind))
	}

	all, err := c.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	byID := make(map[string]types.Tag, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	var tags []types.Tag
	implicated := make(map[string]bool)
	for _, id := range tagIDs {
		if implicated[id] {
			continue
		}
		t, ok := byID[id]
		if !ok {
			return nil, invalid(op, fmt.Errorf("%w: %s", ErrUnknownTag, id))
		}
		wantParent := kind.mergesParents()
		if t.IsTopLevel() != wantParent {
			return nil, invalid(op, fmt.Errorf("%w: %s is a %s tag in a %s case", ErrKindMismatch, t.Name, t.Kind, kind))
		}
		implicated[id] = true
		tags = append(tags, t)
	}
	if len(tags) < 2 {
		return nil, invalid(op, ErrTooFewTags)
	}

	cs := &Case{
		ID:          uuid.New().String(),
		Kind:        kind,
		OpenedAt:    time.Now(),
		tags:        tags,
		state:       StateOpened,
		targetID:    tags[0].ID,
		children:    make(map[string][]types.Tag),
		disposition: make(map[string]Disposition),
		parents:     make(map[string]types.Tag),
	}
	if similarity != nil {
		cs.Similarity = types.FloatPtr(*similarity)
	}

	for _, t := range all {
		if t.IsTopLevel() && !implicated[t.ID] {
			cs.parents[t.ID] = t
			cs.parentOrder = append(cs.parentOrder, t.ID)
		}
		if kind.mergesParents() && t.HasParent() && implicated[*t.ParentID] && !implicated[t.ID] {
			cs.children[*t.ParentID] = append(cs.children[*t.ParentID], t)
		}
	}

	c.logger.Debug().
		Str("case_id", cs.ID).
		Str("kind", string(kind)).
		Int("tags", len(tags)).
		Msg("case opened")
	return cs, nil
}

// OpenDuplicateGroup opens a parent case for an exact-duplicate group
func (c *Controller) OpenDuplicateGroup(ctx context.Context, g types.DuplicateGroup) (*Case, error) {
	return c.Open(ctx, KindParent, g.TagIDs, nil)
}

// OpenSemanticDuplicate opens a semantic case for a near-duplicate pair
func (c *Controller) OpenSemanticDuplicate(ctx context.Context, d types.SemanticDuplicate) (*Case, error) {
	score := d.Similarity
	return c.Open(ctx, KindSemantic, d.TagIDs, &score)
}

// OpenSimilarChildren opens a child case for a similar-children pair
func (c *Controller) OpenSimilarChildren(ctx context.Context, p types.SimilarChildPair) (*Case, error) {
	score := p.Similarity
	return c.Open(ctx, KindChild, []string{p.A.ID, p.B.ID}, &score)
}

// Commit validates the case and applies its plan. Validation failures
// leave the case open and the store untouched. A store failure moves the
// case to StateFailed and is returned as a *CommitError.
func (c *Controller) Commit(ctx context.Context, cs *Case) (*types.MergePlan, error) {
	plan, err := cs.Plan()
	if err != nil {
		return nil, err
	}

	if err := c.apply(ctx, cs, plan); err != nil {
		cs.state = StateFailed
		c.logger.Error().
			Err(err).
			Str("case_id", cs.ID).
			Str("target", plan.TargetName).
			Msg("merge commit failed")
		c.refresh(ctx)
		return plan, err
	}
	cs.state = StateCommitted

	action := events.ActionMergeParent
	if cs.Kind == KindChild {
		action = events.ActionMergeChild
	}
	migrate, orphan := cs.Triage()
	event, err := events.NewMergeEvent(action, c.decision(cs.tags, cs.reasons, cs.rationale, cs.Similarity, cs.OpenedAt),
		events.MergeData{
			TargetID:      plan.TargetID,
			TargetName:    plan.TargetName,
			SourceIDs:     plan.SourceIDs,
			NewParentID:   cs.parentID,
			Migrated:      migrate,
			Orphaned:      orphan,
			RulesUpserted: len(plan.Rules),
		})
	c.record(event, err)

	c.logger.Info().
		Str("case_id", cs.ID).
		Str("target", plan.TargetName).
		Int("deleted", len(plan.Delete)).
		Int("reparented", len(plan.Reparent)).
		Int("orphaned", len(plan.ClearParent)).
		Int("rules", len(plan.Rules)).
		Msg("merge committed")
	c.refresh(ctx)
	return plan, nil
}

// Reject closes the case without changing anything and records the
// dismissal
func (c *Controller) Reject(ctx context.Context, cs *Case, rationale string) error {
	if err := cs.checkOpen("reject"); err != nil {
		return err
	}
	if rationale != "" {
		cs.rationale = rationale
	}
	cs.state = StateRejected

	c.record(events.NewRejectEvent(c.decision(cs.tags, cs.reasons, cs.rationale, cs.Similarity, cs.OpenedAt)), nil)
	c.logger.Info().Str("case_id", cs.ID).Msg("case rejected")
	return nil
}

// apply runs the plan atomically when the store supports it and step by
// step otherwise, stopping at the first failure
func (c *Controller) apply(ctx context.Context, cs *Case, plan *types.MergePlan) error {
	if applier, ok := c.store.(storage.PlanApplier); ok {
		if err := applier.ApplyMergePlan(ctx, plan); err != nil {
			return c.commitError(cs, plan, err, true)
		}
		return nil
	}

	for _, id := range plan.Reparent {
		parentID := plan.NewParentID
		if err := c.store.UpdateParent(ctx, id, &parentID); err != nil {
			return c.commitError(cs, plan, &types.PlanStepError{Step: types.StepReparent, TagID: id, Err: err}, false)
		}
	}
	for _, id := range plan.ClearParent {
		if err := c.store.UpdateParent(ctx, id, nil); err != nil {
			return c.commitError(cs, plan, &types.PlanStepError{Step: types.StepClearParent, TagID: id, Err: err}, false)
		}
	}
	for _, id := range plan.Delete {
		n, err := c.store.DeleteTags(ctx, []string{id})
		if err == nil && n == 0 {
			err = fmt.Errorf("tag %s: %w", id, types.ErrNotFound)
		}
		if err != nil {
			return c.commitError(cs, plan, &types.PlanStepError{Step: types.StepDelete, TagID: id, Err: err}, false)
		}
	}
	for _, rule := range plan.Rules {
		if _, err := c.store.UpsertMergeRule(ctx, rule); err != nil {
			return c.commitError(cs, plan, &types.PlanStepError{Step: types.StepUpsertRule, Name: rule.SourceName, Err: err}, false)
		}
	}
	return nil
}

func (c *Controller) commitError(cs *Case, plan *types.MergePlan, err error, atomic bool) error {
	ce := &CommitError{TargetName: plan.TargetName, Atomic: atomic, Err: err}
	var stepErr *types.PlanStepError
	if errors.As(err, &stepErr) {
		ce.Step = stepErr.Step
		ce.TagID = stepErr.TagID
		ce.TagName = stepErr.Name
		if ce.TagName == "" {
			ce.TagName = cs.name(stepErr.TagID)
		}
	}
	return ce
}

func (c *Controller) decision(tags []types.Tag, reasons []Reason, rationale string, score *float64, openedAt time.Time) events.Decision {
	return events.Decision{
		Tags:       tags,
		Reasons:    reasonStrings(reasons),
		Rationale:  rationale,
		Similarity: score,
		OpenedAt:   openedAt,
		Actor:      c.actor,
	}
}

// record hands an event to the recorder. Failures are logged only: the
// decision has already been applied.
func (c *Controller) record(event *events.DecisionEvent, err error) {
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to build decision event")
		return
	}
	if c.recorder == nil {
		return
	}
	c.recorder.Log(event)
}

// refresh hands the current taxonomy to the engine
func (c *Controller) refresh(ctx context.Context) {
	if c.refresher == nil {
		return
	}
	tags, err := c.store.ListTags(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to reload tags after mutation")
		return
	}
	c.refresher.Update(deduplication.NewInput(tags))
}
