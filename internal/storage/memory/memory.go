// Package memory implements taxonomy storage in process memory. It backs
// tests and throwaway sessions; nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/taxon/internal/events"
	"github.com/steveyegge/taxon/internal/types"
)

// Store is a concurrency-safe in-memory store
type Store struct {
	mu     sync.RWMutex
	tags   []types.Tag
	rules  []types.MergeRule
	events []*events.DecisionEvent
}

// New creates an empty store
func New() *Store {
	return &Store{}
}

// ListTags returns a copy of every tag in insertion order
func (s *Store) ListTags(ctx context.Context) ([]types.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]types.Tag, len(s.tags))
	for i, t := range s.tags {
		tags[i] = t.Clone()
	}
	return tags, nil
}

// GetTag retrieves a tag by id
func (s *Store) GetTag(ctx context.Context, id string) (*types.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("tag %s: %w", id, types.ErrNotFound)
	}
	tag := s.tags[i].Clone()
	return &tag, nil
}

// CreateTag inserts a tag, assigning an id and creation time when unset
func (s *Store) CreateTag(ctx context.Context, tag *types.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now()
	}
	if err := tag.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(tag.ID) >= 0 {
		return fmt.Errorf("failed to create tag %s (%s): id already exists", tag.ID, tag.Name)
	}
	s.tags = append(s.tags, tag.Clone())
	return nil
}

// UpdateParent sets or clears (nil) the parent reference of a tag
func (s *Store) UpdateParent(ctx context.Context, tagID string, parentID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateParentLocked(tagID, parentID)
}

// DeleteTags deletes the given tags and returns how many existed
func (s *Store) DeleteTags(ctx context.Context, ids []string) (int, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(t types.Tag) bool { return drop[t.ID] }), nil
}

// DeleteTagsByName deletes every tag whose name is in names
func (s *Store) DeleteTagsByName(ctx context.Context, names []string) (int, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(t types.Tag) bool { return drop[t.Name] }), nil
}

// ReparentChildren moves every tag under fromParentID to toParentID
func (s *Store) ReparentChildren(ctx context.Context, fromParentID, toParentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range s.tags {
		if s.tags[i].ParentRef() == fromParentID && s.tags[i].HasParent() {
			s.tags[i].ParentID = types.StringPtr(toParentID)
			n++
		}
	}
	return n, nil
}

// UpsertMergeRule inserts a rule or bumps the merge count of the existing
// rule with the same (source name, scope).
func (s *Store) UpsertMergeRule(ctx context.Context, rule types.MergeRule) (*types.MergeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertRuleLocked(rule)
}

// ListMergeRules returns rules for scope ("" for all), most used first
func (s *Store) ListMergeRules(ctx context.Context, scope string) ([]types.MergeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]types.MergeRule, 0, len(s.rules))
	for _, r := range s.rules {
		if scope == "" || r.Scope == scope {
			rules = append(rules, r)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].MergeCount != rules[j].MergeCount {
			return rules[i].MergeCount > rules[j].MergeCount
		}
		return rules[i].SourceName < rules[j].SourceName
	})
	return rules, nil
}

// StoreDecisionEvent appends a decision event to the log
func (s *Store) StoreDecisionEvent(ctx context.Context, event *events.DecisionEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid decision event: %w", err)
	}
	copied := *event

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, &copied)
	return nil
}

// ListDecisionEvents retrieves events matching the filter, newest first
func (s *Store) ListDecisionEvents(ctx context.Context, filter events.DecisionFilter) ([]*events.DecisionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*events.DecisionEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		copied := *e
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// ApplyMergePlan applies every step of plan or none of them
func (s *Store) ApplyMergePlan(ctx context.Context, plan *types.MergePlan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid merge plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	savedTags := make([]types.Tag, len(s.tags))
	for i, t := range s.tags {
		savedTags[i] = t.Clone()
	}
	savedRules := append([]types.MergeRule(nil), s.rules...)

	if err := s.applyLocked(plan); err != nil {
		s.tags = savedTags
		s.rules = savedRules
		return err
	}
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func (s *Store) applyLocked(plan *types.MergePlan) error {
	for _, id := range plan.Reparent {
		if err := s.updateParentLocked(id, types.StringPtr(plan.NewParentID)); err != nil {
			return &types.PlanStepError{Step: types.StepReparent, TagID: id, Err: err}
		}
	}
	for _, id := range plan.ClearParent {
		if err := s.updateParentLocked(id, nil); err != nil {
			return &types.PlanStepError{Step: types.StepClearParent, TagID: id, Err: err}
		}
	}
	for _, id := range plan.Delete {
		target := id
		if s.deleteWhere(func(t types.Tag) bool { return t.ID == target }) == 0 {
			return &types.PlanStepError{
				Step:  types.StepDelete,
				TagID: id,
				Err:   fmt.Errorf("tag %s: %w", id, types.ErrNotFound),
			}
		}
	}
	for _, rule := range plan.Rules {
		if _, err := s.upsertRuleLocked(rule); err != nil {
			return &types.PlanStepError{Step: types.StepUpsertRule, Name: rule.SourceName, Err: err}
		}
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.tags {
		if s.tags[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) updateParentLocked(tagID string, parentID *string) error {
	i := s.indexOf(tagID)
	if i < 0 {
		return fmt.Errorf("tag %s: %w", tagID, types.ErrNotFound)
	}
	if parentID == nil {
		s.tags[i].ParentID = nil
	} else {
		s.tags[i].ParentID = types.StringPtr(*parentID)
	}
	return nil
}

func (s *Store) deleteWhere(match func(types.Tag) bool) int {
	kept := s.tags[:0]
	n := 0
	for _, t := range s.tags {
		if match(t) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.tags = kept
	return n
}

func (s *Store) upsertRuleLocked(rule types.MergeRule) (*types.MergeRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid merge rule: %w", err)
	}
	now := time.Now()
	for i := range s.rules {
		if s.rules[i].RuleKey() == rule.RuleKey() {
			s.rules[i].CanonicalName = rule.CanonicalName
			s.rules[i].MergeCount++
			s.rules[i].UpdatedAt = now
			stored := s.rules[i]
			return &stored, nil
		}
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.MergeCount = 1
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules = append(s.rules, rule)
	return &rule, nil
}
