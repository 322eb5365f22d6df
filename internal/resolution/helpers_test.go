package resolution

import (
	"context"
	"fmt"
	"sync"

	"github.com/steveyegge/taxon/internal/deduplication"
	"github.com/steveyegge/taxon/internal/events"
	"github.com/steveyegge/taxon/internal/types"
)

// mockStorage is a plain store without atomic plan support. It records
// every mutation in order and can be told to fail one of them.
type mockStorage struct {
	mu     sync.Mutex
	tags   []types.Tag
	rules  map[string]*types.MergeRule
	calls  []string
	failOn string
}

func newMockStorage(tags ...types.Tag) *mockStorage {
	return &mockStorage{
		tags:  tags,
		rules: make(map[string]*types.MergeRule),
	}
}

func (m *mockStorage) ListTags(ctx context.Context) ([]types.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Tag, len(m.tags))
	for i, t := range m.tags {
		out[i] = t.Clone()
	}
	return out, nil
}

func (m *mockStorage) UpdateParent(ctx context.Context, tagID string, parentID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := "clear:" + tagID
	if parentID != nil {
		call = fmt.Sprintf("reparent:%s->%s", tagID, *parentID)
	}
	if err := m.record(call); err != nil {
		return err
	}
	for i := range m.tags {
		if m.tags[i].ID == tagID {
			if parentID == nil {
				m.tags[i].ParentID = nil
			} else {
				m.tags[i].ParentID = types.StringPtr(*parentID)
			}
			return nil
		}
	}
	return fmt.Errorf("tag %s: %w", tagID, types.ErrNotFound)
}

func (m *mockStorage) DeleteTags(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if err := m.record("delete:" + id); err != nil {
			return n, err
		}
		for i := range m.tags {
			if m.tags[i].ID == id {
				m.tags = append(m.tags[:i], m.tags[i+1:]...)
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockStorage) UpsertMergeRule(ctx context.Context, rule types.MergeRule) (*types.MergeRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(fmt.Sprintf("rule:%s->%s", rule.SourceName, rule.CanonicalName)); err != nil {
		return nil, err
	}
	key := rule.RuleKey()
	if existing, ok := m.rules[key]; ok {
		existing.CanonicalName = rule.CanonicalName
		existing.MergeCount++
		stored := *existing
		return &stored, nil
	}
	rule.MergeCount = 1
	m.rules[key] = &rule
	stored := rule
	return &stored, nil
}

func (m *mockStorage) record(call string) error {
	m.calls = append(m.calls, call)
	if call == m.failOn {
		return fmt.Errorf("injected failure at %s", call)
	}
	return nil
}

func (m *mockStorage) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockStorage) tag(id string) (types.Tag, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return types.Tag{}, false
}

type mockRecorder struct {
	mu     sync.Mutex
	events []*events.DecisionEvent
}

func (r *mockRecorder) Log(event *events.DecisionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *mockRecorder) Events() []*events.DecisionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.DecisionEvent(nil), r.events...)
}

type mockRefresher struct {
	mu     sync.Mutex
	inputs []deduplication.Input
}

func (r *mockRefresher) Update(in deduplication.Input) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	return uint64(len(r.inputs))
}

func (r *mockRefresher) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inputs)
}

func parentTag(id, name string) types.Tag {
	return types.Tag{ID: id, Name: name, Kind: types.KindParent, Source: types.SourceAI}
}

func childTag(id, name, parentID string) types.Tag {
	return types.Tag{
		ID:       id,
		Name:     name,
		Kind:     types.KindChild,
		Source:   types.SourceAI,
		ParentID: types.StringPtr(parentID),
	}
}

// fixtureTags is a small taxonomy with one accent duplicate (p1/p2) and one
// pair of similar siblings (c3/c4).
func fixtureTags() []types.Tag {
	return []types.Tag{
		parentTag("p1", "Finanças"),
		parentTag("p2", "Financas"),
		parentTag("p3", "Saúde"),
		childTag("c1", "Impostos", "p2"),
		childTag("c2", "Salário", "p2"),
		childTag("c3", "Consulta", "p3"),
		childTag("c4", "Consultas", "p3"),
		childTag("c5", "Investimentos", "p1"),
	}
}
