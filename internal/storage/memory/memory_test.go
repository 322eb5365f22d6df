package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taxon/internal/events"
	"github.com/steveyegge/taxon/internal/types"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	for _, tag := range []types.Tag{
		{ID: "p1", Name: "Finanças", Kind: types.KindParent},
		{ID: "p2", Name: "Financas", Kind: types.KindParent},
		{ID: "c1", Name: "Impostos", Kind: types.KindChild, ParentID: types.StringPtr("p2")},
		{ID: "c2", Name: "Receitas", Kind: types.KindChild, ParentID: types.StringPtr("p2")},
	} {
		tag := tag
		require.NoError(t, s.CreateTag(context.Background(), &tag))
	}
	return s
}

func TestStoreTags(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 4)
	assert.Equal(t, "p1", tags[0].ID)

	// returned tags are copies
	*tags[2].ParentID = "changed"
	c1, err := s.GetTag(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "p2", c1.ParentRef())

	dup := types.Tag{ID: "p1", Name: "Again", Kind: types.KindParent}
	assert.Error(t, s.CreateTag(ctx, &dup))

	n, err := s.ReparentChildren(ctx, "p2", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.UpdateParent(ctx, "c2", nil))
	assert.ErrorIs(t, s.UpdateParent(ctx, "nope", nil), types.ErrNotFound)

	n, err = s.DeleteTags(ctx, []string{"p2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteTagsByName(ctx, []string{"Receitas"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tags, err = s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "p1", tags[1].ParentRef())

	_, err = s.GetTag(ctx, "p2")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStoreMergeRules(t *testing.T) {
	ctx := context.Background()
	s := New()

	rule := types.MergeRule{SourceName: "Financas", CanonicalName: "Finanças", Scope: types.ScopeParent}
	first, err := s.UpsertMergeRule(ctx, rule)
	require.NoError(t, err)
	second, err := s.UpsertMergeRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.MergeCount)

	rules, err := s.ListMergeRules(ctx, types.ScopeParent)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	rules, err = s.ListMergeRules(ctx, types.ScopeChild)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestStoreApplyMergePlanIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	bad := &types.MergePlan{
		TargetID:    "p1",
		Reparent:    []string{"c1"},
		NewParentID: "p1",
		ClearParent: []string{"c2"},
		Delete:      []string{"p2", "ghost"},
		Rules:       []types.MergeRule{{SourceName: "Financas", CanonicalName: "Finanças", Scope: types.ScopeParent}},
	}
	err := s.ApplyMergePlan(ctx, bad)
	var stepErr *types.PlanStepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, types.StepDelete, stepErr.Step)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 4)
	assert.Equal(t, "p2", tags[2].ParentRef())
	rules, err := s.ListMergeRules(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rules)

	bad.Delete = []string{"p2"}
	require.NoError(t, s.ApplyMergePlan(ctx, bad))
	tags, err = s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "p1", tags[1].ParentRef())
	assert.Nil(t, tags[2].ParentID)
}

func TestStoreDecisionEvents(t *testing.T) {
	ctx := context.Background()
	s := New()
	tags := []types.Tag{{ID: "p1", Name: "Vendas", Kind: types.KindParent}}

	older := events.NewRejectEvent(events.Decision{Tags: tags})
	older.Timestamp = time.Now().Add(-time.Hour)
	require.NoError(t, s.StoreDecisionEvent(ctx, older))

	adopt, err := events.NewOrphanEvent(events.ActionAdoptOrphan, events.Decision{Tags: tags}, events.OrphanData{TagIDs: []string{"p1"}})
	require.NoError(t, err)
	require.NoError(t, s.StoreDecisionEvent(ctx, adopt))

	all, err := s.ListDecisionEvents(ctx, events.DecisionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, adopt.ID, all[0].ID)

	rejects, err := s.ListDecisionEvents(ctx, events.DecisionFilter{Action: events.ActionRejectDuplicate})
	require.NoError(t, err)
	require.Len(t, rejects, 1)

	recent, err := s.ListDecisionEvents(ctx, events.DecisionFilter{Since: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	require.Len(t, recent, 1)

	limited, err := s.ListDecisionEvents(ctx, events.DecisionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	assert.Error(t, s.StoreDecisionEvent(ctx, &events.DecisionEvent{}))
}
