package resolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taxon/internal/types"
)

func openCase(t *testing.T, kind Kind, ids ...string) (*Case, *mockStorage) {
	t.Helper()
	store := newMockStorage(fixtureTags()...)
	c, err := NewController(store).Open(context.Background(), kind, ids, nil)
	require.NoError(t, err)
	return c, store
}

func TestCaseStatesParentMerge(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")
	assert.Equal(t, StateOpened, c.State())
	assert.Equal(t, "p1", c.Target().ID, "first tag is the default target")

	require.NoError(t, c.SetTarget("p1"))
	assert.Equal(t, StateTargetSelected, c.State())

	require.NoError(t, c.ToggleChild("c2"))
	assert.Equal(t, StateChildrenTriaged, c.State())

	require.NoError(t, c.SelectReasons(ReasonSpellingVariation))
	assert.Equal(t, StateChildrenTriaged, c.State())
}

func TestCaseStatesChildMerge(t *testing.T) {
	c, _ := openCase(t, KindChild, "c3", "c4")
	assert.Equal(t, StateOpened, c.State())

	require.NoError(t, c.AssignParent("p3"))
	assert.Equal(t, StateParentAssigned, c.State())

	require.NoError(t, c.ToggleReason(ReasonGrammaticalVariation))
	assert.Equal(t, StateReasonsSelected, c.State())

	require.NoError(t, c.ToggleReason(ReasonGrammaticalVariation))
	assert.Equal(t, StateParentAssigned, c.State())
	assert.Empty(t, c.Reasons())
}

func TestSetTargetRejectsOutsider(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")

	err := c.SetTarget("p3")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "set target", ve.Op)
	assert.Equal(t, "p1", c.Target().ID)
}

func TestAssignParent(t *testing.T) {
	t.Run("candidates are unimplicated top-level tags in order", func(t *testing.T) {
		c, _ := openCase(t, KindChild, "c3", "c4")
		var ids []string
		for _, p := range c.CandidateParents() {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
	})

	t.Run("child tag is not a valid parent", func(t *testing.T) {
		c, _ := openCase(t, KindChild, "c3", "c4")
		assert.ErrorIs(t, c.AssignParent("c1"), ErrInvalidParent)
		assert.ErrorIs(t, c.AssignParent("nope"), ErrInvalidParent)
		_, ok := c.Parent()
		assert.False(t, ok)
	})

	t.Run("parent cases take no parent", func(t *testing.T) {
		c, _ := openCase(t, KindParent, "p1", "p2")
		assert.ErrorIs(t, c.AssignParent("p3"), ErrKindMismatch)
	})

	t.Run("selected parent is reported", func(t *testing.T) {
		c, _ := openCase(t, KindChild, "c3", "c4")
		require.NoError(t, c.AssignParent("p1"))
		p, ok := c.Parent()
		require.True(t, ok)
		assert.Equal(t, "Finanças", p.Name)
	})
}

func TestReasonSelection(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")

	assert.ErrorIs(t, c.ToggleReason(Reason("vibes")), ErrInvalidReason)
	assert.ErrorIs(t, c.SelectReasons(ReasonTypo, Reason("vibes")), ErrInvalidReason)

	require.NoError(t, c.SelectReasons(ReasonTypo, ReasonSynonym, ReasonTypo))
	assert.Equal(t, []Reason{ReasonTypo, ReasonSynonym}, c.Reasons())

	require.NoError(t, c.ToggleReason(ReasonTypo))
	assert.Equal(t, []Reason{ReasonSynonym}, c.Reasons())
}

func TestTriagePartition(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")

	migrate, orphan := c.Triage()
	assert.Equal(t, []string{"c1", "c2"}, migrate, "every child migrates by default")
	assert.Empty(t, orphan)

	require.NoError(t, c.ToggleChild("c2"))
	migrate, orphan = c.Triage()
	assert.Equal(t, []string{"c1"}, migrate)
	assert.Equal(t, []string{"c2"}, orphan)

	d, err := c.Disposition("c2")
	require.NoError(t, err)
	assert.Equal(t, Orphan, d)

	require.NoError(t, c.ToggleChild("c2"))
	migrate, orphan = c.Triage()
	assert.Equal(t, []string{"c1", "c2"}, migrate)
	assert.Empty(t, orphan)

	// c5 belongs to the target, not a source
	_, err = c.Disposition("c5")
	assert.ErrorIs(t, err, ErrNotTriaged)
	assert.ErrorIs(t, c.SetDisposition("c5", Orphan), ErrNotTriaged)
	assert.Error(t, c.SetDisposition("c1", Disposition("keep")))
}

func TestTriageFollowsTarget(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")
	require.NoError(t, c.SetTarget("p2"))

	var affected []string
	for _, child := range c.AffectedChildren() {
		affected = append(affected, child.ID)
	}
	assert.Equal(t, []string{"c5"}, affected)

	migrate, orphan := c.Triage()
	assert.Equal(t, []string{"c5"}, migrate)
	assert.Empty(t, orphan)
}

func TestTriagePartitionProperty(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")
	toggles := []string{"c1", "c2", "c1", "c2", "c2"}

	for _, id := range toggles {
		require.NoError(t, c.ToggleChild(id))

		migrate, orphan := c.Triage()
		seen := make(map[string]int)
		for _, id := range append(migrate, orphan...) {
			seen[id]++
		}
		assert.Len(t, seen, len(c.AffectedChildren()))
		for id, n := range seen {
			assert.Equal(t, 1, n, "child %s appears in both buckets", id)
		}
	}
}

func TestPlanParentMerge(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")
	require.NoError(t, c.ToggleChild("c2"))
	require.NoError(t, c.SelectReasons(ReasonSpellingVariation))

	plan, err := c.Plan()
	require.NoError(t, err)

	assert.Equal(t, "p1", plan.TargetID)
	assert.Equal(t, "Finanças", plan.TargetName)
	assert.Equal(t, []string{"p2"}, plan.SourceIDs)
	assert.Equal(t, []string{"c1"}, plan.Reparent)
	assert.Equal(t, "p1", plan.NewParentID)
	assert.Equal(t, []string{"c2"}, plan.ClearParent)
	assert.Equal(t, []string{"p2"}, plan.Delete)
	require.Len(t, plan.Rules, 1)
	assert.Equal(t, types.MergeRule{SourceName: "Financas", CanonicalName: "Finanças", Scope: types.ScopeParent}, plan.Rules[0])

	// Planning never closes the case
	assert.Equal(t, StateChildrenTriaged, c.State())
}

func TestPlanChildMerge(t *testing.T) {
	c, _ := openCase(t, KindChild, "c3", "c4")
	require.NoError(t, c.AssignParent("p3"))
	require.NoError(t, c.SelectReasons(ReasonGrammaticalVariation))

	plan, err := c.Plan()
	require.NoError(t, err)

	assert.Equal(t, []string{"c3", "c4"}, plan.Reparent, "target is reparented too")
	assert.Equal(t, "p3", plan.NewParentID)
	assert.Empty(t, plan.ClearParent)
	assert.Equal(t, []string{"c4"}, plan.Delete)
	require.Len(t, plan.Rules, 1)
	assert.Equal(t, "Consultas", plan.Rules[0].SourceName)
	assert.Equal(t, "Consulta", plan.Rules[0].CanonicalName)
	assert.Equal(t, types.ScopeChild, plan.Rules[0].Scope)
}

func TestPlanSkipsIdentityRules(t *testing.T) {
	store := newMockStorage(
		parentTag("a", "Vendas"),
		parentTag("b", "Vendas"),
		parentTag("c", "vendas"),
	)
	c, err := NewController(store).Open(context.Background(), KindParent, []string{"a", "b", "c"}, nil)
	require.NoError(t, err)
	require.NoError(t, c.SelectReasons(ReasonSpellingVariation))

	plan, err := c.Plan()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, plan.Delete)
	require.Len(t, plan.Rules, 1)
	assert.Equal(t, "vendas", plan.Rules[0].SourceName)
}

func TestPlanValidation(t *testing.T) {
	t.Run("child merge without parent", func(t *testing.T) {
		c, _ := openCase(t, KindChild, "c3", "c4")
		require.NoError(t, c.SelectReasons(ReasonTypo))
		_, err := c.Plan()
		assert.ErrorIs(t, err, ErrNoParent)
	})

	t.Run("child merge without reason", func(t *testing.T) {
		c, _ := openCase(t, KindChild, "c3", "c4")
		require.NoError(t, c.AssignParent("p3"))
		_, err := c.Plan()
		assert.ErrorIs(t, err, ErrNoReason)
	})

	t.Run("parent merge without reason", func(t *testing.T) {
		c, _ := openCase(t, KindParent, "p1", "p2")
		_, err := c.Plan()
		assert.ErrorIs(t, err, ErrNoReason)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "commit", ve.Op)
	})
}

func TestClosedCaseRejectsEverything(t *testing.T) {
	c, _ := openCase(t, KindParent, "p1", "p2")
	c.state = StateRejected

	assert.ErrorIs(t, c.SetTarget("p2"), ErrCaseClosed)
	assert.ErrorIs(t, c.ToggleReason(ReasonTypo), ErrCaseClosed)
	assert.ErrorIs(t, c.SelectReasons(ReasonTypo), ErrCaseClosed)
	assert.ErrorIs(t, c.SetRationale("x"), ErrCaseClosed)
	assert.ErrorIs(t, c.ToggleChild("c1"), ErrCaseClosed)
	_, err := c.Plan()
	assert.ErrorIs(t, err, ErrCaseClosed)
	assert.Equal(t, StateRejected, c.State())
}

func TestParseReasons(t *testing.T) {
	reasons, err := ParseReasons([]string{" Typo", "synonym"})
	require.NoError(t, err)
	assert.Equal(t, []Reason{ReasonTypo, ReasonSynonym}, reasons)

	_, err = ParseReasons([]string{"typo", "mood"})
	assert.Error(t, err)

	assert.Len(t, AllReasons(), 7)
}
