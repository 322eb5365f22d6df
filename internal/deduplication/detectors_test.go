package deduplication

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taxon/internal/types"
)

func TestFindExactDuplicates(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Vendas"),
		parentTag("p2", "vendas"),
		parentTag("p3", "Saúde"),
		parentTag("p4", "Marketing"),
		parentTag("p5", "Saude"),
		parentTag("p6", "VENDAS"),
		childTag("c1", "Vendas", "p4"),
	}

	groups := FindExactDuplicates(tags)
	require.Len(t, groups, 2)

	assert.Equal(t, "Vendas", groups[0].Name)
	assert.Equal(t, "vendas", groups[0].Key)
	assert.Equal(t, []string{"p1", "p2", "p6"}, groups[0].TagIDs)
	assert.Equal(t, 3, groups[0].Count)

	assert.Equal(t, "Saúde", groups[1].Name)
	assert.Equal(t, []string{"p3", "p5"}, groups[1].TagIDs)
	assert.Equal(t, 2, groups[1].Count)
}

func TestFindExactDuplicatesNone(t *testing.T) {
	groups := FindExactDuplicates([]types.Tag{
		parentTag("p1", "Vendas"),
		parentTag("p2", "Marketing"),
		childTag("c1", "vendas", "p1"),
	})
	assert.NotNil(t, groups)
	assert.Empty(t, groups)

	assert.Empty(t, FindExactDuplicates(nil))
}

func TestFindSemanticDuplicates(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Finanças"),
		parentTag("p2", "Finanzas"),
		parentTag("p3", "Marketing"),
		parentTag("p4", "Marketting"),
		parentTag("p5", "Tecnologia"),
		parentTag("p6", "Finanças"),
		childTag("c1", "Marketings", "p3"),
	}

	pairs, err := FindSemanticDuplicates(tags, testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, "Marketing", pairs[0].NameA)
	assert.Equal(t, "Marketting", pairs[0].NameB)
	assert.InDelta(t, 90.0, pairs[0].Similarity, 1e-9)
	assert.Equal(t, []string{"p3", "p4"}, pairs[0].TagIDs)

	assert.Equal(t, "Finanças", pairs[1].NameA)
	assert.Equal(t, "Finanzas", pairs[1].NameB)
	assert.InDelta(t, 87.5, pairs[1].Similarity, 1e-9)
	assert.Equal(t, []string{"p1", "p6", "p2"}, pairs[1].TagIDs)
}

func TestFindSemanticDuplicatesExcludesExactKeys(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Vendas"),
		parentTag("p2", "vendas"),
		parentTag("p3", "Saúde"),
		parentTag("p4", "Saude"),
	}

	pairs, err := FindSemanticDuplicates(tags, testConfig(), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.Len(t, FindExactDuplicates(tags), 2)
}

func TestFindSemanticDuplicatesThreshold(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Viagem"),
		parentTag("p2", "Viagens"),
		parentTag("p3", "Energia"),
		parentTag("p4", "Energia Elétrica"),
	}

	pairs, err := FindSemanticDuplicates(tags, testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Viagem", pairs[0].NameA)
	assert.Equal(t, "Viagens", pairs[0].NameB)
	assert.GreaterOrEqual(t, pairs[0].Similarity, SemanticThreshold)
}

func TestFindSemanticDuplicatesNameCap(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Alpha"),
		parentTag("p2", "Beta"),
		parentTag("p3", "Marketing"),
		parentTag("p4", "Marketting"),
	}

	cfg := testConfig()
	cfg.MaxSemanticNames = 2
	pairs, err := FindSemanticDuplicates(tags, cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	cfg.MaxSemanticNames = 4
	pairs, err = FindSemanticDuplicates(tags, cfg, nil)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestFindSemanticDuplicatesYields(t *testing.T) {
	var tags []types.Tag
	for i := 0; i < 10; i++ {
		tags = append(tags, parentTag(fmt.Sprintf("p%d", i), fmt.Sprintf("Category %c", 'A'+i)))
	}

	cfg := testConfig()
	cfg.PairChunkSize = 5
	calls := 0
	_, err := FindSemanticDuplicates(tags, cfg, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	// 45 comparisons in chunks of 5
	assert.Equal(t, 9, calls)
}

func TestFindSemanticDuplicatesStopsOnYieldError(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Marketing"),
		parentTag("p2", "Marketting"),
		parentTag("p3", "Finanças"),
	}

	cfg := testConfig()
	cfg.PairChunkSize = 1
	stop := errors.New("stop")
	pairs, err := FindSemanticDuplicates(tags, cfg, func() error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Nil(t, pairs)
}

func TestFindSimilarChildren(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Folha"),
		childTag("c1", "Salário", "p1"),
		childTag("c2", "Salarios", "p1"),
		childTag("c3", "Impostos", "p1"),
		childTag("c4", "Imposto", "p1"),
		parentTag("p2", "Contas"),
		childTag("c5", "Água", "p2"),
		childTag("c6", "Luz", "p2"),
		parentTag("p3", "Viagens"),
		childTag("c7", "Hotel", "p3"),
	}

	groups, err := FindSimilarChildren(NewInput(tags), testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "p1", g.ParentID)
	assert.Equal(t, "Folha", g.ParentName)
	require.Len(t, g.Pairs, 2)
	assert.Equal(t, "c1", g.Pairs[0].A.ID)
	assert.Equal(t, "c2", g.Pairs[0].B.ID)
	assert.Equal(t, "c3", g.Pairs[1].A.ID)
	assert.Equal(t, "c4", g.Pairs[1].B.ID)
	for _, p := range g.Pairs {
		assert.InDelta(t, 87.5, p.Similarity, 1e-9)
	}
}

func TestFindSimilarChildrenExcludesIdenticalNames(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Folha"),
		childTag("c1", "Salário", "p1"),
		childTag("c2", "salario", "p1"),
	}

	groups, err := FindSimilarChildren(NewInput(tags), testConfig(), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindSimilarChildrenCaps(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Folha"),
		childTag("c1", "Salário", "p1"),
		childTag("c2", "Salarios", "p1"),
		childTag("c3", "Impostos", "p1"),
		childTag("c4", "Imposto", "p1"),
		parentTag("p2", "Compras"),
		childTag("c5", "Combustível", "p2"),
		childTag("c6", "Combustiveis", "p2"),
	}

	t.Run("pairs per parent", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxPairsPerParent = 1
		groups, err := FindSimilarChildren(NewInput(tags), cfg, nil)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		require.Len(t, groups[0].Pairs, 1)
		assert.Equal(t, "c1", groups[0].Pairs[0].A.ID)
	})

	t.Run("max children skips large parents", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxChildrenPerParent = 3
		groups, err := FindSimilarChildren(NewInput(tags), cfg, nil)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "p2", groups[0].ParentID)
	})

	t.Run("max parents", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxParents = 1
		groups, err := FindSimilarChildren(NewInput(tags), cfg, nil)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "p1", groups[0].ParentID)
	})
}

func TestFindSimilarChildrenYieldsPerBatch(t *testing.T) {
	var tags []types.Tag
	for i := 0; i < 12; i++ {
		tags = append(tags, parentTag(fmt.Sprintf("p%d", i), fmt.Sprintf("Parent %d", i)))
	}

	cfg := testConfig()
	cfg.ParentBatchSize = 5
	calls := 0
	_, err := FindSimilarChildren(NewInput(tags), cfg, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSanitizeInput(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Folha"),
		{ID: "bad", Name: "   ", Kind: types.KindParent},
		{ID: "nokind", Name: "Sem tipo"},
		childTag("c1", "Salário", "p1"),
		childTag("c1", "Salário repetido", "p1"),
		childTag("self", "Loop", "self"),
	}

	in, skipped := sanitizeInput(NewInput(tags), zerolog.Nop())
	assert.Equal(t, 4, skipped)
	require.Len(t, in.Tags, 2)
	assert.Equal(t, "p1", in.Tags[0].ID)
	assert.Equal(t, "c1", in.Tags[1].ID)
	require.Len(t, in.ChildrenByParent["p1"], 1)
	assert.Equal(t, "Salário", in.ChildrenByParent["p1"][0].Name)
	assert.NotContains(t, in.ChildrenByParent, "self")
}
