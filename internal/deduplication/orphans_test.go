package deduplication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taxon/internal/types"
)

func TestFindOrphans(t *testing.T) {
	orphan := childTag("c2", "Hotel", "deleted-parent")
	orphan.Confidence = types.FloatPtr(0.82)
	orphan.DocumentID = types.StringPtr("doc-7")

	tags := []types.Tag{
		parentTag("p1", "Viagens"),
		childTag("c1", "Passagem", "p1"),
		orphan,
		childTag("c3", "Sub", "c1"),
		{ID: "c4", Name: "Solto", Kind: types.KindChild},
		{ID: "c5", Name: "Vazio", Kind: types.KindChild, ParentID: types.StringPtr("")},
	}

	orphans := FindOrphans(tags)
	require.Len(t, orphans, 4)

	assert.Equal(t, "c2", orphans[0].TagID)
	assert.Equal(t, "Hotel", orphans[0].Name)
	assert.Equal(t, "deleted-parent", orphans[0].MissingParentID)
	require.NotNil(t, orphans[0].Confidence)
	assert.Equal(t, 0.82, *orphans[0].Confidence)
	assert.Equal(t, types.SourceAI, orphans[0].Source)
	require.NotNil(t, orphans[0].DocumentID)
	assert.Equal(t, "doc-7", *orphans[0].DocumentID)

	// a parent reference that points at a child does not resolve
	assert.Equal(t, "c3", orphans[1].TagID)
	assert.Equal(t, "c1", orphans[1].MissingParentID)

	// children without any parent reference are orphans too
	assert.Equal(t, "c4", orphans[2].TagID)
	assert.Empty(t, orphans[2].MissingParentID)
	assert.Equal(t, "no parent", orphans[2].Cause())
	assert.Equal(t, "c5", orphans[3].TagID)
	assert.Empty(t, orphans[3].MissingParentID)
}

func TestFindOrphansClearedParent(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Finanças"),
		childTag("c1", "Impostos", "p1"),
		childTag("c2", "Salário", "p1"),
	}
	tags[2].ParentID = nil

	orphans := FindOrphans(tags)
	require.Len(t, orphans, 1)
	assert.Equal(t, "c2", orphans[0].TagID)
	assert.Equal(t, "Salário", orphans[0].Name)
	assert.Equal(t, "missing parent p1", types.OrphanedTag{MissingParentID: "p1"}.Cause())
}

func TestFindOrphansIgnoresTopLevelTags(t *testing.T) {
	orphans := FindOrphans([]types.Tag{
		parentTag("p1", "Viagens"),
		{ID: "p2", Name: "Lazer", Kind: types.KindParent, ParentID: types.StringPtr("")},
	})
	assert.Empty(t, orphans)
}

func TestFindOrphansNone(t *testing.T) {
	orphans := FindOrphans([]types.Tag{
		parentTag("p1", "Viagens"),
		childTag("c1", "Passagem", "p1"),
	})
	assert.NotNil(t, orphans)
	assert.Empty(t, orphans)
}

func TestFindOrphansAfterParentDeleted(t *testing.T) {
	tags := []types.Tag{
		parentTag("p1", "Viagens"),
		childTag("c1", "Passagem", "p1"),
		childTag("c2", "Hotel", "p1"),
	}
	require.Empty(t, FindOrphans(tags))

	orphans := FindOrphans(tags[1:])
	require.Len(t, orphans, 2)
	assert.Equal(t, "c1", orphans[0].TagID)
	assert.Equal(t, "c2", orphans[1].TagID)
}
