package deduplication

import (
	"context"
	"runtime"
	"sort"

	"github.com/rs/zerolog"

	"github.com/steveyegge/taxon/internal/similarity"
	"github.com/steveyegge/taxon/internal/types"
)

// YieldFunc is called at every chunk boundary of a pairwise pass. A non-nil
// return stops the pass and is returned to the caller.
type YieldFunc func() error

// CooperativeYield hands the processor back to the scheduler and reports
// whether ctx has been cancelled.
func CooperativeYield(ctx context.Context) YieldFunc {
	return func() error {
		runtime.Gosched()
		return ctx.Err()
	}
}

func noYield() error { return nil }

// FindExactDuplicates groups top-level tags whose names fold to the same
// key (case and accents ignored). Groups appear in order of first occurrence.
func FindExactDuplicates(tags []types.Tag) []types.DuplicateGroup {
	byKey := make(map[string]*types.DuplicateGroup)
	var order []string

	for _, t := range tags {
		if !t.IsTopLevel() {
			continue
		}
		key := similarity.Key(t.Name)
		if key == "" {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &types.DuplicateGroup{Name: t.Name, Key: key}
			byKey[key] = g
			order = append(order, key)
		}
		g.TagIDs = append(g.TagIDs, t.ID)
		g.Count++
	}

	groups := make([]types.DuplicateGroup, 0)
	for _, key := range order {
		if g := byKey[key]; g.Count >= 2 {
			groups = append(groups, *g)
		}
	}
	return groups
}

// FindSemanticDuplicates compares distinct top-level names pairwise and
// returns pairs scoring in [SemanticThreshold, 100), highest first.
// Only the first cfg.MaxSemanticNames distinct names are compared. yield is
// called after every cfg.PairChunkSize comparisons.
func FindSemanticDuplicates(tags []types.Tag, cfg Config, yield YieldFunc) ([]types.SemanticDuplicate, error) {
	if yield == nil {
		yield = noYield
	}

	idsByName := make(map[string][]string)
	var names []string
	for _, t := range tags {
		if !t.IsTopLevel() {
			continue
		}
		if _, seen := idsByName[t.Name]; !seen {
			names = append(names, t.Name)
		}
		idsByName[t.Name] = append(idsByName[t.Name], t.ID)
	}
	if len(names) > cfg.MaxSemanticNames {
		names = names[:cfg.MaxSemanticNames]
	}

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = similarity.Key(n)
	}

	results := make([]types.SemanticDuplicate, 0)
	compared := 0
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			score := similarity.ScoreKeys(keys[i], keys[j])
			if score >= SemanticThreshold && score < similarity.Max {
				ids := make([]string, 0, len(idsByName[names[i]])+len(idsByName[names[j]]))
				ids = append(ids, idsByName[names[i]]...)
				ids = append(ids, idsByName[names[j]]...)
				results = append(results, types.SemanticDuplicate{
					NameA:      names[i],
					NameB:      names[j],
					Similarity: score,
					TagIDs:     ids,
				})
			}

			compared++
			if compared%cfg.PairChunkSize == 0 {
				if err := yield(); err != nil {
					return nil, err
				}
			}
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Similarity > results[b].Similarity
	})
	return results, nil
}

// FindSimilarChildren looks for near-duplicate siblings under each of the
// first cfg.MaxParents top-level tags. Parents whose child count falls
// outside [MinChildrenPerParent, MaxChildrenPerParent] are skipped. Each
// group keeps at most cfg.MaxPairsPerParent pairs, highest first. yield is
// called after every cfg.ParentBatchSize parents.
func FindSimilarChildren(in Input, cfg Config, yield YieldFunc) ([]types.SimilarChildGroup, error) {
	if yield == nil {
		yield = noYield
	}

	var parents []types.Tag
	seen := make(map[string]bool)
	for _, t := range in.Tags {
		if !t.IsTopLevel() || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		parents = append(parents, t)
		if len(parents) == cfg.MaxParents {
			break
		}
	}

	groups := make([]types.SimilarChildGroup, 0)
	for idx, parent := range parents {
		children := in.ChildrenByParent[parent.ID]
		if len(children) >= cfg.MinChildrenPerParent && len(children) <= cfg.MaxChildrenPerParent {
			if pairs := similarChildPairs(children, cfg.MaxPairsPerParent); len(pairs) > 0 {
				groups = append(groups, types.SimilarChildGroup{
					ParentID:   parent.ID,
					ParentName: parent.Name,
					Pairs:      pairs,
				})
			}
		}

		if (idx+1)%cfg.ParentBatchSize == 0 {
			if err := yield(); err != nil {
				return nil, err
			}
		}
	}
	return groups, nil
}

func similarChildPairs(children []types.Tag, limit int) []types.SimilarChildPair {
	keys := make([]string, len(children))
	for i, c := range children {
		keys[i] = similarity.Key(c.Name)
	}

	var pairs []types.SimilarChildPair
	for i := 0; i < len(children); i++ {
		for j := i + 1; j < len(children); j++ {
			score := similarity.ScoreKeys(keys[i], keys[j])
			if score >= SimilarChildThreshold && score < similarity.Max {
				pairs = append(pairs, types.SimilarChildPair{
					A:          children[i],
					B:          children[j],
					Similarity: score,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Similarity > pairs[b].Similarity
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// sanitizeInput drops malformed tags and repeated ids, logging a warning
// for each, and filters the child index to the surviving tags.
func sanitizeInput(in Input, logger zerolog.Logger) (Input, int) {
	valid := make([]types.Tag, 0, len(in.Tags))
	ids := make(map[string]bool, len(in.Tags))
	skipped := 0

	for i := range in.Tags {
		t := in.Tags[i]
		if err := t.Validate(); err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("skipping malformed tag")
			skipped++
			continue
		}
		if ids[t.ID] {
			logger.Warn().Str("tag_id", t.ID).Int("index", i).Msg("skipping tag with repeated id")
			skipped++
			continue
		}
		ids[t.ID] = true
		valid = append(valid, t)
	}

	if in.ChildrenByParent == nil {
		return NewInput(valid), skipped
	}

	index := make(map[string][]types.Tag, len(in.ChildrenByParent))
	for parentID, children := range in.ChildrenByParent {
		kept := make([]types.Tag, 0, len(children))
		seen := make(map[string]bool, len(children))
		for _, c := range children {
			if ids[c.ID] && !seen[c.ID] {
				seen[c.ID] = true
				kept = append(kept, c)
			}
		}
		if len(kept) > 0 {
			index[parentID] = kept
		}
	}
	return Input{Tags: valid, ChildrenByParent: index}, skipped
}
