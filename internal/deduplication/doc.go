// Package deduplication finds duplicate and conflicting tags in a two-level
// taxonomy.
//
// # Overview
//
// The taxonomy is a flat list of tags. Top-level tags (kind "parent") group
// leaf tags (kind "child") through a weak parent reference. Over time the
// classifier and human admins produce near-identical categories ("Vendas" and
// "vendas", "Finanças" and "Financas") and children whose parent has been
// deleted. This package computes four views over a tag set:
//
//  1. DuplicateParentTags: top-level tags whose names fold to the same key
//  2. SemanticDuplicates: pairs of distinct top-level names scoring in [70, 100)
//  3. SimilarChildTagsPerParent: near-duplicate siblings under one parent, in [60, 100)
//  4. OrphanedTags: tags whose parent reference no longer resolves
//
// Scores come from the similarity package. A score of exactly 100 only ever
// means "same folded name", so a pair is reported as an exact duplicate or
// as a near duplicate, never both.
//
// # Engine
//
// The exact-duplicate and orphan views are cheap and are recomputed
// synchronously by every Engine.Update. The two pairwise views are quadratic,
// so they run in the background:
//
//   - Updates are debounced (DebounceDelay); a burst collapses into one run
//   - Every run gets a generation id; only the latest generation may publish
//   - Passes yield every PairChunkSize comparisons or ParentBatchSize parents
//     and stop as soon as a newer generation cancels them
//   - A failing or panicking pass leaves the previous pairwise results in place
//
// Readers call Results for the current snapshot, or Wait to block until a
// given generation settles.
//
// # Configuration
//
// Work caps bound the cost of one run:
//   - MaxSemanticNames: 100 distinct top-level names
//   - MaxParents: 50 parents examined for similar children
//   - MinChildrenPerParent / MaxChildrenPerParent: 2 and 50
//   - MaxPairsPerParent: 10 similar-child pairs per parent
//
// The similarity thresholds are constants. See DefaultConfig and
// ConfigFromEnv for the tunables.
//
// # Usage
//
//	engine, err := deduplication.NewEngine(deduplication.DefaultConfig(),
//	    deduplication.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	gen := engine.ForceRefresh(deduplication.NewInput(tags))
//	results, err := engine.Wait(ctx, gen)
package deduplication
