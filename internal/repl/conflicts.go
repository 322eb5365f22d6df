package repl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/steveyegge/taxon/internal/deduplication"
	"github.com/steveyegge/taxon/internal/types"
)

// Conflict reference prefixes used by list, open, adopt and delete
const (
	refDuplicate = 'd'
	refSemantic  = 's'
	refChild     = 'c'
	refOrphan    = 'o'
)

// cmdScan forces a full recomputation and lists the result
func (r *REPL) cmdScan(args []string) error {
	if err := r.reload(); err != nil {
		return err
	}
	return r.cmdList(nil)
}

// reload recomputes every view from the store without the debounce delay
func (r *REPL) reload() error {
	tags, err := r.store.ListTags(r.ctx)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}
	gen := r.engine.ForceRefresh(deduplication.NewInput(tags))
	results, err := r.engine.Wait(r.ctx, gen)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	r.setResults(results)
	return nil
}

func (r *REPL) setResults(results deduplication.Results) {
	r.results = results
	r.childPairs = r.childPairs[:0]
	for _, g := range results.SimilarChildTagsPerParent {
		r.childPairs = append(r.childPairs, g.Pairs...)
	}
}

// cmdList prints every conflict of the last scan with its reference
func (r *REPL) cmdList(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	res := r.results

	if r.total() == 0 {
		fmt.Fprintf(r.out, "\n%s No conflicts found.\n\n", green("✓"))
		return nil
	}

	if len(res.DuplicateParentTags) > 0 {
		fmt.Fprintf(r.out, "\n%s\n", cyan("Exact duplicates"))
		for i, g := range res.DuplicateParentTags {
			fmt.Fprintf(r.out, "  %s  %s %s\n", yellow(ref(refDuplicate, i)), g.Name, gray(fmt.Sprintf("x%d", g.Count)))
		}
	}
	if len(res.SemanticDuplicates) > 0 {
		fmt.Fprintf(r.out, "\n%s\n", cyan("Similar parents"))
		for i, d := range res.SemanticDuplicates {
			fmt.Fprintf(r.out, "  %s  %s ~ %s %s\n", yellow(ref(refSemantic, i)), d.NameA, d.NameB, gray(percent(d.Similarity)))
		}
	}
	if len(r.childPairs) > 0 {
		fmt.Fprintf(r.out, "\n%s\n", cyan("Similar children"))
		for i, p := range r.childPairs {
			fmt.Fprintf(r.out, "  %s  %s ~ %s %s\n", yellow(ref(refChild, i)), p.A.Name, p.B.Name, gray(percent(p.Similarity)))
		}
	}
	if len(res.OrphanedTags) > 0 {
		fmt.Fprintf(r.out, "\n%s\n", cyan("Orphans"))
		for i, o := range res.OrphanedTags {
			fmt.Fprintf(r.out, "  %s  %s %s\n", yellow(ref(refOrphan, i)), o.Name, gray("["+o.Cause()+"]"))
		}
	}
	fmt.Fprintln(r.out)
	return nil
}

// cmdStatus shows conflict counts
func (r *REPL) cmdStatus(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	res := r.engine.Results()

	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Taxonomy Status"))
	fmt.Fprintf(r.out, "  Exact duplicates  %d\n", len(res.DuplicateParentTags))
	fmt.Fprintf(r.out, "  Similar parents   %d\n", len(res.SemanticDuplicates))
	fmt.Fprintf(r.out, "  Similar children  %d\n", countPairs(res.SimilarChildTagsPerParent))
	fmt.Fprintf(r.out, "  Orphans           %d\n", len(res.OrphanedTags))
	if res.SkippedTags > 0 {
		fmt.Fprintf(r.out, "  Skipped           %d malformed tags\n", res.SkippedTags)
	}
	if res.IsCalculating {
		fmt.Fprintf(r.out, "\n  %s similarity results are being recalculated\n", yellow("⚡"))
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *REPL) total() int {
	res := r.results
	return len(res.DuplicateParentTags) + len(res.SemanticDuplicates) + len(r.childPairs) + len(res.OrphanedTags)
}

// orphan resolves an o<n> reference
func (r *REPL) orphan(s string) (types.OrphanedTag, error) {
	kind, idx, err := parseRef(s)
	if err != nil {
		return types.OrphanedTag{}, err
	}
	if kind != refOrphan {
		return types.OrphanedTag{}, fmt.Errorf("%s is not an orphan reference", s)
	}
	if idx >= len(r.results.OrphanedTags) {
		return types.OrphanedTag{}, fmt.Errorf("no orphan %s (run 'list')", s)
	}
	return r.results.OrphanedTags[idx], nil
}

func ref(kind byte, idx int) string {
	return string(kind) + strconv.Itoa(idx+1)
}

// parseRef splits "s3" into ('s', 2)
func parseRef(s string) (byte, int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("invalid reference %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid reference %q", s)
	}
	switch s[0] {
	case refDuplicate, refSemantic, refChild, refOrphan:
		return s[0], n - 1, nil
	}
	return 0, 0, fmt.Errorf("invalid reference %q", s)
}

func percent(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64) + "%"
}

func countPairs(groups []types.SimilarChildGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Pairs)
	}
	return n
}
