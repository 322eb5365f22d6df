package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/taxon/internal/deduplication"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Detect duplicate, similar and orphaned tags",
	Long: `Run every detector once over the stored taxonomy.

Exact duplicates are top-level tags whose names match ignoring case and
accents. Similar parents and similar children are scored by edit distance.
Orphans are tags whose parent no longer exists. Tag ids are printed so they
can be passed to merge, reject and orphans.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		results, err := scanTaxonomy(cmd.Context(), engine)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	scanCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(scanCmd)
}

func printResults(w io.Writer, res deduplication.Results) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	total := len(res.DuplicateParentTags) + len(res.SemanticDuplicates) +
		len(res.SimilarChildTagsPerParent) + len(res.OrphanedTags)
	if total == 0 {
		fmt.Fprintf(w, "\n%s No conflicts found.\n\n", green("✓"))
		return
	}

	if len(res.DuplicateParentTags) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Exact duplicates"))
		for _, g := range res.DuplicateParentTags {
			fmt.Fprintf(w, "  %s %s\n", yellow(g.Name), gray(fmt.Sprint(g.TagIDs)))
		}
	}

	if len(res.SemanticDuplicates) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Similar parents"))
		for _, d := range res.SemanticDuplicates {
			fmt.Fprintf(w, "  %5.1f%%  %s ~ %s %s\n", d.Similarity, yellow(d.NameA), yellow(d.NameB), gray(fmt.Sprint(d.TagIDs)))
		}
	}

	if len(res.SimilarChildTagsPerParent) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Similar children"))
		for _, g := range res.SimilarChildTagsPerParent {
			fmt.Fprintf(w, "  %s\n", g.ParentName)
			for _, p := range g.Pairs {
				fmt.Fprintf(w, "    %5.1f%%  %s ~ %s %s\n", p.Similarity, yellow(p.A.Name), yellow(p.B.Name),
					gray(fmt.Sprintf("[%s %s]", p.A.ID, p.B.ID)))
			}
		}
	}

	if len(res.OrphanedTags) > 0 {
		fmt.Fprintf(w, "\n%s\n", cyan("Orphans"))
		for _, o := range res.OrphanedTags {
			fmt.Fprintf(w, "  %s %s\n", yellow(o.Name), gray(fmt.Sprintf("[%s, %s]", o.TagID, o.Cause())))
		}
	}

	if res.SkippedTags > 0 {
		fmt.Fprintf(w, "\n%s %d malformed tag(s) skipped\n", yellow("⚠"), res.SkippedTags)
	}
	fmt.Fprintln(w)
}
