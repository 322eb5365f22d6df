package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/taxon/internal/resolution"
	"github.com/steveyegge/taxon/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <tag-id> <tag-id>...",
	Short: "Merge duplicate tags into one",
	Long: `Merge two or more tags into the first one (or --target).

Parent merges move the children of every merged parent under the target;
list children with --orphan to detach them instead. Child merges move every
tag under --parent. At least one --reason is required:
` + reasonList() + `
Every merge records a merge rule from each deleted name to the target name.`,
	Example: `  taxon merge p1 p2 --reason spelling_variation
  taxon merge c3 c4 --parent p3 --reason grammatical_variation
  taxon merge p1 p2 --orphan c9 --reason synonym --dry-run`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl := newController()

		c, err := openCase(ctx, cmd, ctrl, args)
		if err != nil {
			return err
		}

		if target, _ := cmd.Flags().GetString("target"); target != "" {
			if err := c.SetTarget(target); err != nil {
				return err
			}
		}
		if parent, _ := cmd.Flags().GetString("parent"); parent != "" {
			if err := c.AssignParent(parent); err != nil {
				return err
			}
		}
		orphans, _ := cmd.Flags().GetStringSlice("orphan")
		for _, id := range orphans {
			if err := c.SetDisposition(id, resolution.Orphan); err != nil {
				return err
			}
		}
		rawReasons, _ := cmd.Flags().GetStringSlice("reason")
		reasons, err := resolution.ParseReasons(rawReasons)
		if err != nil {
			return err
		}
		if err := c.SelectReasons(reasons...); err != nil {
			return err
		}
		if note, _ := cmd.Flags().GetString("note"); note != "" {
			if err := c.SetRationale(note); err != nil {
				return err
			}
		}

		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			plan, err := c.Plan()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}

		plan, err := ctrl.Commit(ctx, c)
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), c, plan)
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <tag-id> <tag-id>...",
	Short: "Record that flagged tags are not duplicates",
	Long:  `Dismiss a flagged conflict without changing the taxonomy. The dismissal is logged.`,
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctrl := newController()

		c, err := openCase(ctx, cmd, ctrl, args)
		if err != nil {
			return err
		}
		note, _ := cmd.Flags().GetString("note")
		if err := ctrl.Reject(ctx, c, note); err != nil {
			return err
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Dismissed %d tag(s)\n", gray("–"), len(c.Tags()))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{mergeCmd, rejectCmd} {
		cmd.Flags().String("kind", "", "case kind: parent, semantic or child (default from the first tag)")
		cmd.Flags().Float64("similarity", -1, "similarity score shown to the admin, if any")
		cmd.Flags().String("note", "", "free-text rationale")
	}
	mergeCmd.Flags().String("target", "", "surviving tag id (default: the first tag)")
	mergeCmd.Flags().String("parent", "", "unifying parent id for child merges")
	mergeCmd.Flags().StringSlice("orphan", nil, "children of merged parents to detach instead of migrate")
	mergeCmd.Flags().StringSliceP("reason", "r", nil, "reason for the merge (repeatable)")
	mergeCmd.Flags().Bool("dry-run", false, "print the merge plan without applying it")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(rejectCmd)
}

// openCase opens a case over ids, taking the kind from --kind or from the
// first tag
func openCase(ctx context.Context, cmd *cobra.Command, ctrl *resolution.Controller, ids []string) (*resolution.Case, error) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind := resolution.Kind(kindFlag)
	if kind == "" {
		first, err := store.GetTag(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		kind = resolution.KindParent
		if !first.IsTopLevel() {
			kind = resolution.KindChild
		}
	}

	var score *float64
	if s, _ := cmd.Flags().GetFloat64("similarity"); s >= 0 {
		score = types.FloatPtr(s)
	}
	return ctrl.Open(ctx, kind, ids, score)
}

func printPlan(w io.Writer, c *resolution.Case, plan *types.MergePlan) {
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s Merged %d tag(s) into %q\n", green("✓"), len(plan.Delete), plan.TargetName)
	if c.Kind == resolution.KindChild {
		fmt.Fprintf(w, "  moved under %s\n", plan.NewParentID)
	} else {
		fmt.Fprintf(w, "  %d child(ren) migrated, %d orphaned\n", len(plan.Reparent), len(plan.ClearParent))
	}
	for _, rule := range plan.Rules {
		fmt.Fprintf(w, "  %s %s → %s\n", gray("rule"), rule.SourceName, rule.CanonicalName)
	}
}

func reasonList() string {
	var s string
	for _, r := range resolution.AllReasons() {
		s += "  " + string(r) + "\n"
	}
	return s
}
