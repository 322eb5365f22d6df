package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/taxon/internal/deduplication"
	"github.com/steveyegge/taxon/internal/resolution"
	"github.com/steveyegge/taxon/internal/types"
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List and resolve tags whose parent no longer exists",
}

var orphansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orphaned tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		orphans, err := listOrphans(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(orphans) == 0 {
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Fprintf(w, "%s No orphans.\n", green("✓"))
			return nil
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, o := range orphans {
			fmt.Fprintf(w, "  %-10s %s %s\n", o.TagID, o.Name, gray("("+o.Cause()+")"))
		}
		return nil
	},
}

var orphansAdoptCmd = &cobra.Command{
	Use:   "adopt <orphan-id> <parent-id>",
	Short: "Move an orphan under an existing parent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		orphan, err := findOrphan(ctx, args[0])
		if err != nil {
			return err
		}
		d, err := orphanDecision(cmd)
		if err != nil {
			return err
		}
		if err := newController().AdoptOrphan(ctx, orphan, args[1], d); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Adopted %q under %s\n", green("✓"), orphan.Name, args[1])
		return nil
	},
}

var orphansDeleteCmd = &cobra.Command{
	Use:   "delete <orphan-id>",
	Short: "Delete one orphan (requires --reason)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		orphan, err := findOrphan(ctx, args[0])
		if err != nil {
			return err
		}
		d, err := orphanDecision(cmd)
		if err != nil {
			return err
		}
		if err := newController().DeleteOrphan(ctx, orphan, d); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %q\n", green("✓"), orphan.Name)
		return nil
	},
}

var orphansBulkDeleteCmd = &cobra.Command{
	Use:   "bulk-delete [orphan-id]...",
	Short: "Delete the listed orphans, or every orphan with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		all, err := listOrphans(ctx)
		if err != nil {
			return err
		}

		selected := all
		if everything, _ := cmd.Flags().GetBool("all"); !everything {
			selected = nil
			byID := make(map[string]types.OrphanedTag, len(all))
			for _, o := range all {
				byID[o.TagID] = o
			}
			for _, id := range args {
				o, ok := byID[id]
				if !ok {
					return fmt.Errorf("%s is not an orphan", id)
				}
				selected = append(selected, o)
			}
		}

		d, err := orphanDecision(cmd)
		if err != nil {
			return err
		}
		n, err := newController().BulkDeleteOrphans(ctx, selected, d)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %d orphan(s)\n", green("✓"), n)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{orphansAdoptCmd, orphansDeleteCmd, orphansBulkDeleteCmd} {
		cmd.Flags().StringSliceP("reason", "r", nil, "reason for the decision (repeatable)")
		cmd.Flags().String("note", "", "free-text rationale")
	}
	orphansBulkDeleteCmd.Flags().Bool("all", false, "delete every orphan")

	orphansCmd.AddCommand(orphansListCmd, orphansAdoptCmd, orphansDeleteCmd, orphansBulkDeleteCmd)
	rootCmd.AddCommand(orphansCmd)
}

func listOrphans(ctx context.Context) ([]types.OrphanedTag, error) {
	tags, err := store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return deduplication.FindOrphans(tags), nil
}

func findOrphan(ctx context.Context, id string) (types.OrphanedTag, error) {
	orphans, err := listOrphans(ctx)
	if err != nil {
		return types.OrphanedTag{}, err
	}
	for _, o := range orphans {
		if o.TagID == id {
			return o, nil
		}
	}
	return types.OrphanedTag{}, fmt.Errorf("%s is not an orphan", id)
}

func orphanDecision(cmd *cobra.Command) (resolution.OrphanDecision, error) {
	raw, _ := cmd.Flags().GetStringSlice("reason")
	reasons, err := resolution.ParseReasons(raw)
	if err != nil {
		return resolution.OrphanDecision{}, err
	}
	note, _ := cmd.Flags().GetString("note")
	return resolution.OrphanDecision{Reasons: reasons, Rationale: note}, nil
}
