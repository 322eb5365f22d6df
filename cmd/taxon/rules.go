package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/taxon/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List learned merge rules, most used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		if scope != "" && scope != types.ScopeParent && scope != types.ScopeChild {
			return fmt.Errorf("invalid scope %q (want %s or %s)", scope, types.ScopeParent, types.ScopeChild)
		}

		rules, err := store.ListMergeRules(cmd.Context(), scope)
		if err != nil {
			return fmt.Errorf("failed to list merge rules: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(rules) == 0 {
			fmt.Fprintln(w, "No merge rules yet.")
			return nil
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, r := range rules {
			fmt.Fprintf(w, "  %-6s %-30s → %-30s %s\n", r.Scope, r.SourceName, r.CanonicalName,
				gray(fmt.Sprintf("x%d", r.MergeCount)))
		}
		return nil
	},
}

func init() {
	rulesCmd.Flags().String("scope", "", "only rules of this scope (parent or child)")
	rootCmd.AddCommand(rulesCmd)
}
