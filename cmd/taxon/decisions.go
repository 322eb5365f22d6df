package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/taxon/internal/events"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Show the decision log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := events.DecisionFilter{}
		if action, _ := cmd.Flags().GetString("action"); action != "" {
			filter.Action = events.ActionType(action)
			if !filter.Action.IsValid() {
				return fmt.Errorf("invalid action %q", action)
			}
		}
		if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
			filter.Since = time.Now().Add(-since)
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		evs, err := store.ListDecisionEvents(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list decisions: %w", err)
		}

		w := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(evs)
		}
		if len(evs) == 0 {
			fmt.Fprintln(w, "No decisions recorded.")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, e := range evs {
			outcome := green(e.UserDecision)
			if e.UserDecision == events.DecisionRejected {
				outcome = red(e.UserDecision)
			}
			names := make([]string, len(e.InputTags))
			for i, t := range e.InputTags {
				names[i] = t.Name
			}
			fmt.Fprintf(w, "%s  %-20s %-8s %s\n", gray(e.Timestamp.Format("2006-01-02 15:04")),
				e.Action, outcome, strings.Join(names, ", "))
			if len(e.Reasons) > 0 {
				fmt.Fprintf(w, "    reasons: %s\n", strings.Join(e.Reasons, ", "))
			}
			if e.Rationale != "" {
				fmt.Fprintf(w, "    note:    %s\n", e.Rationale)
			}
		}
		return nil
	},
}

func init() {
	decisionsCmd.Flags().String("action", "", "only this action type")
	decisionsCmd.Flags().Duration("since", 0, "only decisions newer than this (e.g. 24h)")
	decisionsCmd.Flags().Int("limit", 50, "maximum decisions to show (0 for all)")
	decisionsCmd.Flags().Bool("json", false, "print decisions as JSON")
	rootCmd.AddCommand(decisionsCmd)
}
