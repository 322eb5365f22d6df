package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/taxon/internal/taxonomyio"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load tags and merge rules from a YAML or JSON snapshot",
	Long: `Load tags and merge rules from a snapshot file.

Tags whose id already exists are skipped. Rules are upserted, so importing
the same rule twice bumps its merge count.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := taxonomyio.Load(args[0])
		if err != nil {
			return err
		}
		stats, err := taxonomyio.Import(cmd.Context(), store, snap)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %d tag(s), skipped %d existing, %d rule(s)\n",
			green("✓"), stats.Created, stats.Skipped, stats.Rules)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write every tag and merge rule to a snapshot",
	Long: `Write every tag and merge rule to a snapshot file.

The format follows the file extension (.json or YAML otherwise). Without a
file the snapshot is printed to stdout in the --format encoding.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := taxonomyio.Export(cmd.Context(), store)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			format, _ := cmd.Flags().GetString("format")
			return taxonomyio.Write(cmd.OutOrStdout(), taxonomyio.Format(format), snap)
		}
		if err := taxonomyio.Save(args[0], snap); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d tag(s) and %d rule(s) to %s\n",
			green("✓"), len(snap.Tags), len(snap.Rules), args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", string(taxonomyio.FormatYAML), "stdout encoding (yaml or json)")
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
