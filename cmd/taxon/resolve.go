package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taxon/internal/repl"
	"github.com/steveyegge/taxon/internal/resolution"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Start the interactive conflict-resolution shell",
	Long: `Start an interactive shell that lists every conflict and walks through
resolving them one case at a time.

Type 'help' in the shell for available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		var history string
		if home, err := os.UserHomeDir(); err == nil {
			history = filepath.Join(home, ".taxon_history")
		}

		r, err := repl.New(&repl.Config{
			Store:       store,
			Engine:      engine,
			Controller:  newController(resolution.WithRefresher(engine)),
			HistoryFile: history,
		})
		if err != nil {
			return fmt.Errorf("failed to create shell: %w", err)
		}
		return r.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
