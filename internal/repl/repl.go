// Package repl implements the interactive conflict-resolution shell behind
// "taxon resolve".
package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/steveyegge/taxon/internal/deduplication"
	"github.com/steveyegge/taxon/internal/resolution"
	"github.com/steveyegge/taxon/internal/storage"
	"github.com/steveyegge/taxon/internal/types"
)

// REPL represents the interactive shell
type REPL struct {
	store    storage.Storage
	engine   *deduplication.Engine
	ctrl     *resolution.Controller
	out      io.Writer
	history  string
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler

	// results is the detector snapshot conflict references point into
	results    deduplication.Results
	childPairs []types.SimilarChildPair
	current    *resolution.Case
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Store      storage.Storage
	Engine     *deduplication.Engine
	Controller *resolution.Controller
	// Out defaults to stdout
	Out io.Writer
	// HistoryFile keeps history in memory when empty
	HistoryFile string
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	r := &REPL{
		store:    cfg.Store,
		engine:   cfg.Engine,
		ctrl:     cfg.Controller,
		out:      out,
		history:  cfg.HistoryFile,
		ctx:      context.Background(),
		commands: make(map[string]CommandHandler),
	}

	// Register built-in commands
	r.registerCommands()

	return r, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("taxon> "),
		HistoryFile:       r.history,
		AutoComplete:      r.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.rl = rl
	r.out = rl.Stdout()

	r.printWelcome()
	if err := r.cmdScan(nil); err != nil {
		r.printError(err)
	}

	// Main loop
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				// Ctrl+C - just show prompt again
				continue
			} else if err == io.EOF {
				// Ctrl+D - exit
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if err == io.EOF {
				// Exit command - graceful shutdown
				return nil
			}
			r.printError(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.out, "%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit

	r.commands["scan"] = r.cmdScan
	r.commands["list"] = r.cmdList
	r.commands["status"] = r.cmdStatus

	r.commands["open"] = r.cmdOpen
	r.commands["show"] = r.cmdShow
	r.commands["target"] = r.cmdTarget
	r.commands["parent"] = r.cmdParent
	r.commands["reason"] = r.cmdReason
	r.commands["reasons"] = r.cmdReasons
	r.commands["toggle"] = r.cmdToggle
	r.commands["note"] = r.cmdNote
	r.commands["commit"] = r.cmdCommit
	r.commands["reject"] = r.cmdReject

	r.commands["adopt"] = r.cmdAdopt
	r.commands["delete"] = r.cmdDelete
	r.commands["purge"] = r.cmdPurge
}

func (r *REPL) commandNames() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		if name != "?" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// completer completes command names, and reason names after "reason"
func (r *REPL) completer() *readline.PrefixCompleter {
	var reasons []readline.PrefixCompleterInterface
	for _, reason := range resolution.AllReasons() {
		reasons = append(reasons, readline.PcItem(string(reason)))
	}

	var items []readline.PrefixCompleterInterface
	for _, name := range r.commandNames() {
		switch name {
		case "reason", "delete", "purge":
			items = append(items, readline.PcItem(name, reasons...))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("taxon resolve"))
	fmt.Fprintln(r.out, "Review duplicate, similar and orphaned tags one case at a time")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")
	fmt.Fprintln(r.out)
}

func (r *REPL) printError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"scan", "Recompute every conflict view and list it"},
		{"list", "List the conflicts found by the last scan"},
		{"status", "Show conflict counts"},
		{"", ""},
		{"open <ref>", "Open a case (d1 duplicate, s1 semantic, c1 similar children)"},
		{"show", "Show the open case"},
		{"target <tag-id>", "Choose the surviving tag"},
		{"parent <tag-id>", "Choose the unifying parent of a child merge"},
		{"reason <reason>...", "Toggle merge reasons"},
		{"reasons", "List the reason taxonomy"},
		{"toggle <child-id>...", "Move children between migrate and orphan"},
		{"note <text>", "Record a rationale"},
		{"commit", "Apply the open case"},
		{"reject [text]", "Dismiss the open case"},
		{"", ""},
		{"adopt <o-ref> <parent-id>", "Give an orphan a new parent"},
		{"delete <o-ref> <reason>...", "Delete one orphan"},
		{"purge [reason]...", "Delete every orphan"},
		{"", ""},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the shell"},
	}

	for _, cmd := range commands {
		if cmd.name == "" {
			fmt.Fprintln(r.out)
			continue
		}
		fmt.Fprintf(r.out, "  %-28s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Fprintln(r.out)
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	if r.rl != nil {
		r.rl.Close()
	}
	return io.EOF // Signal to exit the loop
}
