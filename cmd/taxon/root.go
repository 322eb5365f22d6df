package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steveyegge/taxon/internal/deduplication"
	"github.com/steveyegge/taxon/internal/events"
	"github.com/steveyegge/taxon/internal/resolution"
	"github.com/steveyegge/taxon/internal/storage"
)

const version = "0.1.0"

var (
	store     storage.Storage
	logger    zerolog.Logger
	decisions *events.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taxon",
	Short: "Find and resolve duplicate tags in a category taxonomy",
	Long: `taxon keeps a two-level category taxonomy clean.

It detects exact duplicates, near-duplicate parents, similar sibling tags and
orphans, and walks an admin through merging, adopting or deleting them. Every
decision is logged and every merge teaches the classifier a merge rule.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		logger = newLogger(appConfig)

		if cmd.Annotations["store"] == "none" {
			return nil
		}

		var err error
		store, err = storage.NewStorage(cmd.Context(), &storage.Config{
			Backend: appConfig.Backend,
			Path:    appConfig.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		decisions = events.NewLogger(store, events.WithZerolog(logger))
		logger.Debug().Str("backend", appConfig.Backend).Str("db", appConfig.DB).Msg("storage opened")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStore()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./.taxon.yaml or $HOME/.taxon.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path (\":memory:\" for a throwaway store)")
	rootCmd.PersistentFlags().String("backend", "", "storage backend (sqlite or memory)")
	rootCmd.PersistentFlags().String("actor", "", "name recorded on decisions")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// closeStore drains the decision log before closing the store. It runs
// after every command, including failed ones.
func closeStore() error {
	if store == nil {
		return nil
	}
	if decisions != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := decisions.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("decision log not fully written")
		}
		if stats := decisions.Stats(); stats.Dropped+stats.Failed > 0 {
			logger.Warn().
				Uint64("dropped", stats.Dropped).
				Uint64("failed", stats.Failed).
				Msg("some decisions were not recorded")
		}
		decisions = nil
	}
	err := store.Close()
	store = nil
	return err
}

// newEngine builds a similarity engine from TAXON_DEDUP_* settings
func newEngine() (*deduplication.Engine, error) {
	cfg, err := deduplication.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("config", cfg.String()).Msg("similarity engine configured")
	return deduplication.NewEngine(cfg, deduplication.WithLogger(logger))
}

// newController builds a resolution controller wired to the decision log
func newController(opts ...resolution.Option) *resolution.Controller {
	opts = append([]resolution.Option{
		resolution.WithRecorder(decisions),
		resolution.WithLogger(logger),
		resolution.WithActor(appConfig.Actor),
	}, opts...)
	return resolution.NewController(store, opts...)
}

// scanTaxonomy runs every detector once and waits for the result
func scanTaxonomy(ctx context.Context, engine *deduplication.Engine) (deduplication.Results, error) {
	tags, err := store.ListTags(ctx)
	if err != nil {
		return deduplication.Results{}, fmt.Errorf("failed to list tags: %w", err)
	}
	return engine.Wait(ctx, engine.ForceRefresh(deduplication.NewInput(tags)))
}
