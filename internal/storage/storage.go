package storage

import (
	"context"
	"fmt"

	"github.com/steveyegge/taxon/internal/events"
	"github.com/steveyegge/taxon/internal/storage/memory"
	"github.com/steveyegge/taxon/internal/storage/sqlite"
	"github.com/steveyegge/taxon/internal/types"
)

// Storage defines the interface for taxonomy storage backends
type Storage interface {
	// Tags
	ListTags(ctx context.Context) ([]types.Tag, error)
	GetTag(ctx context.Context, id string) (*types.Tag, error)
	CreateTag(ctx context.Context, tag *types.Tag) error
	UpdateParent(ctx context.Context, tagID string, parentID *string) error
	DeleteTags(ctx context.Context, ids []string) (int, error)
	DeleteTagsByName(ctx context.Context, names []string) (int, error)
	ReparentChildren(ctx context.Context, fromParentID, toParentID string) (int, error)

	// Merge rules, keyed by (source name, scope)
	UpsertMergeRule(ctx context.Context, rule types.MergeRule) (*types.MergeRule, error)
	ListMergeRules(ctx context.Context, scope string) ([]types.MergeRule, error)

	// Decision log
	StoreDecisionEvent(ctx context.Context, event *events.DecisionEvent) error
	ListDecisionEvents(ctx context.Context, filter events.DecisionFilter) ([]*events.DecisionEvent, error)

	// Lifecycle
	Close() error
}

// PlanApplier is implemented by stores that can apply a whole merge plan
// atomically. Callers fall back to step-by-step application otherwise.
type PlanApplier interface {
	ApplyMergePlan(ctx context.Context, plan *types.MergePlan) error
}

// Backend names
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds database configuration
type Config struct {
	// Backend is "sqlite" or "memory"
	// Default: "sqlite"
	Backend string

	// Path is the SQLite database file path
	// Default: ".taxon/taxon.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendSQLite,
		Path:    ".taxon/taxon.db",
	}
}

// NewStorage creates the storage backend named by cfg
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case "", BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultConfig().Path
		}
		store, err := sqlite.New(ctx, path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %s or %s)", cfg.Backend, BackendSQLite, BackendMemory)
	}
}
