package deduplication

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Similarity cutoffs. These are hard limits, not configuration: a score of
// exactly 100 always belongs to exact-duplicate detection.
const (
	SemanticThreshold     = 70.0
	SimilarChildThreshold = 60.0
)

// Config holds configuration for the similarity engine
type Config struct {
	// DebounceDelay is how long the engine waits after the last Update
	// before starting the pairwise passes. Bursts of updates collapse into one run.
	// Default: 500ms
	DebounceDelay time.Duration

	// PairChunkSize is how many name pairs the semantic pass compares
	// before yielding to the scheduler.
	// Default: 20
	PairChunkSize int

	// ParentBatchSize is how many parents the similar-children pass
	// processes before yielding.
	// Default: 5
	ParentBatchSize int

	// MaxSemanticNames caps the distinct top-level names compared pairwise.
	// Default: 100
	MaxSemanticNames int

	// MaxParents caps the parents examined by the similar-children pass.
	// Default: 50
	MaxParents int

	// MinChildrenPerParent and MaxChildrenPerParent bound the fan-out of a
	// parent for it to be examined at all. Parents outside the range are skipped.
	// Defaults: 2 and 50
	MinChildrenPerParent int
	MaxChildrenPerParent int

	// MaxPairsPerParent caps the similar-child pairs reported per parent,
	// keeping the highest scores.
	// Default: 10
	MaxPairsPerParent int
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		DebounceDelay:        500 * time.Millisecond,
		PairChunkSize:        20,
		ParentBatchSize:      5,
		MaxSemanticNames:     100,
		MaxParents:           50,
		MinChildrenPerParent: 2,
		MaxChildrenPerParent: 50,
		MaxPairsPerParent:    10,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.DebounceDelay < 0 {
		return fmt.Errorf("debounce_delay cannot be negative (got %v)", c.DebounceDelay)
	}
	if c.DebounceDelay > time.Minute {
		return fmt.Errorf("debounce_delay too large (got %v, max 1m)", c.DebounceDelay)
	}
	if c.PairChunkSize <= 0 {
		return fmt.Errorf("pair_chunk_size must be positive (got %d)", c.PairChunkSize)
	}
	if c.ParentBatchSize <= 0 {
		return fmt.Errorf("parent_batch_size must be positive (got %d)", c.ParentBatchSize)
	}
	if c.MaxSemanticNames < 2 {
		return fmt.Errorf("max_semantic_names must be at least 2 (got %d)", c.MaxSemanticNames)
	}
	if c.MaxSemanticNames > 1000 {
		return fmt.Errorf("max_semantic_names too large (got %d, max 1000)", c.MaxSemanticNames)
	}
	if c.MaxParents <= 0 {
		return fmt.Errorf("max_parents must be positive (got %d)", c.MaxParents)
	}
	if c.MinChildrenPerParent < 2 {
		return fmt.Errorf("min_children_per_parent must be at least 2 (got %d)", c.MinChildrenPerParent)
	}
	if c.MaxChildrenPerParent < c.MinChildrenPerParent {
		return fmt.Errorf("max_children_per_parent (%d) must be >= min_children_per_parent (%d)",
			c.MaxChildrenPerParent, c.MinChildrenPerParent)
	}
	if c.MaxPairsPerParent <= 0 {
		return fmt.Errorf("max_pairs_per_parent must be positive (got %d)", c.MaxPairsPerParent)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Debounce: %v, PairChunk: %d, ParentBatch: %d, MaxNames: %d, "+
			"MaxParents: %d, Children: %d-%d, MaxPairs: %d}",
		c.DebounceDelay, c.PairChunkSize, c.ParentBatchSize, c.MaxSemanticNames,
		c.MaxParents, c.MinChildrenPerParent, c.MaxChildrenPerParent, c.MaxPairsPerParent,
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - TAXON_DEDUP_DEBOUNCE_MS: Debounce delay in milliseconds (default: 500)
//   - TAXON_DEDUP_PAIR_CHUNK: Pairs compared between yields (default: 20)
//   - TAXON_DEDUP_PARENT_BATCH: Parents processed between yields (default: 5)
//   - TAXON_DEDUP_MAX_NAMES: Top-level names compared pairwise (default: 100)
//   - TAXON_DEDUP_MAX_PARENTS: Parents examined for similar children (default: 50)
//   - TAXON_DEDUP_MAX_CHILDREN: Largest child list examined (default: 50)
//   - TAXON_DEDUP_MAX_PAIRS: Similar-child pairs kept per parent (default: 10)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := parseEnvDuration("TAXON_DEDUP_DEBOUNCE_MS", &cfg.DebounceDelay, time.Millisecond); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TAXON_DEDUP_PAIR_CHUNK", &cfg.PairChunkSize); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TAXON_DEDUP_PARENT_BATCH", &cfg.ParentBatchSize); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TAXON_DEDUP_MAX_NAMES", &cfg.MaxSemanticNames); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TAXON_DEDUP_MAX_PARENTS", &cfg.MaxParents); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TAXON_DEDUP_MAX_CHILDREN", &cfg.MaxChildrenPerParent); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TAXON_DEDUP_MAX_PAIRS", &cfg.MaxPairsPerParent); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a duration from an environment variable
// The multiplier converts the numeric value to a duration
// (e.g., for milliseconds: multiplier = time.Millisecond)
func parseEnvDuration(key string, dest *time.Duration, multiplier time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * multiplier
	return nil
}
