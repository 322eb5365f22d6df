package deduplication

import (
	"strings"
	"testing"
	"time"
)

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:    "no environment variables uses defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg Config) {
				if cfg != DefaultConfig() {
					t.Errorf("cfg = %v, want %v", cfg, DefaultConfig())
				}
			},
		},
		{
			name: "valid custom configuration",
			envVars: map[string]string{
				"TAXON_DEDUP_DEBOUNCE_MS":  "250",
				"TAXON_DEDUP_PAIR_CHUNK":   "40",
				"TAXON_DEDUP_PARENT_BATCH": "10",
				"TAXON_DEDUP_MAX_NAMES":    "200",
				"TAXON_DEDUP_MAX_PARENTS":  "25",
				"TAXON_DEDUP_MAX_CHILDREN": "80",
				"TAXON_DEDUP_MAX_PAIRS":    "5",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.DebounceDelay != 250*time.Millisecond {
					t.Errorf("DebounceDelay = %v, want 250ms", cfg.DebounceDelay)
				}
				if cfg.PairChunkSize != 40 {
					t.Errorf("PairChunkSize = %d, want 40", cfg.PairChunkSize)
				}
				if cfg.ParentBatchSize != 10 {
					t.Errorf("ParentBatchSize = %d, want 10", cfg.ParentBatchSize)
				}
				if cfg.MaxSemanticNames != 200 {
					t.Errorf("MaxSemanticNames = %d, want 200", cfg.MaxSemanticNames)
				}
				if cfg.MaxParents != 25 {
					t.Errorf("MaxParents = %d, want 25", cfg.MaxParents)
				}
				if cfg.MaxChildrenPerParent != 80 {
					t.Errorf("MaxChildrenPerParent = %d, want 80", cfg.MaxChildrenPerParent)
				}
				if cfg.MaxPairsPerParent != 5 {
					t.Errorf("MaxPairsPerParent = %d, want 5", cfg.MaxPairsPerParent)
				}
			},
		},
		{
			name:    "non-numeric value",
			envVars: map[string]string{"TAXON_DEDUP_PAIR_CHUNK": "many"},
			wantErr: true,
		},
		{
			name:    "value fails validation",
			envVars: map[string]string{"TAXON_DEDUP_PAIR_CHUNK": "0"},
			wantErr: true,
		},
		{
			name:    "debounce too large",
			envVars: map[string]string{"TAXON_DEDUP_DEBOUNCE_MS": "120000"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg, err := ConfigFromEnv()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConfigFromEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero debounce allowed", func(c *Config) { c.DebounceDelay = 0 }, ""},
		{"negative debounce", func(c *Config) { c.DebounceDelay = -time.Second }, "debounce_delay"},
		{"zero parent batch", func(c *Config) { c.ParentBatchSize = 0 }, "parent_batch_size"},
		{"one name", func(c *Config) { c.MaxSemanticNames = 1 }, "max_semantic_names"},
		{"min children below two", func(c *Config) { c.MinChildrenPerParent = 1 }, "min_children_per_parent"},
		{"max below min", func(c *Config) { c.MaxChildrenPerParent = 1 }, "max_children_per_parent"},
		{"zero pairs", func(c *Config) { c.MaxPairsPerParent = 0 }, "max_pairs_per_parent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	for _, want := range []string{"Debounce: 500ms", "PairChunk: 20", "MaxNames: 100", "Children: 2-50"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
