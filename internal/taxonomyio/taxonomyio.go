// Package taxonomyio reads and writes taxonomy snapshots as YAML or JSON
// files, and loads them into a store.
package taxonomyio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/taxon/internal/types"
)

// SnapshotVersion is the file format version written by Save
const SnapshotVersion = 1

// Format is a snapshot encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension. Anything that is
// not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Snapshot is the on-disk form of a taxonomy
type Snapshot struct {
	Version    int               `json:"version" yaml:"version"`
	ExportedAt time.Time         `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Tags       []types.Tag       `json:"tags" yaml:"tags"`
	Rules      []types.MergeRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Validate checks every tag and rule and rejects repeated tag ids
func (s *Snapshot) Validate() error {
	if s.Version > SnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported version %d", s.Version, SnapshotVersion)
	}
	seen := make(map[string]bool, len(s.Tags))
	for i := range s.Tags {
		if err := s.Tags[i].Validate(); err != nil {
			return fmt.Errorf("tag %d: %w", i, err)
		}
		if seen[s.Tags[i].ID] {
			return fmt.Errorf("tag %d: repeated id %q", i, s.Tags[i].ID)
		}
		seen[s.Tags[i].ID] = true
	}
	for i := range s.Rules {
		if err := s.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Read decodes and validates a snapshot
func Read(r io.Reader, format Format) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&snap)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&snap)
		if err == io.EOF {
			err = nil
		}
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s snapshot: %w", format, err)
	}

	if snap.Version == 0 {
		snap.Version = SnapshotVersion
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &snap, nil
}

// Write encodes snap in the given format
func Write(w io.Writer, format Format, snap *Snapshot) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encoding json snapshot: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encoding yaml snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml snapshot: %w", err)
		}
	default:
		return fmt.Errorf("unknown snapshot format %q", format)
	}
	return nil
}

// Load reads a snapshot file, picking the format from its extension
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return Read(f, FormatFromPath(path))
}

// Save writes a snapshot file atomically, picking the format from its
// extension
func Save(path string, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := Write(&buf, FormatFromPath(path), snap); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Source is what Export reads from
type Source interface {
	ListTags(ctx context.Context) ([]types.Tag, error)
	ListMergeRules(ctx context.Context, scope string) ([]types.MergeRule, error)
}

// Export captures the full taxonomy and every merge rule
func Export(ctx context.Context, src Source) (*Snapshot, error) {
	tags, err := src.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	rules, err := src.ListMergeRules(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list merge rules: %w", err)
	}
	return &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		Tags:       tags,
		Rules:      rules,
	}, nil
}

// Target is what Import writes to
type Target interface {
	ListTags(ctx context.Context) ([]types.Tag, error)
	CreateTag(ctx context.Context, tag *types.Tag) error
	UpsertMergeRule(ctx context.Context, rule types.MergeRule) (*types.MergeRule, error)
}

// ImportStats counts what Import did
type ImportStats struct {
	Created int
	Skipped int
	Rules   int
}

// Import creates every snapshot tag whose id is not already stored and
// upserts every rule. Existing tags are left untouched.
func Import(ctx context.Context, dst Target, snap *Snapshot) (ImportStats, error) {
	var stats ImportStats

	existing, err := dst.ListTags(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list tags: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t.ID] = true
	}

	for i := range snap.Tags {
		tag := snap.Tags[i].Clone()
		if have[tag.ID] {
			stats.Skipped++
			continue
		}
		if err := dst.CreateTag(ctx, &tag); err != nil {
			return stats, fmt.Errorf("failed to import tag %q: %w", tag.Name, err)
		}
		have[tag.ID] = true
		stats.Created++
	}

	for _, rule := range snap.Rules {
		rule.ID = ""
		if _, err := dst.UpsertMergeRule(ctx, rule); err != nil {
			return stats, fmt.Errorf("failed to import rule %q: %w", rule.SourceName, err)
		}
		stats.Rules++
	}
	return stats, nil
}
