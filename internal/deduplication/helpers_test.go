package deduplication

import (
	"github.com/steveyegge/taxon/internal/types"
)

func parentTag(id, name string) types.Tag {
	return types.Tag{ID: id, Name: name, Kind: types.KindParent, Source: types.SourceAI}
}

func childTag(id, name, parentID string) types.Tag {
	return types.Tag{
		ID:       id,
		Name:     name,
		Kind:     types.KindChild,
		Source:   types.SourceAI,
		ParentID: types.StringPtr(parentID),
	}
}

// testConfig returns the default config without a debounce delay.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DebounceDelay = 0
	return cfg
}
