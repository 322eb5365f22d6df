package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taxon/internal/storage/memory"
	"github.com/steveyegge/taxon/internal/storage/sqlite"
)

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	s, err := NewStorage(ctx, &Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
	_, ok := s.(PlanApplier)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	s, err = NewStorage(ctx, &Config{Path: filepath.Join(t.TempDir(), "taxon.db")})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.SQLiteStorage{}, s)
	_, ok = s.(PlanApplier)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	_, err = NewStorage(ctx, &Config{Backend: "postgres"})
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, ".taxon/taxon.db", cfg.Path)
}
