package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taxon/internal/resolution"
	"github.com/steveyegge/taxon/internal/taxonomyio"
)

const fixture = `
version: 1
tags:
  - {id: p1, name: Finanças, kind: parent}
  - {id: p2, name: Financas, kind: parent}
  - {id: p3, name: Saúde, kind: parent}
  - {id: c1, name: Impostos, kind: child, parent_id: p2}
  - {id: c2, name: Salário, kind: child, parent_id: p2}
  - {id: c3, name: Consulta, kind: child, parent_id: p3}
  - {id: c4, name: Consultas, kind: child, parent_id: p3}
  - {id: o1, name: Condomínio, kind: child, parent_id: gone}
`

type cli struct {
	t    *testing.T
	dir  string
	base []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	color.NoColor = true

	dir := t.TempDir()
	cfg := filepath.Join(dir, ".taxon.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log_level: error\nactor: tester\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixture.yaml"), []byte(fixture), 0o644))

	return &cli{
		t:    t,
		dir:  dir,
		base: []string{"--config", cfg, "--db", filepath.Join(dir, "taxon.db"), "--backend", "sqlite"},
	}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, c.base...))

	err := rootCmd.ExecuteContext(context.Background())
	if closeErr := closeStore(); err == nil {
		err = closeErr
	}
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "taxon %v\n%s", args, out)
	return out
}

func TestCLIWorkflow(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("import", filepath.Join(c.dir, "fixture.yaml"))
	assert.Contains(t, out, "Imported 8 tag(s)")

	out = c.mustRun("scan")
	assert.Contains(t, out, "Exact duplicates")
	assert.Contains(t, out, "Finanças [p1 p2]")
	assert.Contains(t, out, "Consulta ~ Consultas")
	assert.Contains(t, out, "missing parent gone")

	out = c.mustRun("merge", "p1", "p2", "--orphan", "c2", "--reason", "spelling_variation", "--note", "accent")
	assert.Contains(t, out, `Merged 1 tag(s) into "Finanças"`)
	assert.Contains(t, out, "1 child(ren) migrated, 1 orphaned")

	out = c.mustRun("rules")
	assert.Contains(t, out, "Financas")
	assert.Contains(t, out, "x1")

	out = c.mustRun("decisions", "--action", "merge_parent")
	assert.Contains(t, out, "merge_parent")
	assert.Contains(t, out, "spelling_variation")
	assert.Contains(t, out, "accent")

	out = c.mustRun("orphans", "list")
	assert.Contains(t, out, "o1")
	assert.Contains(t, out, "(missing parent gone)")
	assert.Contains(t, out, "c2")
	assert.Contains(t, out, "(no parent)")

	_, err := c.run("orphans", "delete", "o1")
	assert.ErrorIs(t, err, resolution.ErrNoReason)

	out = c.mustRun("orphans", "bulk-delete", "--all", "-r", "generalization")
	assert.Contains(t, out, "Deleted 2 orphan(s)")

	exported := filepath.Join(c.dir, "out.json")
	c.mustRun("export", exported)
	snap, err := taxonomyio.Load(exported)
	require.NoError(t, err)
	assert.Len(t, snap.Tags, 5)
	require.Len(t, snap.Rules, 1)
	assert.Equal(t, "Finanças", snap.Rules[0].CanonicalName)
}

func TestCLIMergeErrors(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", filepath.Join(c.dir, "fixture.yaml"))

	_, err := c.run("reject", "p1", "zz")
	assert.ErrorIs(t, err, resolution.ErrUnknownTag)

	_, err = c.run("reject", "p1", "c1", "--kind", "parent")
	assert.ErrorIs(t, err, resolution.ErrKindMismatch)
}

func TestCLIInvalidConfig(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("rules", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	// flags persist between executions of the same command tree
	_, err = c.run("rules", "--log-level", "error")
	assert.NoError(t, err)
}
