package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasMapLearnNeverOverwrites(t *testing.T) {
	m := NewAliasMap()

	require.True(t, m.Learn("products", "RBP.Products"))

	// Re-learning the same mapping is fine; remapping is refused.
	assert.True(t, m.Learn("products", "RBP.Products"))
	assert.False(t, m.Learn("products", "OPS.Excel"))

	canonical, ok := m.Lookup("products")
	require.True(t, ok)
	assert.Equal(t, "RBP.Products", canonical)
}

func TestAliasMapLookupNormalizes(t *testing.T) {
	m := NewAliasMap()
	require.True(t, m.Learn("OPS Excel", "OPS.Excel"))

	for _, term := range []string{"ops excel", "  OPS   EXCEL  ", "Ops Excel"} {
		canonical, ok := m.Lookup(term)
		require.True(t, ok, "term %q", term)
		assert.Equal(t, "OPS.Excel", canonical)
	}
}

func TestAliasMapOverridesWin(t *testing.T) {
	m := NewAliasMap()
	require.True(t, m.Learn("sheet", "RBP.Products"))

	m.SetOverrides([]Override{
		{Alias: "sheet", Table: "OPS.Excel", Reason: "the planning sheet is the ops excel"},
	})

	canonical, ok := m.Lookup("sheet")
	require.True(t, ok)
	assert.Equal(t, "OPS.Excel", canonical)

	o, ok := m.OverrideFor("SHEET")
	require.True(t, ok)
	assert.Equal(t, "the planning sheet is the ops excel", o.Reason)
}

func TestAliasMapEmptyAliasIgnored(t *testing.T) {
	m := NewAliasMap()
	assert.False(t, m.Learn("   ", "RBP.Products"))
	assert.Equal(t, 0, m.Len())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	content := `overrides:
  - alias: "the excel"
    table: "OPS.Excel"
    reason: "users say 'the excel' for the planning sheet"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "the excel", overrides[0].Alias)
	assert.Equal(t, "OPS.Excel", overrides[0].Table)
	assert.NotEmpty(t, overrides[0].Reason)
}

func TestLoadOverridesRejectsIncomplete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overrides:\n  - alias: \"x\"\n"), 0o600))

	_, err := LoadOverrides(path)
	require.Error(t, err)
}

func TestLoadOverridesMissingFile(t *testing.T) {
	_, err := LoadOverrides(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
