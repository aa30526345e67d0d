package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := New()
	require.Equal(t, DefaultHashMaxPackedEntries, c.HashMaxPackedEntries())
	require.Equal(t, DefaultZSetMaxPackedValue, c.ZSetMaxPackedValue())
}

func TestSoftReconfigure(t *testing.T) {
	c := New()
	c.SetHashMaxPackedEntries(4)
	require.Equal(t, 4, c.HashMaxPackedEntries())
}

func TestLoadPartialYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hash_max_packed_entries: 8\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, c.HashMaxPackedEntries())
	require.Equal(t, DefaultZSetMaxPackedEntries, c.ZSetMaxPackedEntries())
}
