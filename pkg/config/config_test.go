package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/scalafilter/pkg/filter"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[filters]
disabled = ["logging", "suspicious"]
synthetic_bridges = true

[limits]
forwarder_max_nodes = 32

[log]
verbosity = 2
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Path)
	assert.True(t, c.Disables("logging"))
	assert.False(t, c.Disables("accessor"))
	assert.Equal(t, 2, c.Log.Verbosity)

	opts := c.FilterOptions()
	assert.Equal(t, []string{"logging", "suspicious"}, opts.Disabled)
	assert.True(t, opts.SyntheticBridges)
	assert.Equal(t, 32, opts.ForwarderMaxNodes)
	// missing keys keep their defaults
	assert.Equal(t, filter.DefaultOptions().AccessorMaxNodes, opts.AccessorMaxNodes)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[filters\n", "parse error"},
		{"unknown detector", "[filters]\ndisabled = [\"getter\"]\n", `unknown detector "getter"`},
		{"unknown key", "[limits]\nmax_nodes = 3\n", "unknown key limits.max_nodes"},
		{"negative limit", "[limits]\naccessor_max_nodes = -1\n", "accessor_max_nodes must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, c.Path)
	assert.NoError(t, c.Validate())
	assert.Equal(t, filter.DefaultOptions(), c.FilterOptions())
}
