package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Exclude.Gitignore)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, ".atlas/cache", cfg.Cache.Dir)
	assert.Equal(t, 500, cfg.Temporal.MaxCommits)
	assert.Equal(t, 0.3, cfg.Temporal.MinCouplingRatio)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atlas.toml")
	content := `
[analysis]
workers = 4
personalized_pagerank = false

[output]
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.False(t, cfg.Analysis.PersonalizedPageRank)
	assert.Equal(t, "json", cfg.Output.Format)
	// Unspecified sections keep defaults.
	assert.Equal(t, 500, cfg.Temporal.MaxCommits)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atlas.yaml")
	content := `
temporal:
  max_commits: 100
  min_coupling_ratio: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Temporal.MaxCommits)
	assert.Equal(t, 0.5, cfg.Temporal.MinCouplingRatio)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.ShouldExclude(filepath.Join("vendor", "lib", "lib.go")))
	assert.True(t, cfg.ShouldExclude(filepath.Join("src", "node_modules", "x", "index.js")))
	assert.True(t, cfg.ShouldExclude("foo_test.go"))
	assert.True(t, cfg.ShouldExclude("go.sum"))
	assert.False(t, cfg.ShouldExclude(filepath.Join("internal", "server.go")))
}
