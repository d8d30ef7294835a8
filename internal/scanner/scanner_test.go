package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas/pkg/analyzer/callgraph"
	"github.com/codeatlas/atlas/pkg/config"
	"github.com/codeatlas/atlas/pkg/parser"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func scanPaths(t *testing.T, root string, cfg *config.Config) []string {
	t.Helper()
	files, err := New(cfg).Scan(root)
	require.NoError(t, err)
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return paths
}

func TestScanFindsSupportedLanguages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "app.py", "x = 1")
	writeFile(t, root, "web/index.ts", "export {}")
	writeFile(t, root, "README.md", "# readme")

	paths := scanPaths(t, root, config.DefaultConfig())
	assert.ElementsMatch(t, []string{"main.go", "app.py", filepath.Join("web", "index.ts")}, paths)
}

func TestScanClassifiesLanguage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")

	files, err := New(nil).Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, parser.LangGo, files[0].Language)
}

func TestScanExcludesConfiguredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "vendor/dep/dep.go", "package dep")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")

	paths := scanPaths(t, root, config.DefaultConfig())
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestScanExcludesTestPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "main_test.go", "package main")

	paths := scanPaths(t, root, config.DefaultConfig())
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestScanHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	writeFile(t, root, ".gitignore", "generated/\n")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "generated/gen.go", "package generated")

	paths := scanPaths(t, root, config.DefaultConfig())
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestGroupByLanguage(t *testing.T) {
	files := []callgraph.FileInfo{
		{Path: "a.go", Language: parser.LangGo},
		{Path: "b.go", Language: parser.LangGo},
		{Path: "c.py", Language: parser.LangPython},
	}

	groups := GroupByLanguage(files)
	assert.Len(t, groups[parser.LangGo], 2)
	assert.Len(t, groups[parser.LangPython], 1)
}

func TestFilterBySize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package a")
	writeFile(t, root, "big.go", string(make([]byte, 2048)))

	files := []callgraph.FileInfo{
		{Path: "small.go", Language: parser.LangGo},
		{Path: "big.go", Language: parser.LangGo},
	}

	kept, skipped := FilterBySize(root, files, 1024)
	require.Len(t, kept, 1)
	assert.Equal(t, "small.go", kept[0].Path)
	assert.Equal(t, 1, skipped)

	kept, skipped = FilterBySize(root, files, 0)
	assert.Len(t, kept, 2)
	assert.Zero(t, skipped)
}
