// Package lang provides per-language analyzers that turn a single source file
// into components and call relationships. Analyzers are pure over one file's
// bytes: they never read other files, and cross-file resolution happens later
// in the call-graph layer.
package lang

import (
	"path/filepath"
	"strings"

	"github.com/codeatlas/atlas/pkg/models"
	"github.com/codeatlas/atlas/pkg/parser"
)

// Result is the per-file output of a language analyzer.
type Result struct {
	Components    []*models.Component
	Relationships []models.CallRelationship
}

// Analyzer extracts components and call relationships from one file.
type Analyzer interface {
	// Language returns the language tag this analyzer handles.
	Language() parser.Language
	// Analyze parses content and returns the file's components and edges.
	// A parse or traversal failure returns an error and no partial output;
	// the caller skips the file and continues.
	Analyze(filePath string, content []byte, repoRoot string) (*Result, error)
}

// Registry maps language tags to analyzers. Adding a language means
// registering a new implementation, not editing a dispatcher.
type Registry struct {
	analyzers map[parser.Language]Analyzer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{analyzers: make(map[parser.Language]Analyzer)}
}

// Register adds an analyzer for its language tag.
func (r *Registry) Register(a Analyzer) {
	r.analyzers[a.Language()] = a
}

// RegisterAs adds an analyzer under an explicit tag, for grammars that serve
// multiple tags (e.g. the TSX grammar handling JSX).
func (r *Registry) RegisterAs(lang parser.Language, a Analyzer) {
	r.analyzers[lang] = a
}

// For returns the analyzer for a language tag.
func (r *Registry) For(lang parser.Language) (Analyzer, bool) {
	a, ok := r.analyzers[lang]
	return a, ok
}

// Languages returns the registered language tags.
func (r *Registry) Languages() []parser.Language {
	langs := make([]parser.Language, 0, len(r.analyzers))
	for l := range r.analyzers {
		langs = append(langs, l)
	}
	return langs
}

// DefaultRegistry returns a registry with all supported language analyzers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoAnalyzer())
	r.Register(NewPythonAnalyzer())

	ts := NewTypeScriptAnalyzer()
	r.Register(ts)
	r.RegisterAs(parser.LangTSX, ts)
	r.Register(NewJavaScriptAnalyzer())
	return r
}

// ModulePath derives a file's module path: path relative to the repository
// root, extension stripped, separators normalized to dots. Component IDs are
// built from it, so it must be stable across runs.
func ModulePath(filePath, repoRoot string) string {
	rel := RelativePath(filePath, repoRoot)
	ext := filepath.Ext(rel)
	rel = strings.TrimSuffix(rel, ext)
	rel = strings.ReplaceAll(rel, "\\", "/")
	return strings.ReplaceAll(rel, "/", ".")
}

// RelativePath returns the path relative to the repository root, falling back
// to the input path when it cannot be made relative.
func RelativePath(filePath, repoRoot string) string {
	if repoRoot == "" {
		return filePath
	}
	rel, err := filepath.Rel(repoRoot, filePath)
	if err != nil {
		return filePath
	}
	return rel
}

// ComponentID builds a qualified component ID from a module path, an optional
// owning type, and a name.
func ComponentID(modulePath, owner, name string) string {
	switch {
	case modulePath == "":
		if owner != "" {
			return owner + "." + name
		}
		return name
	case owner != "":
		return modulePath + "." + owner + "." + name
	default:
		return modulePath + "." + name
	}
}

// precedingDocComment collects the contiguous line-comment block immediately
// above startLine (1-based), using the given comment marker. Any blank line
// ends the block: a comment separated from the declaration by a blank line is
// not its doc. Scans at most 20 lines back.
func precedingDocComment(lines []string, startLine int, marker string) string {
	if startLine <= 1 {
		return ""
	}
	var doc []string
	for i := startLine - 2; i >= 0 && i >= startLine-22; i-- {
		if i >= len(lines) {
			continue
		}
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, marker) {
			break
		}
		doc = append([]string{strings.TrimSpace(strings.TrimPrefix(line, marker))}, doc...)
	}
	return strings.Join(doc, "\n")
}

// sourceSpan joins lines start..end (1-based, inclusive), clamped to bounds.
func sourceSpan(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// splitLines splits file content preserving line indices.
func splitLines(content []byte) []string {
	return strings.Split(string(content), "\n")
}
