// Package scanner discovers analyzable source files, honoring config and
// .gitignore exclusions.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/codeatlas/atlas/pkg/analyzer/callgraph"
	"github.com/codeatlas/atlas/pkg/config"
	"github.com/codeatlas/atlas/pkg/parser"
)

// Scanner finds source files in a directory tree.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// New creates a file scanner.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks up from start looking for a .git directory. Returns
// empty string outside a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config exclude patterns with .gitignore files
// read recursively from the git root.
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			fsys := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fsys, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}

	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

// Scan walks root and returns {path, language} pairs for every supported
// source file, relative paths sorted by the walk order. Symlinks that escape
// the root are skipped.
func (s *Scanner) Scan(root string) ([]callgraph.FileInfo, error) {
	files := make([]callgraph.FileInfo, 0, 1024)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) || isExcludedDir(s.config, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) || s.config.ShouldExclude(relPath) {
			return nil
		}
		if lang := parser.DetectLanguage(path); lang != parser.LangUnknown {
			files = append(files, callgraph.FileInfo{Path: relPath, Language: lang})
		}

		return nil
	})

	return files, walkErr
}

func isExcludedDir(cfg *config.Config, name string) bool {
	for _, dir := range cfg.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// isWithinRoot reports whether path is contained in root after symlink
// resolution.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// GroupByLanguage groups scanned files by language classification.
func GroupByLanguage(files []callgraph.FileInfo) map[parser.Language][]string {
	groups := make(map[parser.Language][]string)
	for _, f := range files {
		groups[f.Language] = append(groups[f.Language], f.Path)
	}
	return groups
}

// FilterBySize drops files over maxSize bytes, resolving each relative path
// against root. Returns the kept files and the skipped count. maxSize 0
// keeps everything.
func FilterBySize(root string, files []callgraph.FileInfo, maxSize int64) ([]callgraph.FileInfo, int) {
	if maxSize <= 0 {
		return files, 0
	}

	kept := make([]callgraph.FileInfo, 0, len(files))
	skipped := 0
	for _, f := range files {
		info, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		kept = append(kept, f)
	}
	return kept, skipped
}
