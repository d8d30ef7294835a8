// Package callgraph orchestrates per-language analyzers over a file set:
// parallel dispatch, order-independent merge, a global cross-file resolution
// pass, and edge deduplication.
package callgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/codeatlas/atlas/internal/fileproc"
	"github.com/codeatlas/atlas/pkg/analyzer"
	"github.com/codeatlas/atlas/pkg/analyzer/lang"
	"github.com/codeatlas/atlas/pkg/models"
	"github.com/codeatlas/atlas/pkg/source"
)

// Analyzer dispatches files to language analyzers and merges their results.
type Analyzer struct {
	registry *lang.Registry
	source   source.ContentSource
	workers  int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithRegistry sets the language analyzer registry.
func WithRegistry(r *lang.Registry) Option {
	return func(a *Analyzer) {
		a.registry = r
	}
}

// WithSource sets the content source (useful for testing).
func WithSource(s source.ContentSource) Option {
	return func(a *Analyzer) {
		a.source = s
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// New creates a call-graph analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: lang.DefaultRegistry(),
		source:   source.NewFilesystem(),
		workers:  fileproc.DefaultWorkers(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the full pass over the file set. Per-file failures are
// recorded and skipped; the only fatal conditions are an unreadable
// repository root and a run where no file could be processed at all.
func (a *Analyzer) Analyze(ctx context.Context, repoRoot string, files []FileInfo) (*Result, error) {
	if _, err := os.Stat(repoRoot); err != nil {
		return nil, fmt.Errorf("repository root unreadable: %w", err)
	}

	if tracker := analyzer.TrackerFromContext(ctx); tracker != nil {
		tracker.Add(len(files))
	}

	results, failed := a.processFiles(ctx, repoRoot, files)

	if len(files) > 0 && len(results) == 0 && len(failed) == len(files) {
		return nil, fmt.Errorf("analysis failed for all %d files", len(files))
	}

	res := a.merge(results)
	res.FailedFiles = failed
	res.Languages = a.languagesOf(files)

	resolveRelationships(res)
	res.Relationships = dedupeRelationships(res.Relationships)
	fillDependencies(res)

	return res, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

// processFiles runs the worker pool; if the parallel phase fails it degrades
// to strictly sequential processing of the remaining files so partial results
// are never dropped. A panicking analyzer is confined to its own file, which
// lands in the failed set while the rest of the run continues.
func (a *Analyzer) processFiles(ctx context.Context, repoRoot string, files []FileInfo) ([]fileResult, []string) {
	var (
		mu      sync.Mutex
		results []fileResult
		failed  []string
		done    = make(map[string]bool, len(files))
	)

	process := func(f FileInfo) {
		r, err := func() (r fileResult, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("analyze panicked: %v", rec)
				}
			}()
			return a.analyzeFile(repoRoot, f)
		}()
		mu.Lock()
		defer mu.Unlock()
		done[f.Path] = true
		if err != nil {
			slog.Debug("file analysis failed", "path", f.Path, "error", err)
			failed = append(failed, f.Path)
		} else {
			results = append(results, r)
		}
		if tracker := analyzer.TrackerFromContext(ctx); tracker != nil {
			tracker.Tick(f.Path)
		}
	}

	parallelErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("parallel analysis panicked: %v", r)
			}
		}()
		p := pool.New().WithMaxGoroutines(a.workers)
		for _, f := range files {
			p.Go(func() { process(f) })
		}
		p.Wait()
		return nil
	}()

	if parallelErr != nil {
		slog.Warn("parallel analysis failed, falling back to sequential", "error", parallelErr)
		for _, f := range files {
			mu.Lock()
			seen := done[f.Path]
			mu.Unlock()
			if !seen {
				process(f)
			}
		}
	}

	return results, failed
}

// analyzeFile reads one file and runs its language analyzer.
func (a *Analyzer) analyzeFile(repoRoot string, f FileInfo) (fileResult, error) {
	plugin, ok := a.registry.For(f.Language)
	if !ok {
		return fileResult{}, fmt.Errorf("unsupported language: %s", f.Language)
	}

	readPath := f.Path
	if !filepath.IsAbs(readPath) {
		readPath = filepath.Join(repoRoot, f.Path)
	}
	content, err := a.source.Read(readPath)
	if err != nil {
		return fileResult{}, fmt.Errorf("read: %w", err)
	}

	out, err := plugin.Analyze(f.Path, content, repoRoot)
	if err != nil {
		return fileResult{}, fmt.Errorf("analyze: %w", err)
	}

	return fileResult{
		path:          f.Path,
		components:    out.Components,
		relationships: out.Relationships,
	}, nil
}

// merge accumulates per-file results into the global sets on a single owner
// goroutine. Results are sorted by path first so the merge is independent of
// completion order, and duplicate IDs keep the first occurrence: a collision
// means a qualified-name ambiguity, never a silent overwrite.
func (a *Analyzer) merge(results []fileResult) *Result {
	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })

	res := &Result{
		Components:    make(map[string]*models.Component),
		Relationships: make([]models.CallRelationship, 0),
	}
	for _, fr := range results {
		for _, c := range fr.components {
			if existing, ok := res.Components[c.ID]; ok {
				slog.Warn("duplicate component id, keeping first",
					"id", c.ID, "kept", existing.FilePath, "dropped", c.FilePath)
				continue
			}
			res.Components[c.ID] = c
		}
		res.Relationships = append(res.Relationships, fr.relationships...)
		res.FilesAnalyzed++
	}
	return res
}

func (a *Analyzer) languagesOf(files []FileInfo) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, f := range files {
		if s := string(f.Language); !seen[s] {
			seen[s] = true
			langs = append(langs, s)
		}
	}
	sort.Strings(langs)
	return langs
}

// resolveRelationships is the global cross-file pass: unresolved callee names
// are matched against a lookup built from all known components, including
// bare method names and {ClassName}.{method} keys.
func resolveRelationships(res *Result) {
	lookup := make(map[string]string, len(res.Components)*2)

	// Insert in sorted ID order so first-wins secondary keys are stable.
	ids := make([]string, 0, len(res.Components))
	for id := range res.Components {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := res.Components[id]
		lookup[id] = id
		if _, ok := lookup[c.Name]; !ok {
			lookup[c.Name] = id
		}
		if c.ModulePath != "" {
			if _, ok := lookup[c.ModulePath]; !ok {
				lookup[c.ModulePath] = id
			}
			parts := strings.Split(c.ModulePath, ".")
			if tail := parts[len(parts)-1]; tail != "" {
				if _, ok := lookup[tail]; !ok {
					lookup[tail] = id
				}
			}
		}
		if c.ClassName != "" && c.Name != "" {
			key := c.ClassName + "." + c.Name
			if _, ok := lookup[key]; !ok {
				lookup[key] = id
			}
		}
	}

	for i := range res.Relationships {
		rel := &res.Relationships[i]
		if rel.IsResolved {
			continue
		}
		if id, ok := lookup[rel.Callee]; ok {
			rel.Callee = id
			rel.IsResolved = true
			continue
		}
		if idx := strings.LastIndex(rel.Callee, "."); idx >= 0 {
			if id, ok := lookup[rel.Callee[idx+1:]]; ok {
				rel.Callee = id
				rel.IsResolved = true
			}
		}
	}
}

// dedupeRelationships keeps the first occurrence of each (caller, callee)
// pair so repeated calls from one caller do not inflate fan-in/out.
func dedupeRelationships(rels []models.CallRelationship) []models.CallRelationship {
	seen := make(map[uint64]bool, len(rels))
	unique := rels[:0:0]
	var buf []byte
	for _, rel := range rels {
		buf = buf[:0]
		buf = append(buf, rel.Caller...)
		buf = append(buf, 0)
		buf = append(buf, rel.Callee...)
		key := xxhash.Sum64(buf)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rel)
	}
	return unique
}

// fillDependencies writes the authoritative depends_on sets from resolved
// relationships whose endpoints both exist in the component set.
func fillDependencies(res *Result) {
	for _, rel := range res.Relationships {
		if !rel.IsResolved {
			continue
		}
		caller, ok := res.Components[rel.Caller]
		if !ok {
			continue
		}
		if _, ok := res.Components[rel.Callee]; !ok {
			continue
		}
		caller.AddDependency(rel.Callee)
	}
}
