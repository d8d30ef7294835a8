// Package fileproc provides concurrency defaults and a parallel per-file map
// for I/O-heavy stages.
package fileproc

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker
// count. 2x works well for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// DefaultWorkers returns the default worker count.
func DefaultWorkers() int {
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// Result pairs one input path with its outcome.
type Result[T any] struct {
	Path  string
	Value T
	Err   error
}

// Map runs fn over paths with at most workers goroutines and returns one
// Result per path, in input order. If workers is <= 0 the default count is
// used.
func Map[T any](paths []string, workers int, fn func(string) (T, error)) []Result[T] {
	if len(paths) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	results := make([]Result[T], len(paths))
	p := pool.New().WithMaxGoroutines(workers)
	for i, path := range paths {
		p.Go(func() {
			v, err := fn(path)
			results[i] = Result[T]{Path: path, Value: v, Err: err}
		})
	}
	p.Wait()
	return results
}
