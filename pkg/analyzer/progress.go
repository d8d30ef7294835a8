// Package analyzer holds the shared progress-tracking contract analysis
// stages report through.
package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc is called to report analysis progress: current items done,
// total items, and the item just completed.
type ProgressFunc func(current, total int, path string)

// Tracker tracks progress across analysis stages. Safe for concurrent use.
type Tracker struct {
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a progress tracker. The callback is invoked on each
// Tick with (current, total, path).
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add increments the total count by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// SetTotal replaces the total count.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int64(n))
}

// Tick marks one item as completed and invokes the callback if set.
func (t *Tracker) Tick(path string) {
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(current, int(t.total.Load()), path)
	}
}

// Current returns the number of completed items.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the total count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context carrying a progress tracker.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the progress tracker from the context, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
