// Package debounce coalesces bursts of input changes into a single run.
package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/logging"
)

// Debouncer runs the most recently scheduled function once input has been
// quiet for the configured period. Scheduling again before the period ends
// replaces the pending function; any run still executing from an earlier
// schedule has its context cancelled.
type Debouncer struct {
	name        string
	parent      context.Context
	quietPeriod time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	gen    uint64
}

// New creates a debouncer whose runs are children of parent.
func New(parent context.Context, name string, quietPeriod time.Duration) *Debouncer {
	return &Debouncer{
		name:        name,
		parent:      parent,
		quietPeriod: quietPeriod,
	}
}

// QuietPeriod returns the configured delay.
func (d *Debouncer) QuietPeriod() time.Duration {
	return d.quietPeriod
}

// reset stops the pending timer and cancels the in-flight run. Callers hold mu.
func (d *Debouncer) reset() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.gen++
}

// Schedule arranges for fn to run after the quiet period.
func (d *Debouncer) Schedule(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reset()
	gen := d.gen
	ctx, cancel := context.WithCancel(d.parent)
	d.cancel = cancel

	d.timer = time.AfterFunc(d.quietPeriod, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		logging.Trace("debounce fired", "debouncer", d.name)
		fn(ctx)
	})
}

// Now cancels anything pending or running and executes fn immediately in
// the calling goroutine.
func (d *Debouncer) Now(fn func(ctx context.Context)) {
	d.mu.Lock()
	d.reset()
	ctx, cancel := context.WithCancel(d.parent)
	d.cancel = cancel
	d.mu.Unlock()

	fn(ctx)
}

// Cancel drops the pending run, if any, and cancels the in-flight one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}
