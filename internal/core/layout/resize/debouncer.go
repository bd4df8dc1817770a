// Package resize schedules layout re-solves from width measurements. Rapid
// measurements coalesce: each new width supersedes the pending one and
// restarts the quiet window, so only the last width is ever solved.
package resize

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period before a pending width is solved
const DefaultWindow = 100 * time.Millisecond

// Debouncer coalesces width observations into single re-solve calls
type Debouncer struct {
	mu         sync.Mutex
	window     time.Duration
	solve      func(widthPx float64)
	timer      *time.Timer
	generation uint64
	pending    float64
	hasPending bool
	lastSolved float64
	solved     bool
	stopped    bool
}

// NewDebouncer creates a debouncer that calls solve on its own timer
// goroutine once observations have been quiet for window
func NewDebouncer(window time.Duration, solve func(widthPx float64)) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, solve: solve}
}

// Observe records a new width measurement, superseding any pending one
func (d *Debouncer) Observe(widthPx float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = widthPx
	d.hasPending = true
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
	}

	gen := d.generation
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// Flush solves the pending width immediately, if there is one
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	width, run := d.takePending()
	d.mu.Unlock()

	if run {
		d.solve(width)
	}
}

// Stop cancels any pending solve and ignores further observations
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.hasPending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a width is waiting for the quiet window to end
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.generation {
		// a newer observation re-armed the timer
		d.mu.Unlock()
		return
	}
	d.timer = nil
	width, run := d.takePending()
	d.mu.Unlock()

	if run {
		d.solve(width)
	}
}

// takePending must be called with mu held
func (d *Debouncer) takePending() (float64, bool) {
	if !d.hasPending || d.stopped {
		return 0, false
	}
	d.hasPending = false

	width := d.pending
	if d.solved && width == d.lastSolved {
		return 0, false
	}
	d.lastSolved = width
	d.solved = true
	return width, true
}
