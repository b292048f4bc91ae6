// Package debounce coalesces bursts of calls into a single trailing call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer owns at most one pending timer. Every Schedule replaces the
// pending function and restarts the wait, so only the last call's function
// runs, once the calls have been quiet for the delay.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	fn    func()
	seq   uint64
}

// New returns an idle Debouncer.
func New() *Debouncer { return &Debouncer{} }

// Schedule arranges for fn to run after delay, cancelling any pending call.
func (d *Debouncer) Schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.fn = fn
	d.timer = time.AfterFunc(delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A timer that was stopped too late to prevent firing is stale.
	if seq != d.seq || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

// Cancel drops the pending call, if any. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := d.fn != nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.fn = nil
	d.timer = nil
	return pending
}

// Flush runs the pending call immediately on the calling goroutine. It
// reports whether a call ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
