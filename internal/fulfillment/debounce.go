package fulfillment

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of triggers per key into a single trailing
// callback. If N triggers land within one interval, fn runs once, no
// later than interval after the last trigger.
type debouncer struct {
	interval time.Duration
	fn       func(key string)

	mu      sync.Mutex
	pending map[string]*debounceEntry
	closed  bool
}

// debounceEntry is one key's pending fire. deadline is the earliest
// moment the callback may run; a Trigger pushes it out and re-arms the
// timer.
type debounceEntry struct {
	timer    *time.Timer
	deadline time.Time
}

func newDebouncer(interval time.Duration, fn func(key string)) *debouncer {
	return &debouncer{
		interval: interval,
		fn:       fn,
		pending:  make(map[string]*debounceEntry),
	}
}

// Trigger schedules fn for the key, restarting the trailing window if a
// fire is already pending.
func (d *debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if e, ok := d.pending[key]; ok {
		e.deadline = time.Now().Add(d.interval)
		e.timer.Reset(d.interval)
		return
	}
	e := &debounceEntry{deadline: time.Now().Add(d.interval)}
	e.timer = time.AfterFunc(d.interval, func() { d.fire(key, e) })
	d.pending[key] = e
}

func (d *debouncer) fire(key string, e *debounceEntry) {
	d.mu.Lock()
	if d.closed || d.pending[key] != e {
		d.mu.Unlock()
		return
	}
	// A Trigger that lands between the timer firing and this callback
	// taking the lock pushes the deadline out and re-arms the timer; the
	// later fire owns the burst, this one stands down.
	if time.Now().Before(e.deadline) {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	d.fn(key)
}

// Close cancels all pending timers. Triggers after Close are ignored.
func (d *debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
}
