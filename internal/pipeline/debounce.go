package pipeline

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer delays a callback until its input has been quiet for the
// interval. Only the last value submitted within a window is delivered;
// earlier ones are dropped, never queued.
type Debouncer[T any] struct {
	clock    clockwork.Clock
	interval time.Duration
	fire     func(T)

	mu      sync.Mutex
	timer   clockwork.Timer
	gen     uint64
	last    T
	pending bool
	stopped bool
}

// NewDebouncer creates a debouncer that calls fire on the clock's timer
// goroutine. Pass a nil clock to use the real one.
func NewDebouncer[T any](clock clockwork.Clock, interval time.Duration, fire func(T)) *Debouncer[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer[T]{clock: clock, interval: interval, fire: fire}
}

// Submit schedules v, cancelling any pending value. It reports whether a
// pending value was superseded.
func (d *Debouncer[T]) Submit(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}

	superseded := d.pending
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.last = v
	d.timer = d.clock.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.timer = nil
		d.mu.Unlock()
		d.fire(v)
	})
	return superseded
}

// Flush cancels the pending timer and returns the value it would have
// delivered, so the caller can handle it immediately.
func (d *Debouncer[T]) Flush() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	if !d.pending {
		return zero, false
	}
	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return d.last, true
}

// Stop cancels any pending value. Later submissions are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
