package inference

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultDebounceWindow is the coalescing window host flow events are
// debounced over (§5 "debounced reload with a coalescing window of 250 ms").
const DefaultDebounceWindow = 250 * time.Millisecond

// Debouncer coalesces rapid successive triggers into a single run per
// window, and uses singleflight to guarantee a run already in flight is
// never overlapped by a second one started by a timer firing mid-run
// (§8 invariant 6: N events within the window produce exactly one cycle).
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	window  time.Duration
	group   singleflight.Group
	run     func(ctx context.Context, reason string) error
	onError func(error)
}

// NewDebouncer builds a Debouncer with the given coalescing window (zero
// defaults to DefaultDebounceWindow per §6 "Configuration").
func NewDebouncer(window time.Duration, run func(ctx context.Context, reason string) error, onError func(error)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, run: run, onError: onError}
}

// Trigger (re)starts the coalescing timer. Calling it repeatedly within the
// window keeps pushing the deadline out; only the last reason before the
// timer fires is the one reported in the resulting event.
func (d *Debouncer) Trigger(ctx context.Context, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		_, err, _ := d.group.Do("reload", func() (interface{}, error) {
			return nil, d.run(ctx, reason)
		})
		if err != nil && d.onError != nil {
			d.onError(err)
		}
	})
}

// Stop cancels any pending timer without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
