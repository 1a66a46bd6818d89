package stats

import (
	"sync"
	"time"
)

// Debouncer runs fn once after mutations settle. Trigger re-arms the delay on
// every call, so a burst of scans produces a single recompute of the
// expected-unscanned display. It is a display-freshness mechanism only; the
// match decision at scan time never goes through it.
type Debouncer struct {
	mu    sync.Mutex
	d     time.Duration
	fn    func()
	timer *time.Timer
}

func NewDebouncer(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{d: d, fn: fn}
}

// Trigger schedules fn after the quiescence window, cancelling any pending run.
func (b *Debouncer) Trigger() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.d, b.fn)
}

// Stop cancels any pending run. Used on session teardown.
func (b *Debouncer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
