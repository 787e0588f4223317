package injector

import (
	"context"
	"time"
)

// DebounceInterval coalesces bursts of mutation notifications into one scan.
const DebounceInterval = 500 * time.Millisecond

// Watcher turns a stream of DOM mutation notifications into debounced scan
// runs: a burst of notifications triggers a single scan once the burst has
// been quiet for the interval.
type Watcher struct {
	interval time.Duration
	scan     func()
	dirty    chan struct{}
}

// NewWatcher builds a watcher calling scan after each quiet period. A zero
// interval uses DebounceInterval.
func NewWatcher(interval time.Duration, scan func()) *Watcher {
	if interval <= 0 {
		interval = DebounceInterval
	}
	return &Watcher{
		interval: interval,
		scan:     scan,
		dirty:    make(chan struct{}, 1),
	}
}

// Notify records a mutation. Never blocks; notifications arriving while one
// is already pending are coalesced.
func (w *Watcher) Notify() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// Run pumps notifications into scans until ctx is done. Call from its own
// goroutine.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(w.interval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.dirty:
			// Restart the quiet-period clock on every burst.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.interval)
		case <-timer.C:
			w.scan()
		case <-ctx.Done():
			return
		}
	}
}
