package remote

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// reconnector keeps at most one pending reconnect attempt per channel.
// The delay is fixed; attempts do not back off.
type reconnector struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	pending *clock.Timer
	stopped bool
}

func newReconnector(clk clock.Clock, delay time.Duration) *reconnector {
	if clk == nil {
		clk = clock.New()
	}
	return &reconnector{clock: clk, delay: delay}
}

// schedule runs fn after the delay. It reports false when an attempt is
// already pending or the reconnector was stopped.
func (r *reconnector) schedule(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.pending != nil {
		return false
	}
	r.pending = r.clock.AfterFunc(r.delay, func() {
		r.mu.Lock()
		r.pending = nil
		stopped := r.stopped
		r.mu.Unlock()

		if !stopped {
			fn()
		}
	})
	return true
}

// isPending reports whether an attempt is waiting to run.
func (r *reconnector) isPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// stop cancels any pending attempt and refuses new ones.
func (r *reconnector) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}
