package main

import (
	"sync"
	"time"
)

// throttle runs at most one call per interval. Calls arriving inside the
// interval collapse into a single trailing call with the latest function.
type throttle struct {
	interval time.Duration
	last     time.Time
	pending  func()
	timer    *time.Timer
	mu       sync.Mutex
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

// do runs fn now if the interval since the last run has passed, otherwise
// schedules it for the end of the interval, replacing any call still waiting.
func (t *throttle) do(fn func()) {
	t.mu.Lock()
	now := time.Now()
	if t.timer == nil && now.Sub(t.last) >= t.interval {
		t.last = now
		t.mu.Unlock()
		fn()
		return
	}

	t.pending = fn
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval-now.Sub(t.last), t.flush)
	}
	t.mu.Unlock()
}

func (t *throttle) flush() {
	t.mu.Lock()
	fn := t.pending
	t.pending, t.timer = nil, nil
	t.last = time.Now()
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}
