package marketdata

import (
	"sync"
	"time"
)

// RateWindow is a fixed quota that resets wholesale once resetAt has passed.
// The window opens on the first Allow call.
type RateWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	count   int
	resetAt time.Time
	started bool
}

type Usage struct {
	Count   int
	Limit   int
	ResetAt time.Time
}

func NewRateWindow(limit int, window time.Duration, now func() time.Time) *RateWindow {
	if now == nil {
		now = time.Now
	}
	return &RateWindow{limit: limit, window: window, now: now}
}

// Allow reports whether one more upstream call may be dispatched and, if so,
// counts it before returning.
func (w *RateWindow) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if !w.started {
		w.started = true
		w.resetAt = now.Add(w.window)
	}
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(w.window)
	}
	if w.count >= w.limit {
		return false
	}
	w.count++
	return true
}

func (w *RateWindow) Snapshot() Usage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Usage{Count: w.count, Limit: w.limit, ResetAt: w.resetAt}
}

func (w *RateWindow) Reset() {
	w.mu.Lock()
	w.count = 0
	w.started = false
	w.resetAt = time.Time{}
	w.mu.Unlock()
}
