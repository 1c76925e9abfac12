// Package rate implements fixed-window request limiting keyed by caller.
package rate

import (
	"sync"
	"time"
)

// Limiter reports whether another request under key fits in limit per
// window, and how long until the current window resets.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration)
}

// sweepEvery is how many Allow calls pass between purges of expired windows.
const sweepEvery = 1024

type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
	calls   int
}

type window struct {
	count   int
	resetAt time.Time
	length  time.Duration
}

func NewMemory() *MemoryLimiter {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock is NewMemory with a custom time source.
func NewMemoryWithClock(now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{now: now, windows: make(map[string]*window)}
}

func (m *MemoryLimiter) Allow(key string, limit int, length time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) || w.length != length {
		w = &window{resetAt: now.Add(length), length: length}
		m.windows[key] = w
	}

	retry := w.resetAt.Sub(now)
	if w.count >= limit {
		return false, retry
	}
	w.count++
	return true, retry
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

// AllowAll never limits. It backs tests and disabled limits.
type AllowAll struct{}

func (AllowAll) Allow(string, int, time.Duration) (bool, time.Duration) { return true, 0 }
