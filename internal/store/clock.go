package store

import (
	"sync"
	"time"
)

// Stamper hands out creation timestamps at millisecond precision that never
// go backwards, even if the wall clock does.
type Stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

func (s *Stamper) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Millisecond)
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}

var defaultStamper = NewStamper(nil)

// Now returns the next creation timestamp from the process-wide stamper.
func Now() time.Time {
	return defaultStamper.Now()
}
