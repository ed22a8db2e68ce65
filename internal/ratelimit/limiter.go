package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow bounds inbound submissions per chat identity. It is a pure
// in-memory check with no I/O; state resets on restart, which is acceptable
// because the limiter is advisory, not a correctness mechanism.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[int64][]time.Time
	now     func() time.Time
}

// NewSlidingWindow builds a limiter admitting at most limit events per window
// for each identity.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		entries: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// Allow records an attempt for the identity and reports whether it is within
// the window.
func (s *SlidingWindow) Allow(identity int64) bool {
	if s.limit <= 0 {
		return true
	}
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[identity][:0]
	for _, t := range s.entries[identity] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= s.limit {
		s.entries[identity] = kept
		return false
	}
	s.entries[identity] = append(kept, now)
	return true
}
