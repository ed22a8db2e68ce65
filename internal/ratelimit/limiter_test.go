package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newLimiter := func(limit int, window time.Duration) (*SlidingWindow, *time.Time) {
		now := base
		l := NewSlidingWindow(limit, window)
		l.now = func() time.Time { return now }
		return l, &now
	}

	t.Run("admits up to the limit then rejects", func(t *testing.T) {
		l, _ := newLimiter(5, 10*time.Second)
		for i := 0; i < 5; i++ {
			assert.True(t, l.Allow(1))
		}
		assert.False(t, l.Allow(1))
	})

	t.Run("identities are tracked independently", func(t *testing.T) {
		l, _ := newLimiter(1, 10*time.Second)
		assert.True(t, l.Allow(1))
		assert.False(t, l.Allow(1))
		assert.True(t, l.Allow(2))
	})

	t.Run("window slides rather than resets", func(t *testing.T) {
		l, now := newLimiter(2, 10*time.Second)
		assert.True(t, l.Allow(1))

		*now = base.Add(6 * time.Second)
		assert.True(t, l.Allow(1))
		assert.False(t, l.Allow(1))

		// first entry ages out, second is still inside the window
		*now = base.Add(11 * time.Second)
		assert.True(t, l.Allow(1))
		assert.False(t, l.Allow(1))
	})

	t.Run("non-positive limit disables the check", func(t *testing.T) {
		l, _ := newLimiter(0, time.Second)
		for i := 0; i < 100; i++ {
			assert.True(t, l.Allow(1))
		}
	})
}
