package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to every subscriber of the type", func(t *testing.T) {
		d := NewInMemoryDispatcher()

		var got []string
		d.Subscribe(EventTicketClaimed, func(ctx context.Context, event Event) error {
			got = append(got, "first")
			return nil
		})
		d.Subscribe(EventTicketClaimed, func(ctx context.Context, event Event) error {
			got = append(got, "second")
			return nil
		})
		d.Subscribe(EventTicketClosed, func(ctx context.Context, event Event) error {
			got = append(got, "other-type")
			return nil
		})

		require.NoError(t, d.Publish(ctx, Event{Type: EventTicketClaimed, TicketID: 1}))
		assert.Equal(t, []string{"first", "second"}, got)
	})

	t.Run("a failing handler never blocks the rest", func(t *testing.T) {
		d := NewInMemoryDispatcher()

		reached := false
		d.Subscribe(EventTicketSubmitted, func(ctx context.Context, event Event) error {
			return errors.New("handler broke")
		})
		d.Subscribe(EventTicketSubmitted, func(ctx context.Context, event Event) error {
			reached = true
			return nil
		})

		require.NoError(t, d.Publish(ctx, Event{Type: EventTicketSubmitted}))
		assert.True(t, reached)
	})

	t.Run("publish without subscribers is a no-op", func(t *testing.T) {
		d := NewInMemoryDispatcher()
		require.NoError(t, d.Publish(ctx, Event{Type: EventTicketRated}))
	})
}
