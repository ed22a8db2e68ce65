package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/service/mocks"
)

func TestBroadcast(t *testing.T) {
	ctx := context.Background()

	ticket := &domain.Ticket{ID: 7, Content: "printer on fire"}
	submitter := &domain.User{ExternalID: 1, DisplayName: "Pat", Language: "en"}
	agents := []domain.User{
		{ExternalID: 100, Role: domain.RoleAgent, Language: "en"},
		{ExternalID: 101, Role: domain.RoleAgent, Language: "es"},
		{ExternalID: 102, Role: domain.RoleAgent, Language: "en"},
	}

	t.Run("records one receipt per successful delivery", func(t *testing.T) {
		var mu sync.Mutex
		var saved []*domain.DeliveryReceipt
		receipts := &mocks.ReceiptRepo{
			CreateFunc: func(ctx context.Context, receipt *domain.DeliveryReceipt) error {
				mu.Lock()
				defer mu.Unlock()
				saved = append(saved, receipt)
				return nil
			},
		}
		notifier := &mocks.Notifier{}
		svc := newTestDispatch(receipts, notifier)

		outcomes := svc.Broadcast(ctx, ticket, submitter, agents)
		require.Len(t, outcomes, 3)
		for _, outcome := range outcomes {
			assert.NoError(t, outcome.Err)
			assert.NotNil(t, outcome.Receipt)
		}
		assert.Len(t, saved, 3)
	})

	t.Run("renders the notification in each agent's language", func(t *testing.T) {
		notifier := &mocks.Notifier{}
		svc := newTestDispatch(nil, notifier)

		svc.Broadcast(ctx, ticket, submitter, agents)

		byRecipient := map[int64]string{}
		for _, d := range notifier.Delivered {
			byRecipient[d.Recipient] = d.Content
		}
		assert.Contains(t, byRecipient[100], "Ticket from Pat")
		assert.Contains(t, byRecipient[101], "Ticket de Pat")
	})

	t.Run("failed delivery leaves no receipt and marks the slot", func(t *testing.T) {
		var mu sync.Mutex
		var saved []*domain.DeliveryReceipt
		receipts := &mocks.ReceiptRepo{
			CreateFunc: func(ctx context.Context, receipt *domain.DeliveryReceipt) error {
				mu.Lock()
				defer mu.Unlock()
				saved = append(saved, receipt)
				return nil
			},
		}
		notifier := &mocks.Notifier{
			DeliverFunc: func(ctx context.Context, recipient int64, content string) (string, error) {
				if recipient == 101 {
					return "", errors.New("blocked")
				}
				return "ref", nil
			},
		}
		svc := newTestDispatch(receipts, notifier)

		outcomes := svc.Broadcast(ctx, ticket, submitter, agents)
		failed := 0
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				failed++
				assert.Equal(t, int64(101), outcome.AgentID)
			}
		}
		assert.Equal(t, 1, failed)
		assert.Len(t, saved, 2)
	})

	t.Run("unrecorded delivery counts as failed", func(t *testing.T) {
		receipts := &mocks.ReceiptRepo{
			CreateFunc: func(ctx context.Context, receipt *domain.DeliveryReceipt) error {
				return errors.New("insert failed")
			},
		}
		svc := newTestDispatch(receipts, &mocks.Notifier{})

		outcomes := svc.Broadcast(ctx, ticket, submitter, agents[:1])
		require.Len(t, outcomes, 1)
		assert.Error(t, outcomes[0].Err)
		assert.Nil(t, outcomes[0].Receipt)
	})
}
