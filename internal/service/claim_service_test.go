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
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

func newTestDispatch(receipts *mocks.ReceiptRepo, notifier *mocks.Notifier) *DispatchService {
	if receipts == nil {
		receipts = &mocks.ReceiptRepo{
			CreateFunc: func(ctx context.Context, receipt *domain.DeliveryReceipt) error {
				return nil
			},
			ListByTicketFunc: func(ctx context.Context, ticketID int64) ([]domain.DeliveryReceipt, error) {
				return nil, nil
			},
		}
	}
	if notifier == nil {
		notifier = &mocks.Notifier{}
	}
	return NewDispatchService(DispatchDependencies{ReceiptRepo: receipts, Notifier: notifier})
}

func agentUser(externalID int64, name string) *domain.User {
	return &domain.User{ExternalID: externalID, DisplayName: name, Role: domain.RoleAgent, Language: "en"}
}

func TestAttemptClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("exactly one winner under concurrent attempts", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusUnclaimed, Content: "help"})

		svc := NewClaimService(ClaimDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(nil, nil),
		})

		const attempts = 16
		results := make([]ClaimResult, attempts)

		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result, err := svc.AttemptClaim(ctx, ticketID, agentUser(int64(100+i), "agent"))
				require.NoError(t, err)
				results[i] = result
			}(i)
		}
		wg.Wait()

		won, lost := 0, 0
		var winner int64
		for i, result := range results {
			switch result {
			case ClaimWon:
				won++
				winner = int64(100 + i)
			case ClaimLost:
				lost++
			default:
				t.Fatalf("unexpected result %v", result)
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, attempts-1, lost)

		ticket, err := store.GetByID(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClaimed, ticket.Status)
		require.NotNil(t, ticket.ClaimedBy)
		assert.Equal(t, winner, *ticket.ClaimedBy)
	})

	t.Run("escalated ticket is still claimable", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusEscalated, Content: "stale"})

		svc := NewClaimService(ClaimDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(nil, nil),
		})

		result, err := svc.AttemptClaim(ctx, ticketID, agentUser(7, "late agent"))
		require.NoError(t, err)
		assert.Equal(t, ClaimWon, result)

		ticket, err := store.GetByID(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClaimed, ticket.Status)
	})

	t.Run("closed ticket is lost, not an error", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusClosed})

		svc := NewClaimService(ClaimDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(nil, nil),
		})

		result, err := svc.AttemptClaim(ctx, ticketID, agentUser(7, "agent"))
		require.NoError(t, err)
		assert.Equal(t, ClaimLost, result)
	})

	t.Run("missing ticket reports not found", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		svc := NewClaimService(ClaimDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(nil, nil),
		})

		result, err := svc.AttemptClaim(ctx, 999, agentUser(7, "agent"))
		require.NoError(t, err)
		assert.Equal(t, ClaimNotFound, result)
	})

	t.Run("plain user is forbidden", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusUnclaimed})

		svc := NewClaimService(ClaimDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(nil, nil),
		})

		_, err := svc.AttemptClaim(ctx, ticketID, &domain.User{ExternalID: 1, Role: domain.RolePlain})
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "FORBIDDEN", derr.Code)
	})

	t.Run("store failure is reported, never assumed won", func(t *testing.T) {
		repo := &mocks.TicketRepo{
			ConditionalUpdateStatusFunc: func(ctx context.Context, id int64, expected []domain.TicketStatus, next domain.TicketStatus, claimedBy *int64) (bool, error) {
				return false, errors.New("connection refused")
			},
		}
		svc := NewClaimService(ClaimDependencies{
			TicketRepo: repo,
			Dispatch:   newTestDispatch(nil, nil),
		})

		result, err := svc.AttemptClaim(ctx, 1, agentUser(7, "agent"))
		assert.Equal(t, ClaimLost, result)
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "STORE_UNAVAILABLE", derr.Code)
	})

	t.Run("winner triggers revision of recorded deliveries", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusUnclaimed})

		notifier := &mocks.Notifier{}
		receipts := &mocks.ReceiptRepo{
			ListByTicketFunc: func(ctx context.Context, id int64) ([]domain.DeliveryReceipt, error) {
				return []domain.DeliveryReceipt{
					{TicketID: id, AgentID: 100, MessageRef: "m1"},
					{TicketID: id, AgentID: 101, MessageRef: "m2"},
				}, nil
			},
		}
		svc := NewClaimService(ClaimDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(receipts, notifier),
		})

		result, err := svc.AttemptClaim(ctx, ticketID, agentUser(100, "Ana"))
		require.NoError(t, err)
		assert.Equal(t, ClaimWon, result)
		assert.Len(t, notifier.Revised, 2)
		assert.Contains(t, notifier.Revised[0].Content, "Ana")
	})

	t.Run("revision failures never fail the claim", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusUnclaimed})

		notifier := &mocks.Notifier{
			ReviseFunc: func(ctx context.Context, recipient int64, messageRef, content string) error {
				return errors.New("message gone")
			},
		}
		receipts := &mocks.ReceiptRepo{
			ListByTicketFunc: func(ctx context.Context, id int64) ([]domain.DeliveryReceipt, error) {
				return []domain.DeliveryReceipt{{TicketID: id, AgentID: 100, MessageRef: "m1"}}, nil
			},
		}
		svc := NewClaimService(ClaimDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(receipts, notifier),
		})

		result, err := svc.AttemptClaim(ctx, ticketID, agentUser(100, "Ana"))
		require.NoError(t, err)
		assert.Equal(t, ClaimWon, result)
	})
}

func TestClaimEscalationRace(t *testing.T) {
	ctx := context.Background()

	newTicketService := func(store *mocks.MemoryTicketRepo) *TicketService {
		return NewTicketService(TicketDependencies{
			TicketRepo: store,
			Dispatch:   newTestDispatch(nil, nil),
			Notifier:   &mocks.Notifier{},
		})
	}

	t.Run("claim before escalation fire keeps the claim", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusUnclaimed})

		claims := NewClaimService(ClaimDependencies{TicketRepo: store, Dispatch: newTestDispatch(nil, nil)})
		tickets := newTicketService(store)

		result, err := claims.AttemptClaim(ctx, ticketID, agentUser(42, "agent"))
		require.NoError(t, err)
		require.Equal(t, ClaimWon, result)

		require.NoError(t, tickets.Escalate(ctx, ticketID))

		ticket, err := store.GetByID(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClaimed, ticket.Status)
		require.NotNil(t, ticket.ClaimedBy)
		assert.Equal(t, int64(42), *ticket.ClaimedBy)
	})

	t.Run("escalation before claim yields a claimed escalated ticket", func(t *testing.T) {
		store := mocks.NewMemoryTicketRepo()
		ticketID := store.Seed(domain.Ticket{Status: domain.TicketStatusUnclaimed})

		claims := NewClaimService(ClaimDependencies{TicketRepo: store, Dispatch: newTestDispatch(nil, nil)})
		tickets := newTicketService(store)

		require.NoError(t, tickets.Escalate(ctx, ticketID))

		result, err := claims.AttemptClaim(ctx, ticketID, agentUser(42, "agent"))
		require.NoError(t, err)
		assert.Equal(t, ClaimWon, result)

		ticket, err := store.GetByID(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClaimed, ticket.Status)
	})
}
