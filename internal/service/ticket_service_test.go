package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/escalation"
	"github.com/spec-kit/support-router/internal/ratelimit"
	"github.com/spec-kit/support-router/internal/repository"
	"github.com/spec-kit/support-router/internal/service/mocks"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// downQueue simulates an unreachable escalation substrate.
type downQueue struct{}

func (downQueue) Add(ctx context.Context, ticketID int64, due time.Time) error {
	return errors.New("dial tcp: connection refused")
}

func (downQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	return nil, errors.New("dial tcp: connection refused")
}

type submitFixture struct {
	store    *mocks.MemoryTicketRepo
	users    *mocks.UserRepo
	ratings  *mocks.RatingRepo
	notifier *mocks.Notifier
	created  []*domain.User
}

func newSubmitFixture(agents []domain.User) *submitFixture {
	f := &submitFixture{
		store:    mocks.NewMemoryTicketRepo(),
		notifier: &mocks.Notifier{},
	}
	f.users = &mocks.UserRepo{
		GetByExternalIDFunc: func(ctx context.Context, externalID int64) (*domain.User, error) {
			for _, u := range f.created {
				if u.ExternalID == externalID {
					return u, nil
				}
			}
			return nil, pgx.ErrNoRows
		},
		CreateFunc: func(ctx context.Context, user *domain.User) error {
			user.ID = "u-created"
			f.created = append(f.created, user)
			return nil
		},
		ListByRoleFunc: func(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
			return agents, nil
		},
	}
	f.ratings = &mocks.RatingRepo{
		ExistsForTicketFunc: func(ctx context.Context, ticketID int64) (bool, error) {
			return false, nil
		},
		CreateFunc: func(ctx context.Context, rating *domain.Rating) error {
			return nil
		},
	}
	return f
}

func (f *submitFixture) service(opts ...func(*TicketDependencies)) *TicketService {
	deps := TicketDependencies{
		TicketRepo: f.store,
		UserRepo:   f.users,
		RatingRepo: f.ratings,
		Dispatch:   newTestDispatch(nil, f.notifier),
		Notifier:   f.notifier,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewTicketService(deps)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	agents := []domain.User{
		{ExternalID: 100, DisplayName: "A", Role: domain.RoleAgent, Language: "en"},
		{ExternalID: 101, DisplayName: "B", Role: domain.RoleAgent, Language: "es"},
	}

	t.Run("creates ticket and notifies every agent plus submitter", func(t *testing.T) {
		f := newSubmitFixture(agents)
		svc := f.service()

		ticket, err := svc.Submit(ctx, SubmitInput{ExternalID: 1, DisplayName: "Pat", Text: "it broke"})
		require.NoError(t, err)
		require.NotNil(t, ticket)
		assert.Equal(t, domain.TicketStatusUnclaimed, ticket.Status)
		assert.Equal(t, "it broke", ticket.Content)

		// two agents plus the submitter confirmation
		assert.Len(t, f.notifier.Delivered, 3)
	})

	t.Run("one delivery failure never aborts the rest", func(t *testing.T) {
		f := newSubmitFixture(agents)
		f.notifier.DeliverFunc = func(ctx context.Context, recipient int64, content string) (string, error) {
			if recipient == 100 {
				return "", errors.New("blocked")
			}
			return "ref", nil
		}
		svc := f.service()

		ticket, err := svc.Submit(ctx, SubmitInput{ExternalID: 1, DisplayName: "Pat", Text: "it broke"})
		require.NoError(t, err)
		require.NotNil(t, ticket)

		recipients := make([]int64, 0, len(f.notifier.Delivered))
		for _, d := range f.notifier.Delivered {
			recipients = append(recipients, d.Recipient)
		}
		assert.Contains(t, recipients, int64(101))
		assert.NotContains(t, recipients, int64(100))
	})

	t.Run("staff submitter never opens a ticket", func(t *testing.T) {
		f := newSubmitFixture(agents)
		f.created = append(f.created, &domain.User{ID: "u-staff", ExternalID: 9, Role: domain.RoleAgent})
		svc := f.service()

		_, err := svc.Submit(ctx, SubmitInput{ExternalID: 9, DisplayName: "Agent", Text: "hi"})
		require.ErrorIs(t, err, ErrStaffSubmitter)

		count, _ := f.store.CountAll(ctx)
		assert.Zero(t, count)
	})

	t.Run("attachments are folded into content", func(t *testing.T) {
		f := newSubmitFixture(nil)
		svc := f.service()

		ticket, err := svc.Submit(ctx, SubmitInput{ExternalID: 1, Text: "see file", DocumentID: "doc-9", HasPhoto: true})
		require.NoError(t, err)
		assert.Equal(t, "see file [document: doc-9] [photo]", ticket.Content)
	})

	t.Run("submission survives an unavailable escalation queue", func(t *testing.T) {
		f := newSubmitFixture(nil)
		svc := f.service(func(deps *TicketDependencies) {
			deps.Scheduler = escalation.NewScheduler(downQueue{}, nil, time.Second, zap.NewNop())
			deps.EscalationDelay = 5 * time.Minute
		})

		ticket, err := svc.Submit(ctx, SubmitInput{ExternalID: 1, DisplayName: "Pat", Text: "help"})
		require.NoError(t, err)
		require.NotNil(t, ticket)
		assert.Equal(t, domain.TicketStatusUnclaimed, ticket.Status)
	})

	t.Run("burst beyond the window is rejected", func(t *testing.T) {
		f := newSubmitFixture(nil)
		svc := f.service(func(deps *TicketDependencies) {
			deps.Limiter = ratelimit.NewSlidingWindow(2, time.Minute)
		})

		for i := 0; i < 2; i++ {
			_, err := svc.Submit(ctx, SubmitInput{ExternalID: 1, Text: "msg"})
			require.NoError(t, err)
		}
		_, err := svc.Submit(ctx, SubmitInput{ExternalID: 1, Text: "msg"})
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "RATE_LIMITED", derr.Code)

		// another identity is unaffected
		_, err = svc.Submit(ctx, SubmitInput{ExternalID: 2, Text: "msg"})
		require.NoError(t, err)
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	t.Run("closes an open ticket and notifies the owner", func(t *testing.T) {
		f := newSubmitFixture(nil)
		owner := &domain.User{ID: "u-1", ExternalID: 5, Language: "en"}
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
			return owner, nil
		}
		ticketID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusClaimed})

		svc := f.service()
		require.NoError(t, svc.Close(ctx, ticketID))

		ticket, err := f.store.GetByID(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
		require.Len(t, f.notifier.Delivered, 1)
		assert.Equal(t, int64(5), f.notifier.Delivered[0].Recipient)
	})

	t.Run("closing twice is a no-op", func(t *testing.T) {
		f := newSubmitFixture(nil)
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, ExternalID: 5}, nil
		}
		ticketID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusUnclaimed})

		svc := f.service()
		require.NoError(t, svc.Close(ctx, ticketID))
		require.NoError(t, svc.Close(ctx, ticketID))

		// only the first close notifies
		assert.Len(t, f.notifier.Delivered, 1)
	})

	t.Run("missing ticket reports not found", func(t *testing.T) {
		f := newSubmitFixture(nil)
		svc := f.service()

		err := svc.Close(ctx, 404)
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "NOT_FOUND", derr.Code)
	})
}

func TestRate(t *testing.T) {
	ctx := context.Background()

	seedClosed := func(f *submitFixture) int64 {
		return f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusClosed})
	}

	t.Run("accepts a valid score on a closed ticket", func(t *testing.T) {
		f := newSubmitFixture(nil)
		var saved *domain.Rating
		f.ratings.CreateFunc = func(ctx context.Context, rating *domain.Rating) error {
			saved = rating
			return nil
		}
		ticketID := seedClosed(f)

		require.NoError(t, f.service().Rate(ctx, ticketID, 5, "  great  "))
		require.NotNil(t, saved)
		assert.Equal(t, 5, saved.Score)
		assert.Equal(t, "great", saved.Feedback)
	})

	t.Run("rejects out-of-range scores before any read", func(t *testing.T) {
		f := newSubmitFixture(nil)
		svc := f.service()

		for _, score := range []int{0, 6, -1} {
			err := svc.Rate(ctx, 1, score, "")
			var derr *apperrors.DomainError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, "VALIDATION_FAILED", derr.Code)
		}
	})

	t.Run("rejects rating while the ticket is open", func(t *testing.T) {
		f := newSubmitFixture(nil)
		ticketID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusClaimed})

		err := f.service().Rate(ctx, ticketID, 4, "")
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "NOT_CLOSED", derr.Code)
	})

	t.Run("rejects a second rating", func(t *testing.T) {
		f := newSubmitFixture(nil)
		f.ratings.ExistsForTicketFunc = func(ctx context.Context, ticketID int64) (bool, error) {
			return true, nil
		}
		ticketID := seedClosed(f)

		err := f.service().Rate(ctx, ticketID, 4, "")
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "ALREADY_RATED", derr.Code)
	})

	t.Run("racing duplicate surfaces as already rated", func(t *testing.T) {
		f := newSubmitFixture(nil)
		f.ratings.CreateFunc = func(ctx context.Context, rating *domain.Rating) error {
			return repository.ErrDuplicateRating
		}
		ticketID := seedClosed(f)

		err := f.service().Rate(ctx, ticketID, 4, "")
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "ALREADY_RATED", derr.Code)
	})
}

func TestReply(t *testing.T) {
	ctx := context.Background()
	agent := &domain.User{ExternalID: 100, Role: domain.RoleAgent}

	t.Run("delivers the reply to the ticket owner", func(t *testing.T) {
		f := newSubmitFixture(nil)
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, ExternalID: 5}, nil
		}
		ticketID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusClaimed})

		require.NoError(t, f.service().Reply(ctx, ticketID, agent, "on it"))
		require.Len(t, f.notifier.Delivered, 1)
		assert.Equal(t, int64(5), f.notifier.Delivered[0].Recipient)
		assert.Equal(t, "on it", f.notifier.Delivered[0].Content)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		f := newSubmitFixture(nil)
		err := f.service().Reply(ctx, 1, agent, "   ")
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "VALIDATION_FAILED", derr.Code)
	})

	t.Run("transport failure surfaces as delivery error", func(t *testing.T) {
		f := newSubmitFixture(nil)
		f.users.GetByIDFunc = func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, ExternalID: 5}, nil
		}
		f.notifier.DeliverFunc = func(ctx context.Context, recipient int64, content string) (string, error) {
			return "", errors.New("user blocked the bot")
		}
		ticketID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusClaimed})

		err := f.service().Reply(ctx, ticketID, agent, "hello")
		var derr *apperrors.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "DELIVERY_FAILED", derr.Code)
	})
}

func TestEscalate(t *testing.T) {
	ctx := context.Background()

	t.Run("moves an unclaimed ticket to escalated", func(t *testing.T) {
		f := newSubmitFixture(nil)
		ticketID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusUnclaimed})

		require.NoError(t, f.service().Escalate(ctx, ticketID))

		ticket, err := f.store.GetByID(ctx, ticketID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusEscalated, ticket.Status)
	})

	t.Run("claimed and closed tickets are left alone", func(t *testing.T) {
		f := newSubmitFixture(nil)
		agentID := int64(100)
		claimedID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusClaimed, ClaimedBy: &agentID})
		closedID := f.store.Seed(domain.Ticket{UserID: "u-1", Status: domain.TicketStatusClosed})

		svc := f.service()
		require.NoError(t, svc.Escalate(ctx, claimedID))
		require.NoError(t, svc.Escalate(ctx, closedID))

		claimed, _ := f.store.GetByID(ctx, claimedID)
		assert.Equal(t, domain.TicketStatusClaimed, claimed.Status)
		require.NotNil(t, claimed.ClaimedBy)
		assert.Equal(t, agentID, *claimed.ClaimedBy)

		closed, _ := f.store.GetByID(ctx, closedID)
		assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	})
}
