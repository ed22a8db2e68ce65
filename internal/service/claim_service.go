package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/events"
	"github.com/spec-kit/support-router/internal/observability"
	"github.com/spec-kit/support-router/internal/repository"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// ClaimResult is the outcome of a claim attempt.
type ClaimResult int

const (
	ClaimLost ClaimResult = iota
	ClaimWon
	ClaimNotFound
)

// String implements fmt.Stringer.
func (r ClaimResult) String() string {
	switch r {
	case ClaimWon:
		return "WON"
	case ClaimNotFound:
		return "NOT_FOUND"
	default:
		return "LOST"
	}
}

// ClaimService serializes concurrent claim attempts so exactly one agent wins
// each ticket. The store's conditional update is the only synchronization
// primitive; no in-process lock is involved, so the guarantee holds across
// independent service instances sharing the store.
type ClaimService struct {
	tickets    repository.TicketRepository
	dispatch   *DispatchService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ClaimDependencies bundles collaborators for the claim service.
type ClaimDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatch   *DispatchService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewClaimService constructs the service.
func NewClaimService(deps ClaimDependencies) *ClaimService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		tickets:    deps.TicketRepo,
		dispatch:   deps.Dispatch,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// AttemptClaim tries to claim the ticket for the agent. Under N concurrent
// attempts exactly one returns ClaimWon; the rest see ClaimLost and the
// caller shows "already claimed". A late claim on an escalated ticket is
// legal. On a win the recorded deliveries are revised best-effort; revision
// failures never fail the claim.
func (s *ClaimService) AttemptClaim(ctx context.Context, ticketID int64, agent *domain.User) (ClaimResult, error) {
	if !agent.IsStaff() {
		return ClaimLost, apperrors.NewForbidden("agent role required")
	}

	updated, err := s.tickets.ConditionalUpdateStatus(ctx,
		ticketID, domain.ClaimableStatuses(), domain.TicketStatusClaimed, &agent.ExternalID)
	if err != nil {
		// The guard could not be evaluated: report failure, never guess.
		return ClaimLost, apperrors.NewStoreUnavailable(err)
	}

	if !updated {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ClaimNotFound, nil
			}
			return ClaimLost, apperrors.NewStoreUnavailable(err)
		}
		s.metrics.RecordClaim(false)
		s.logger.Info("claim lost",
			zap.Int64("ticket_id", ticket.ID),
			zap.Int64("agent_id", agent.ExternalID),
			zap.String("status", string(ticket.Status)))
		return ClaimLost, nil
	}

	s.metrics.RecordClaim(true)
	s.logger.Info("claim won",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("agent_id", agent.ExternalID))

	if failed, err := s.dispatch.ReviseOnClaim(ctx, ticketID, agent.DisplayName); err != nil {
		s.logger.Warn("receipt revision pass failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
	} else if failed > 0 {
		s.logger.Warn("some receipt revisions failed",
			zap.Int64("ticket_id", ticketID),
			zap.Int("failed", failed))
	}

	s.publish(ctx, ticketID, agent.ExternalID)
	return ClaimWon, nil
}

func (s *ClaimService) publish(ctx context.Context, ticketID, agentID int64) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketClaimed,
		TicketID:  ticketID,
		Timestamp: time.Now(),
		Payload: events.TicketClaimedPayload{
			AgentExternalID: agentID,
		},
	})
}
