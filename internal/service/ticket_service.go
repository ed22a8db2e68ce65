package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/escalation"
	"github.com/spec-kit/support-router/internal/events"
	"github.com/spec-kit/support-router/internal/i18n"
	"github.com/spec-kit/support-router/internal/notify"
	"github.com/spec-kit/support-router/internal/observability"
	"github.com/spec-kit/support-router/internal/ratelimit"
	"github.com/spec-kit/support-router/internal/repository"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// ErrStaffSubmitter is returned when an agent or owner sends an inbound
// message; staff messages never open tickets.
var ErrStaffSubmitter = errors.New("staff identities do not open tickets")

// SubmitInput describes one inbound user message.
type SubmitInput struct {
	ExternalID  int64
	DisplayName string
	Text        string
	HasPhoto    bool
	DocumentID  string
}

// TicketService drives the ticket lifecycle: submission with fan-out and
// escalation arming, close, reply and rating.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	ratings    repository.RatingRepository
	dispatch   *DispatchService
	scheduler  *escalation.Scheduler
	notifier   notify.Notifier
	limiter    *ratelimit.SlidingWindow
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	delay      time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	UserRepo        repository.UserRepository
	RatingRepo      repository.RatingRepository
	Dispatch        *DispatchService
	Scheduler       *escalation.Scheduler
	Notifier        notify.Notifier
	Limiter         *ratelimit.SlidingWindow
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	EscalationDelay time.Duration
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		ratings:    deps.RatingRepo,
		dispatch:   deps.Dispatch,
		scheduler:  deps.Scheduler,
		notifier:   deps.Notifier,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		delay:      deps.EscalationDelay,
	}
}

// Submit turns an inbound user message into an unclaimed ticket, fans the
// notification out to every agent, and arms the escalation check. Fan-out
// and scheduling failures never fail the submission.
func (s *TicketService) Submit(ctx context.Context, input SubmitInput) (*domain.Ticket, error) {
	if s.limiter != nil && !s.limiter.Allow(input.ExternalID) {
		return nil, apperrors.NewRateLimited()
	}

	user, err := s.users.GetByExternalID(ctx, input.ExternalID)
	if errors.Is(err, pgx.ErrNoRows) {
		user = &domain.User{
			ExternalID:  input.ExternalID,
			DisplayName: input.DisplayName,
			Role:        domain.RolePlain,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
	} else if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if user.IsStaff() {
		return nil, ErrStaffSubmitter
	}

	ticket := &domain.Ticket{
		UserID:  user.ID,
		Status:  domain.TicketStatusUnclaimed,
		Content: buildContent(input),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		// The ticket exists; it just cannot be announced. Escalation will
		// surface it.
		s.logger.Warn("agent listing failed; fan-out skipped",
			zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		agents = nil
	}

	outcomes := s.dispatch.Broadcast(ctx, ticket, user, agents)
	notified, failedCount := 0, 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failedCount++
		} else {
			notified++
		}
	}

	if s.scheduler != nil {
		if err := s.scheduler.Arm(ctx, ticket.ID, s.delay); err != nil {
			// Degraded but safe: the ticket stays claimable, it just never
			// escalates.
			s.logger.Warn("escalation arm failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if _, err := s.notifier.Deliver(ctx, user.ExternalID, i18n.T(user.Language, "ticket_forwarded")); err != nil {
		s.logger.Warn("submitter confirmation failed",
			zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}

	s.publish(ctx, events.EventTicketSubmitted, ticket.ID, events.TicketSubmittedPayload{
		UserExternalID: user.ExternalID,
		ContentPreview: preview(ticket.Content, 120),
		AgentsNotified: notified,
		AgentsFailed:   failedCount,
	})
	return ticket, nil
}

// Close moves the ticket to closed and notifies the owning user. Closing an
// already-closed ticket is an idempotent no-op.
func (s *TicketService) Close(ctx context.Context, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapStoreError("ticket", err)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil
	}

	updated, err := s.tickets.ConditionalUpdateStatus(ctx,
		ticketID, domain.OpenStatuses(), domain.TicketStatusClosed, nil)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if !updated {
		// Lost a race with another close; the end state is what we wanted.
		current, err := s.tickets.GetByID(ctx, ticketID)
		if err == nil && current.Status == domain.TicketStatusClosed {
			return nil
		}
		return apperrors.NewInvalidTransition("ticket cannot be closed",
			map[string]any{"ticket_id": ticketID})
	}

	if user, err := s.users.GetByID(ctx, ticket.UserID); err == nil {
		if _, err := s.notifier.Deliver(ctx, user.ExternalID, i18n.T(user.Language, "ticket_closed")); err != nil {
			s.logger.Warn("close notification failed",
				zap.Int64("ticket_id", ticketID), zap.Error(err))
		}
	}

	s.publish(ctx, events.EventTicketClosed, ticketID, events.TicketClosedPayload{
		FromStatus: ticket.Status,
	})
	return nil
}

// Rate records end-user feedback for a closed ticket. Validation happens
// before any write; the ratings table's uniqueness is the final arbiter for
// racing duplicates.
func (s *TicketService) Rate(ctx context.Context, ticketID int64, score int, feedback string) error {
	if !domain.ValidScore(score) {
		return apperrors.NewValidationError(
			fmt.Sprintf("rating must be between %d and %d", domain.RatingMin, domain.RatingMax),
			map[string]any{"score": score})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapStoreError("ticket", err)
	}
	if ticket.Status != domain.TicketStatusClosed {
		return apperrors.NewNotClosed(ticketID)
	}

	exists, err := s.ratings.ExistsForTicket(ctx, ticketID)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if exists {
		return apperrors.NewAlreadyRated(ticketID)
	}

	rating := &domain.Rating{TicketID: ticketID, Score: score, Feedback: strings.TrimSpace(feedback)}
	if err := s.ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrDuplicateRating) {
			return apperrors.NewAlreadyRated(ticketID)
		}
		return apperrors.NewStoreUnavailable(err)
	}

	s.publish(ctx, events.EventTicketRated, ticketID, events.TicketRatedPayload{Score: score})
	return nil
}

// Reply sends an agent message to the ticket's owning user.
func (s *TicketService) Reply(ctx context.Context, ticketID int64, agent *domain.User, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("reply text required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapStoreError("ticket", err)
	}
	user, err := s.users.GetByID(ctx, ticket.UserID)
	if err != nil {
		return apperrors.MapStoreError("user", err)
	}

	if _, err := s.notifier.Deliver(ctx, user.ExternalID, text); err != nil {
		return apperrors.NewDeliveryFailure(err)
	}

	s.publish(ctx, events.EventTicketReplied, ticketID, events.TicketRepliedPayload{
		AgentExternalID: agent.ExternalID,
		BodyPreview:     preview(text, 120),
	})
	return nil
}

// Escalate is the deferred check fired by the scheduler. It re-validates at
// fire time through the same conditional update used by claims: only a still
// unclaimed ticket moves to escalated, and claimed_by is never touched, so a
// racing claim cannot be clobbered.
func (s *TicketService) Escalate(ctx context.Context, ticketID int64) error {
	updated, err := s.tickets.ConditionalUpdateStatus(ctx,
		ticketID, []domain.TicketStatus{domain.TicketStatusUnclaimed}, domain.TicketStatusEscalated, nil)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if !updated {
		// Claimed or closed in the meantime; escalation is advisory.
		return nil
	}

	s.metrics.RecordEscalation()
	s.logger.Info("ticket escalated", zap.Int64("ticket_id", ticketID))

	var unclaimedFor time.Duration
	if ticket, err := s.tickets.GetByID(ctx, ticketID); err == nil {
		unclaimedFor = time.Since(ticket.CreatedAt)
	}
	s.publish(ctx, events.EventTicketEscalated, ticketID, events.TicketEscalatedPayload{
		UnclaimedFor: unclaimedFor,
	})
	return nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID int64, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func buildContent(input SubmitInput) string {
	content := input.Text
	if input.DocumentID != "" {
		content += fmt.Sprintf(" [document: %s]", input.DocumentID)
	}
	if input.HasPhoto {
		content += " [photo]"
	}
	return strings.TrimSpace(content)
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
