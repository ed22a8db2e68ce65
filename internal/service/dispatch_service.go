package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/i18n"
	"github.com/spec-kit/support-router/internal/notify"
	"github.com/spec-kit/support-router/internal/observability"
	"github.com/spec-kit/support-router/internal/repository"
)

// DeliveryOutcome is the per-recipient result of a fan-out pass.
type DeliveryOutcome struct {
	AgentID int64
	Receipt *domain.DeliveryReceipt
	Err     error
}

// DispatchService fans notifications out to the agent pool and later revises
// every recorded delivery to show the claim winner.
type DispatchService struct {
	receipts repository.ReceiptRepository
	notifier notify.Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// DispatchDependencies bundles collaborators for the dispatch service.
type DispatchDependencies struct {
	ReceiptRepo repository.ReceiptRepository
	Notifier    notify.Notifier
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewDispatchService constructs the service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchService{
		receipts: deps.ReceiptRepo,
		notifier: deps.Notifier,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// Broadcast delivers the new-ticket notification to every agent. Deliveries
// run independently: one failure never aborts the rest, and nothing here is
// retried. Every successful delivery is recorded as a receipt so the claim
// pass can revise it later.
func (s *DispatchService) Broadcast(ctx context.Context, ticket *domain.Ticket, submitter *domain.User, agents []domain.User) []DeliveryOutcome {
	outcomes := make([]DeliveryOutcome, len(agents))

	var g errgroup.Group
	for i := range agents {
		agent := agents[i]
		slot := &outcomes[i]
		g.Go(func() error {
			slot.AgentID = agent.ExternalID
			content := i18n.F(agent.Language, "new_ticket",
				submitter.DisplayName, submitter.ExternalID, ticket.Content)

			ref, err := s.notifier.Deliver(ctx, agent.ExternalID, content)
			if err != nil {
				slot.Err = err
				s.metrics.RecordDeliveryFailure()
				s.logger.Warn("delivery failed",
					zap.Int64("ticket_id", ticket.ID),
					zap.Int64("agent_id", agent.ExternalID),
					zap.Error(err))
				return nil
			}

			receipt := &domain.DeliveryReceipt{
				TicketID:   ticket.ID,
				AgentID:    agent.ExternalID,
				MessageRef: ref,
			}
			if err := s.receipts.Create(ctx, receipt); err != nil {
				// Delivered but unrecorded: the message cannot be revised
				// on claim, so report the recipient as failed.
				slot.Err = err
				s.logger.Warn("receipt record failed",
					zap.Int64("ticket_id", ticket.ID),
					zap.Int64("agent_id", agent.ExternalID),
					zap.Error(err))
				return nil
			}
			slot.Receipt = receipt
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// ReviseOnClaim rewrites every recorded delivery for the ticket to show the
// winner. Each revision failure is tolerated independently; the failure count
// is returned for callers that want the aggregate. The claim itself never
// fails here.
func (s *DispatchService) ReviseOnClaim(ctx context.Context, ticketID int64, winnerName string) (failed int, err error) {
	receipts, err := s.receipts.ListByTicket(ctx, ticketID)
	if err != nil {
		return 0, err
	}

	content := i18n.F(i18n.DefaultLanguage, "claimed_by", winnerName)
	for _, receipt := range receipts {
		if err := s.notifier.Revise(ctx, receipt.AgentID, receipt.MessageRef, content); err != nil {
			failed++
			s.metrics.RecordRevisionFailure()
			s.logger.Warn("revision failed",
				zap.Int64("ticket_id", ticketID),
				zap.Int64("agent_id", receipt.AgentID),
				zap.Error(err))
		}
	}
	return failed, nil
}
