package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/events"
	"github.com/spec-kit/support-router/internal/i18n"
	"github.com/spec-kit/support-router/internal/notify"
)

// NotificationService reacts to domain events: it logs the stream and sends
// the owner a second-tier notice when a ticket escalates.
type NotificationService struct {
	dispatcher      events.Dispatcher
	notifier        notify.Notifier
	logger          *zap.Logger
	ownerExternalID int64
}

// NewNotificationService creates the service. ownerExternalID of 0 disables
// owner notices.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, logger *zap.Logger, ownerExternalID int64) *NotificationService {
	return &NotificationService{
		dispatcher:      dispatcher,
		notifier:        notifier,
		logger:          logger,
		ownerExternalID: ownerExternalID,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes() {
		n.dispatcher.Subscribe(eventType, n.logEvent)
	}
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleEscalated)
}

func (n *NotificationService) logEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.Int64("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleEscalated(ctx context.Context, event events.Event) error {
	if n.ownerExternalID == 0 {
		return nil
	}
	content := i18n.F(i18n.DefaultLanguage, "ticket_escalated", event.TicketID)
	if _, err := n.notifier.Deliver(ctx, n.ownerExternalID, content); err != nil {
		n.logger.Warn("owner escalation notice failed",
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}
