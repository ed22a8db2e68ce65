package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/escalation"
	"github.com/spec-kit/support-router/internal/events"
	"github.com/spec-kit/support-router/internal/service"
)

// Worker owns the background side of the service: event subscriptions and
// the escalation poll loop.
type Worker struct {
	scheduler     *escalation.Scheduler
	notifications *service.NotificationService
	publisher     *events.AMQPPublisher
	dispatcher    events.Dispatcher
	logger        *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Dependencies bundles collaborators for the worker. Publisher and Scheduler
// may be nil when the broker or Redis are not configured.
type Dependencies struct {
	Scheduler     *escalation.Scheduler
	Notifications *service.NotificationService
	Publisher     *events.AMQPPublisher
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// New constructs the worker.
func New(deps Dependencies) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		scheduler:     deps.Scheduler,
		notifications: deps.Notifications,
		publisher:     deps.Publisher,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// Start registers event handlers and launches the escalation loop.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	if w.notifications != nil {
		w.notifications.RegisterHandlers()
	}
	if w.publisher != nil {
		w.publisher.Register(w.dispatcher)
	}

	if w.scheduler == nil {
		w.logger.Warn("escalation scheduler disabled, tickets will not auto-escalate")
	} else {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.scheduler.Run(ctx)
		}()
		w.logger.Info("escalation scheduler started")
	}
}

// Stop halts the escalation loop and closes the broker connection.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if w.publisher != nil {
		w.publisher.Close()
	}
	w.logger.Info("worker stopped")
}
