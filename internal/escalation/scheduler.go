package escalation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// FireFunc re-validates and escalates one ticket. It must apply the
// unclaimed->escalated transition through the store's conditional update so
// a racing claim is never clobbered.
type FireFunc func(ctx context.Context, ticketID int64) error

// Scheduler arms one deferred check per new ticket and runs the poll loop
// that fires due checks.
type Scheduler struct {
	queue    Queue
	fire     FireFunc
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler constructs the scheduler.
func NewScheduler(queue Queue, fire FireFunc, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{queue: queue, fire: fire, interval: interval, logger: logger}
}

// Arm schedules the deferred unclaimed check for a ticket. An unavailable
// queue is degraded-but-safe: the error is returned for logging and the
// ticket simply stays claimable with no escalation.
func (s *Scheduler) Arm(ctx context.Context, ticketID int64, delay time.Duration) error {
	return s.queue.Add(ctx, ticketID, time.Now().Add(delay))
}

// Run polls for due checks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.queue.PopDue(ctx, time.Now(), 100)
	if err != nil {
		s.logger.Warn("escalation poll failed", zap.Error(err))
		return
	}
	for _, ticketID := range due {
		if err := s.fire(ctx, ticketID); err != nil {
			s.logger.Warn("escalation fire failed",
				zap.Int64("ticket_id", ticketID),
				zap.Error(err))
		}
	}
}
