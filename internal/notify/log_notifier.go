package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogNotifier is used when no gateway is configured: deliveries are logged
// and get synthetic message refs so the rest of the pipeline still works.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds the stub notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Deliver logs the outbound message.
func (n *LogNotifier) Deliver(ctx context.Context, recipient int64, content string) (string, error) {
	ref := uuid.NewString()
	n.logger.Info("deliver (stub)",
		zap.Int64("recipient", recipient),
		zap.String("message_ref", ref),
		zap.String("content", content))
	return ref, nil
}

// Revise logs the revision.
func (n *LogNotifier) Revise(ctx context.Context, recipient int64, messageRef, content string) error {
	n.logger.Info("revise (stub)",
		zap.Int64("recipient", recipient),
		zap.String("message_ref", messageRef),
		zap.String("content", content))
	return nil
}
