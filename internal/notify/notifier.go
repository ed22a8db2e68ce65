package notify

import "context"

// Notifier delivers a rendered message to one chat identity and can later
// revise a previously delivered message. Each call fails independently;
// callers tolerate per-recipient failures and never retry here.
type Notifier interface {
	Deliver(ctx context.Context, recipient int64, content string) (messageRef string, err error)
	Revise(ctx context.Context, recipient int64, messageRef, content string) error
}
