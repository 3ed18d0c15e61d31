package adapter

import (
	"context"

	"event-keyword-monitor/internal/domain/model"
)

// Notifier delivers one message to one recipient. The transport behind
// it (SMTP, Telegram, ...) is opaque to the core.
type Notifier interface {
	Send(ctx context.Context, channel model.Channel, destination, subject, body string) error
}

// FailureNotifier alerts operators about terminal job failures and
// circuit-breaker pauses. Implementations are best-effort: errors are
// logged by the implementation and never returned to the caller.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, job model.JobKind, errorMessage string, retryCount int)
}
