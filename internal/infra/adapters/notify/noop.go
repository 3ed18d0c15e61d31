package notify

import (
	"context"

	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of delivering. Used in dev mode and for
// channels whose transport is not configured (e.g. email before an SMTP
// relay exists).
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	compLog := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &compLog}
}

func (n *NoopNotifier) Send(ctx context.Context, channel model.Channel, destination, subject, body string) error {
	n.log.Info().
		Str("channel", string(channel)).
		Str("destination", destination).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("notification suppressed (noop transport)")
	return nil
}
