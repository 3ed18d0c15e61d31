package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.FailureNotifier = (*AdminFailureNotifier)(nil)

// AdminFailureNotifier alerts the operator chat about terminal job
// failures and circuit-breaker pauses. Best-effort by contract: every
// error is swallowed after logging, with a short deadline so a hung
// transport cannot stall the executor.
type AdminFailureNotifier struct {
	notifier    adapter.Notifier
	adminChatID int64
	log         *zerolog.Logger
}

func NewAdminFailureNotifier(notifier adapter.Notifier, adminChatID int64, logger *zerolog.Logger) *AdminFailureNotifier {
	compLog := logger.With().Str("component", "AdminFailureNotifier").Logger()
	return &AdminFailureNotifier{notifier: notifier, adminChatID: adminChatID, log: &compLog}
}

func (n *AdminFailureNotifier) NotifyFailure(ctx context.Context, job model.JobKind, errorMessage string, retryCount int) {
	if n.adminChatID == 0 {
		n.log.Warn().
			Str("job", string(job)).
			Str("error", errorMessage).
			Int("retry_count", retryCount).
			Msg("job failure alert (no admin chat configured)")
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	subject := fmt.Sprintf("Job failure: %s", job)
	body := fmt.Sprintf("Error: %s\nRetry attempts: %d\nTime: %s", errorMessage, retryCount, time.Now().Format(time.RFC3339))
	dest := strconv.FormatInt(n.adminChatID, 10)
	if err := n.notifier.Send(sendCtx, model.ChannelTelegram, dest, subject, body); err != nil {
		n.log.Error().Err(err).Str("job", string(job)).Msg("failed to send failure notification")
	}
}
