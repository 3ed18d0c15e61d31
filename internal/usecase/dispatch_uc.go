package usecase

import (
	"context"
	"fmt"
	"strings"

	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"
	"event-keyword-monitor/internal/domain/ports/repository"
	"event-keyword-monitor/internal/infra/logging"
	"event-keyword-monitor/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ DispatchUseCase = (*dispatchUC)(nil)

// DispatchUseCase matches unprocessed work items against active keyword
// subscriptions and fans out one bundled notification per recipient.
type DispatchUseCase interface {
	Run(ctx context.Context) (*model.JobOutcome, error)
}

type dispatchUC struct {
	subs     repository.SubscriptionRepository
	items    repository.WorkItemRepository
	notifier adapter.Notifier
	txm      repository.TransactionManager
	batch    int
	log      *zerolog.Logger
}

func NewDispatchUseCase(
	subs repository.SubscriptionRepository,
	items repository.WorkItemRepository,
	notifier adapter.Notifier,
	txm repository.TransactionManager,
	batch int,
	logger *zerolog.Logger,
) *dispatchUC {
	compLog := logger.With().Str("component", "DispatchUC").Logger()
	if batch <= 0 {
		batch = 100
	}
	return &dispatchUC{subs: subs, items: items, notifier: notifier, txm: txm, batch: batch, log: &compLog}
}

// recipient aggregates everything going to one destination so a user
// gets a single bundled message per pass instead of one per item. seen
// keeps an item from entering the same digest twice when several of the
// destination's subscriptions match it.
type recipient struct {
	channel model.Channel
	titles  []string
	seen    map[string]struct{}
}

func (u *dispatchUC) Run(ctx context.Context) (*model.JobOutcome, error) {
	defer logging.TraceDuration(u.log, "DispatchUC.Run")()

	subs, err := u.subs.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		u.log.Info().Msg("no active subscriptions; nothing to do")
		return &model.JobOutcome{}, nil
	}

	items, err := u.items.ListUnprocessed(ctx, repository.NoTX, u.batch)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		u.log.Info().Msg("no unprocessed work items; nothing to do")
		return &model.JobOutcome{}, nil
	}

	u.log.Debug().Int("subscriptions", len(subs)).Int("items", len(items)).Msg("matching")

	byDestination := make(map[string]*recipient)
	matchedItems := make(map[string]string) // item ID -> title
	usersMatched := 0

	for _, sub := range subs {
		if strings.TrimSpace(sub.Destination) == "" {
			// Active but addressless; skipped silently by design.
			continue
		}
		matchedAny := false
		for _, item := range items {
			if !sub.Matches(item.Title) {
				continue
			}
			rec, ok := byDestination[sub.Destination]
			if !ok {
				rec = &recipient{channel: sub.Channel, seen: make(map[string]struct{})}
				byDestination[sub.Destination] = rec
			}
			if _, dup := rec.seen[item.ID]; !dup {
				rec.seen[item.ID] = struct{}{}
				rec.titles = append(rec.titles, item.Title)
			}
			matchedItems[item.ID] = item.Title
			matchedAny = true
		}
		if matchedAny {
			usersMatched++
		}
	}

	sent := 0
	for dest, rec := range byDestination {
		subject, body := formatDigest(rec.titles)
		if err := u.notifier.Send(ctx, rec.channel, dest, subject, body); err != nil {
			// Best-effort fan-out: one bad recipient must not abort the rest.
			metrics.IncNotification(string(rec.channel), "failed")
			u.log.Error().Err(err).Str("channel", string(rec.channel)).Msg("notification dispatch failed")
			continue
		}
		metrics.IncNotification(string(rec.channel), "sent")
		sent++
	}

	// Matched items are "seen" regardless of dispatch outcome; a failed
	// dispatch is not re-driven by re-processing the item. The whole
	// batch flips in one transaction so a pass never half-marks.
	processed := 0
	if len(matchedItems) > 0 {
		err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			for id := range matchedItems {
				if err := u.items.MarkProcessed(ctx, tx, id); err != nil {
					return fmt.Errorf("mark processed %s: %w", id, err)
				}
				processed++
			}
			return nil
		})
		if err != nil {
			u.log.Error().Err(err).Msg("mark processed batch failed")
			processed = 0
		}
	}
	metrics.AddWorkItemsProcessed(processed)

	u.log.Info().
		Int("users_matched", usersMatched).
		Int("notifications_sent", sent).
		Int("items_matched", len(matchedItems)).
		Msg("dispatch pass complete")

	return &model.JobOutcome{
		ItemsScanned: usersMatched,
		ItemsNew:     sent,
		Payload: map[string]any{
			"users_matched":      usersMatched,
			"notifications_sent": sent,
			"items_matched":      len(matchedItems),
			"items_scanned":      len(items),
		},
	}, nil
}

func formatDigest(titles []string) (subject, body string) {
	subject = "New events matching your keywords"
	var b strings.Builder
	b.WriteString("The following events matched keywords you watch:\n\n")
	for i, title := range titles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}
	b.WriteString("\nSign in to the site for details. This message was sent automatically; do not reply.")
	return subject, b.String()
}
