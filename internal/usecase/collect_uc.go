package usecase

import (
	"context"
	"errors"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"
	"event-keyword-monitor/internal/domain/ports/repository"
	"event-keyword-monitor/internal/infra/logging"
	"event-keyword-monitor/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ CollectUseCase = (*collectUC)(nil)

// CollectUseCase runs one collection pass: fetch the current batch from
// the data source and persist what is new.
type CollectUseCase interface {
	Run(ctx context.Context) (*model.JobOutcome, error)
}

type collectUC struct {
	collector adapter.DataCollector
	items     repository.WorkItemRepository
	log       *zerolog.Logger
}

func NewCollectUseCase(collector adapter.DataCollector, items repository.WorkItemRepository, logger *zerolog.Logger) *collectUC {
	compLog := logger.With().Str("component", "CollectUC").Logger()
	return &collectUC{collector: collector, items: items, log: &compLog}
}

func (u *collectUC) Run(ctx context.Context) (*model.JobOutcome, error) {
	defer logging.TraceDuration(u.log, "CollectUC.Run")()

	events, err := u.collector.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	saved := 0
	for _, ev := range events {
		item := &model.WorkItem{
			Title:    ev.Title,
			StartsOn: ev.StartsOn,
			EndsOn:   ev.EndsOn,
		}
		if err := u.items.Save(ctx, repository.NoTX, item); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// Same (title, starts_on) seen on an earlier pass.
				metrics.AddWorkItemsCollected("duplicate", 1)
				continue
			}
			return nil, err
		}
		saved++
	}
	metrics.AddWorkItemsCollected("new", saved)

	u.log.Info().Int("scanned", len(events)).Int("new", saved).Msg("collection pass complete")

	return &model.JobOutcome{
		ItemsScanned: len(events),
		ItemsNew:     saved,
		Payload: map[string]any{
			"total_scanned":   len(events),
			"total_saved_new": saved,
		},
	}, nil
}
