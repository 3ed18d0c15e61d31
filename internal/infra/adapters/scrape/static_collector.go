package scrape

import (
	"context"

	"event-keyword-monitor/internal/domain/ports/adapter"
)

var _ adapter.DataCollector = (*StaticCollector)(nil)

// StaticCollector returns a fixed batch. Used in dev mode and by the
// seed tool so the pipeline can be exercised without a live scraper.
type StaticCollector struct {
	events []adapter.CollectedEvent
}

func NewStaticCollector(events []adapter.CollectedEvent) *StaticCollector {
	return &StaticCollector{events: events}
}

func (c *StaticCollector) Fetch(ctx context.Context) ([]adapter.CollectedEvent, error) {
	out := make([]adapter.CollectedEvent, len(c.events))
	copy(out, c.events)
	return out, nil
}
