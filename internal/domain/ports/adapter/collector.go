package adapter

import (
	"context"
	"time"
)

// CollectedEvent is one raw record returned by the data source before
// it is persisted as a work item.
type CollectedEvent struct {
	Title    string
	StartsOn time.Time
	EndsOn   *time.Time
}

// DataCollector is the opaque data source behind the collection job.
// Fetch returns the current batch of events or an error; retry and
// history bookkeeping happen above it.
type DataCollector interface {
	Fetch(ctx context.Context) ([]CollectedEvent, error)
}
