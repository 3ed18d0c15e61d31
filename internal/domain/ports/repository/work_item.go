package repository

import (
	"context"

	"event-keyword-monitor/internal/domain/model"
)

// WorkItemRepository is the port for collected events. The dispatcher's
// only mutation is MarkProcessed; Save belongs to the collection job.
type WorkItemRepository interface {
	// Save inserts the item. Returns domain.ErrAlreadyExists when an item
	// with the same (title, starts_on) is already stored.
	Save(ctx context.Context, tx Tx, item *model.WorkItem) error
	ListUnprocessed(ctx context.Context, tx Tx, limit int) ([]*model.WorkItem, error)
	// MarkProcessed is monotonic: a processed item never reverts.
	MarkProcessed(ctx context.Context, tx Tx, id string) error
}
