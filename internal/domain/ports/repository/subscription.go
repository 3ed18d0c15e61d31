package repository

import (
	"context"

	"event-keyword-monitor/internal/domain/model"
)

// SubscriptionRepository is the port for keyword subscriptions. The
// dispatcher only ever reads; writes come from the (out of scope)
// settings CRUD surface and the seed tool.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// ListActive returns active subscriptions only. Destination filtering
	// is left to the caller so addressless rows can be skipped and logged.
	ListActive(ctx context.Context, tx Tx) ([]*model.Subscription, error)
}
