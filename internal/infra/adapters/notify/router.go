package notify

import (
	"context"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*Router)(nil)

// Router picks the transport by channel type. Channels without a
// registered transport fail the send; the dispatcher logs and moves on.
type Router struct {
	transports map[model.Channel]adapter.Notifier
}

func NewRouter() *Router {
	return &Router{transports: make(map[model.Channel]adapter.Notifier)}
}

func (r *Router) Mount(channel model.Channel, n adapter.Notifier) *Router {
	r.transports[channel] = n
	return r
}

func (r *Router) Send(ctx context.Context, channel model.Channel, destination, subject, body string) error {
	n, ok := r.transports[channel]
	if !ok {
		return domain.ErrInvalidArgument
	}
	return n.Send(ctx, channel, destination, subject, body)
}
