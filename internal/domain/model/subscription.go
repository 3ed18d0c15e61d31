package model

import (
	"strings"
	"time"

	"event-keyword-monitor/internal/domain"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
)

// RequiresDestination reports whether the channel needs an explicit
// destination address on the subscription.
func (c Channel) RequiresDestination() bool {
	return c == ChannelEmail || c == ChannelTelegram
}

// Subscription is a user's notification preference: which channel to
// reach them on and which keywords to watch for.
type Subscription struct {
	ID          string
	UserID      string
	Channel     Channel
	Destination string
	Keywords    []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate enforces write-time invariants. A channel that requires a
// destination must have a non-empty one.
func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return domain.ErrInvalidArgument
	}
	if s.Channel.RequiresDestination() && strings.TrimSpace(s.Destination) == "" {
		return domain.ErrDestinationRequired
	}
	return nil
}

// Matches reports whether any keyword is a case-insensitive substring
// of the title. An empty keyword set never matches.
func (s *Subscription) Matches(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range s.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
