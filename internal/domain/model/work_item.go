package model

import "time"

// WorkItem is one collected event subject to keyword matching. Once it
// has been matched and a notification queued, Processed flips to true
// and never reverts.
type WorkItem struct {
	ID        string
	Title     string
	StartsOn  time.Time
	EndsOn    *time.Time
	Processed bool
	CreatedAt time.Time
}
