package repository

import (
	"context"
	"time"

	"event-keyword-monitor/internal/domain/model"
)

// JobRunListFilter narrows List results. Zero values mean "no filter".
type JobRunListFilter struct {
	Status model.JobRunStatus
	Offset int
	Limit  int
}

// JobRunRepository owns the job_runs table. Nothing else writes to it.
type JobRunRepository interface {
	Create(ctx context.Context, tx Tx, run *model.JobRun) error
	// Update applies only the non-nil patch fields, then re-reads the
	// persisted row so callers never hold stale in-memory state.
	Update(ctx context.Context, tx Tx, id string, patch model.JobRunPatch) (*model.JobRun, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.JobRun, error)
	Latest(ctx context.Context, tx Tx, job model.JobKind) (*model.JobRun, error)
	List(ctx context.Context, tx Tx, job model.JobKind, filter JobRunListFilter) ([]*model.JobRun, error)
	// ConsecutiveFailures counts failed runs from the most recent record
	// backward, stopping at the first non-failed status. The scan is
	// bounded to the last 10 records.
	ConsecutiveFailures(ctx context.Context, tx Tx, job model.JobKind) (int, error)
	// IsPaused is true iff the latest record for the job is a paused marker.
	IsPaused(ctx context.Context, tx Tx, job model.JobKind) (bool, error)
	// Cleanup deletes records created before the cutoff. Destructive;
	// retention is not a backup.
	Cleanup(ctx context.Context, tx Tx, job model.JobKind, before time.Time) (int64, error)
	Stats(ctx context.Context, tx Tx, job model.JobKind, window time.Duration) (*model.JobStats, error)
	// SweepOrphanedRunning terminal-izes running rows left behind by an
	// unclean shutdown. Called once at startup.
	SweepOrphanedRunning(ctx context.Context, tx Tx, reason string) (int64, error)
}
