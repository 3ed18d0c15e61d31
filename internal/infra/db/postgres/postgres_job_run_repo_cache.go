package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/repository"
	"event-keyword-monitor/internal/infra/metrics"
	red "event-keyword-monitor/internal/infra/redis"
)

var _ repository.JobRunRepository = (*jobRunRepoCacheDecorator)(nil)

// jobRunRepoCacheDecorator caches the two hot admin-API reads (Latest and
// Stats) with a short TTL. Writes invalidate the job's keys so the
// scheduler's own gate checks never see stale state longer than one TTL.
type jobRunRepoCacheDecorator struct {
	inner repository.JobRunRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewJobRunRepoCacheDecorator(inner repository.JobRunRepository, cache red.RedisClient, ttl time.Duration) repository.JobRunRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &jobRunRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func latestKey(job model.JobKind) string { return fmt.Sprintf("jobrun:latest:%s", job) }
func statsKey(job model.JobKind, window time.Duration) string {
	return fmt.Sprintf("jobrun:stats:%s:%s", job, window)
}

func (d *jobRunRepoCacheDecorator) invalidate(ctx context.Context, job model.JobKind) {
	// Stats keys vary by window; delete the common windows alongside Latest.
	_ = d.cache.Del(ctx,
		latestKey(job),
		statsKey(job, 24*time.Hour),
		statsKey(job, 7*24*time.Hour),
		statsKey(job, 30*24*time.Hour),
	)
}

func (d *jobRunRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
	d.invalidate(ctx, run.Job)
	return d.inner.Create(ctx, tx, run)
}

func (d *jobRunRepoCacheDecorator) Update(ctx context.Context, tx repository.Tx, id string, patch model.JobRunPatch) (*model.JobRun, error) {
	run, err := d.inner.Update(ctx, tx, id, patch)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, run.Job)
	return run, nil
}

func (d *jobRunRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobRun, error) {
	return d.inner.FindByID(ctx, tx, id)
}

func (d *jobRunRepoCacheDecorator) Latest(ctx context.Context, tx repository.Tx, job model.JobKind) (*model.JobRun, error) {
	key := latestKey(job)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var run model.JobRun
		if json.Unmarshal([]byte(val), &run) == nil {
			metrics.IncCacheRequest("job_run_latest", "hit")
			return &run, nil
		}
	}

	metrics.IncCacheRequest("job_run_latest", "miss")
	run, err := d.inner.Latest(ctx, tx, job)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(run); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return run, nil
}

func (d *jobRunRepoCacheDecorator) List(ctx context.Context, tx repository.Tx, job model.JobKind, filter repository.JobRunListFilter) ([]*model.JobRun, error) {
	return d.inner.List(ctx, tx, job, filter)
}

func (d *jobRunRepoCacheDecorator) ConsecutiveFailures(ctx context.Context, tx repository.Tx, job model.JobKind) (int, error) {
	// Never cached: the circuit breaker depends on fresh counts.
	return d.inner.ConsecutiveFailures(ctx, tx, job)
}

func (d *jobRunRepoCacheDecorator) IsPaused(ctx context.Context, tx repository.Tx, job model.JobKind) (bool, error) {
	// Never cached, same reason as ConsecutiveFailures.
	return d.inner.IsPaused(ctx, tx, job)
}

func (d *jobRunRepoCacheDecorator) Cleanup(ctx context.Context, tx repository.Tx, job model.JobKind, before time.Time) (int64, error) {
	d.invalidate(ctx, job)
	return d.inner.Cleanup(ctx, tx, job, before)
}

func (d *jobRunRepoCacheDecorator) Stats(ctx context.Context, tx repository.Tx, job model.JobKind, window time.Duration) (*model.JobStats, error) {
	key := statsKey(job, window)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var stats model.JobStats
		if json.Unmarshal([]byte(val), &stats) == nil {
			metrics.IncCacheRequest("job_run_stats", "hit")
			return &stats, nil
		}
	}

	metrics.IncCacheRequest("job_run_stats", "miss")
	stats, err := d.inner.Stats(ctx, tx, job, window)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(stats); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return stats, nil
}

func (d *jobRunRepoCacheDecorator) SweepOrphanedRunning(ctx context.Context, tx repository.Tx, reason string) (int64, error) {
	for _, job := range []model.JobKind{model.JobDataCollector, model.JobNotificationDispatcher} {
		d.invalidate(ctx, job)
	}
	return d.inner.SweepOrphanedRunning(ctx, tx, reason)
}
