package sched

import (
	"context"
	"fmt"
	"time"

	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"
	"event-keyword-monitor/internal/domain/ports/repository"
	"event-keyword-monitor/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// pauser is the slice of the scheduler the breaker needs: suspend a
// job's trigger with an automatic resume after the cooldown.
type pauser interface {
	PauseFor(job string, cooldown time.Duration) error
}

// Breaker gates every scheduled tick. Transient failures are the
// executor's problem (retries within one tick); the breaker handles the
// systemic case by pausing the job across ticks once consecutive
// failures reach the threshold.
type Breaker struct {
	history   repository.JobRunRepository
	sched     pauser
	failure   adapter.FailureNotifier
	threshold int
	cooldown  time.Duration
	retention time.Duration
	clock     Clock
	log       *zerolog.Logger
}

func NewBreaker(
	history repository.JobRunRepository,
	sched pauser,
	failure adapter.FailureNotifier,
	threshold int,
	cooldown time.Duration,
	retention time.Duration,
	clock Clock,
	logger *zerolog.Logger,
) *Breaker {
	compLog := logger.With().Str("component", "Breaker").Logger()
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 6 * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Breaker{
		history:   history,
		sched:     sched,
		failure:   failure,
		threshold: threshold,
		cooldown:  cooldown,
		retention: retention,
		clock:     clock,
		log:       &compLog,
	}
}

// Allow runs as the very first action of a tick, before the executor is
// engaged. A false return means the tick is dropped silently.
func (b *Breaker) Allow(ctx context.Context, job model.JobKind) bool {
	// Opportunistic retention cleanup at the start of each cycle.
	cutoff := b.clock.Now().Add(-b.retention)
	if n, err := b.history.Cleanup(ctx, repository.NoTX, job, cutoff); err != nil {
		b.log.Error().Err(err).Str("job", string(job)).Msg("history cleanup failed")
	} else if n > 0 {
		b.log.Info().Str("job", string(job)).Int64("deleted", n).Msg("cleaned up old execution records")
	}

	paused, err := b.history.IsPaused(ctx, repository.NoTX, job)
	if err != nil {
		b.log.Error().Err(err).Str("job", string(job)).Msg("pause check failed; skipping tick")
		return false
	}
	if paused {
		b.log.Info().Str("job", string(job)).Msg("job is paused, skipping execution")
		return false
	}

	failures, err := b.history.ConsecutiveFailures(ctx, repository.NoTX, job)
	if err != nil {
		b.log.Error().Err(err).Str("job", string(job)).Msg("failure count check failed; skipping tick")
		return false
	}
	if failures >= b.threshold {
		b.trip(ctx, job, failures)
		return false
	}
	return true
}

// trip moves the job from active to paused: suspend the trigger,
// schedule the resume, write the marker, alert operators.
func (b *Breaker) trip(ctx context.Context, job model.JobKind, failures int) {
	b.log.Warn().
		Str("job", string(job)).
		Int("consecutive_failures", failures).
		Dur("cooldown", b.cooldown).
		Msg("failure threshold reached, pausing job")

	if err := b.sched.PauseFor(string(job), b.cooldown); err != nil {
		b.log.Error().Err(err).Str("job", string(job)).Msg("failed to pause job trigger")
	}

	now := b.clock.Now()
	msg := fmt.Sprintf("paused after %d consecutive failures; automatic resume in %s", failures, b.cooldown)
	rec := &model.JobRun{
		Job:          job,
		Status:       model.JobRunPaused,
		StartedAt:    now,
		CompletedAt:  &now,
		ErrorMessage: &msg,
	}
	if err := b.history.Create(ctx, repository.NoTX, rec); err != nil {
		b.log.Error().Err(err).Str("job", string(job)).Msg("failed to record pause event")
	}

	metrics.IncJobPause(string(job))
	b.failure.NotifyFailure(ctx, job, msg, failures)
}

// OnResume records the resumed marker. Called by the scheduler when the
// cooldown elapses; resumption is unconditional.
func (b *Breaker) OnResume(ctx context.Context, job model.JobKind) {
	now := b.clock.Now()
	msg := "job resumed automatically after cooldown"
	rec := &model.JobRun{
		Job:          job,
		Status:       model.JobRunResumed,
		StartedAt:    now,
		CompletedAt:  &now,
		ErrorMessage: &msg,
	}
	if err := b.history.Create(ctx, repository.NoTX, rec); err != nil {
		b.log.Error().Err(err).Str("job", string(job)).Msg("failed to record resume event")
	}
	b.log.Info().Str("job", string(job)).Msg("job resumed after cooldown")
}
