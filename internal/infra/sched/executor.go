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

// JobBody is one attempt of a job's unit of work.
type JobBody func(ctx context.Context) (*model.JobOutcome, error)

// Executor runs a job body with bounded retries and linear backoff,
// recording the attempt group in job history. Nothing a body does —
// error or panic — escapes Execute.
type Executor struct {
	history     repository.JobRunRepository
	failure     adapter.FailureNotifier
	maxRetries  int
	backoffUnit time.Duration
	clock       Clock
	log         *zerolog.Logger
}

func NewExecutor(
	history repository.JobRunRepository,
	failure adapter.FailureNotifier,
	maxRetries int,
	backoffUnit time.Duration,
	clock Clock,
	logger *zerolog.Logger,
) *Executor {
	compLog := logger.With().Str("component", "Executor").Logger()
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoffUnit <= 0 {
		backoffUnit = time.Minute
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Executor{
		history:     history,
		failure:     failure,
		maxRetries:  maxRetries,
		backoffUnit: backoffUnit,
		clock:       clock,
		log:         &compLog,
	}
}

// Execute drives one attempt group: a running record, up to
// 1+maxRetries attempts with backoffUnit*n waits between them, then a
// single terminal success or failed update.
func (e *Executor) Execute(ctx context.Context, job model.JobKind, body JobBody) {
	start := e.clock.Now()
	rec := &model.JobRun{
		Job:       job,
		Status:    model.JobRunRunning,
		StartedAt: start,
	}
	if err := e.history.Create(ctx, repository.NoTX, rec); err != nil {
		e.log.Error().Err(err).Str("job", string(job)).Msg("failed to create running record")
		return
	}

	retryCount := 0
	for {
		outcome, err := e.runAttempt(ctx, body)
		if err == nil {
			e.finishSuccess(ctx, rec, start, retryCount, outcome)
			return
		}

		retryCount++
		errMsg := err.Error()

		if retryCount > e.maxRetries {
			e.finishFailure(ctx, rec, start, retryCount, errMsg)
			return
		}

		wait := e.backoffUnit * time.Duration(retryCount)
		e.log.Warn().
			Str("job", string(job)).
			Int("attempt", retryCount).
			Int("max_retries", e.maxRetries).
			Dur("wait", wait).
			Str("error", errMsg).
			Msg("job attempt failed, retrying")

		if err := e.clock.Sleep(ctx, wait); err != nil {
			// Shutdown during backoff: terminal-ize instead of leaving a
			// dangling running row.
			e.finishFailure(ctx, rec, start, retryCount, errMsg)
			return
		}
	}
}

// runAttempt converts a body panic into a regular attempt error.
func (e *Executor) runAttempt(ctx context.Context, body JobBody) (outcome *model.JobOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job body panic: %v", r)
		}
	}()
	return body(ctx)
}

func (e *Executor) finishSuccess(ctx context.Context, rec *model.JobRun, start time.Time, retryCount int, outcome *model.JobOutcome) {
	completed := e.clock.Now()
	duration := int(completed.Sub(start).Seconds())
	status := model.JobRunSuccess

	patch := model.JobRunPatch{
		Status:          &status,
		CompletedAt:     &completed,
		DurationSeconds: &duration,
		RetryCount:      &retryCount,
	}
	if outcome != nil {
		patch.ItemsScanned = &outcome.ItemsScanned
		patch.ItemsNew = &outcome.ItemsNew
		patch.ResultPayload = outcome.Payload
	}
	if _, err := e.history.Update(ctx, repository.NoTX, rec.ID, patch); err != nil {
		e.log.Error().Err(err).Str("job", string(rec.Job)).Msg("failed to record success")
	}

	metrics.IncJobRun(string(rec.Job), string(model.JobRunSuccess))
	metrics.AddJobRetries(string(rec.Job), retryCount)
	metrics.ObserveJobDuration(string(rec.Job), float64(duration))

	e.log.Info().
		Str("job", string(rec.Job)).
		Int("duration_seconds", duration).
		Int("retries", retryCount).
		Msg("job executed successfully")
}

func (e *Executor) finishFailure(ctx context.Context, rec *model.JobRun, start time.Time, retryCount int, errMsg string) {
	completed := e.clock.Now()
	duration := int(completed.Sub(start).Seconds())
	status := model.JobRunFailed

	patch := model.JobRunPatch{
		Status:          &status,
		CompletedAt:     &completed,
		DurationSeconds: &duration,
		ErrorMessage:    &errMsg,
		RetryCount:      &retryCount,
	}
	if _, err := e.history.Update(ctx, repository.NoTX, rec.ID, patch); err != nil {
		e.log.Error().Err(err).Str("job", string(rec.Job)).Msg("failed to record failure")
	}

	metrics.IncJobRun(string(rec.Job), string(model.JobRunFailed))
	metrics.AddJobRetries(string(rec.Job), retryCount)
	metrics.ObserveJobDuration(string(rec.Job), float64(duration))

	e.log.Error().
		Str("job", string(rec.Job)).
		Int("attempts", retryCount).
		Str("error", errMsg).
		Msg("job failed after exhausting retries")

	// Fire-and-forget by contract: the notifier swallows its own errors.
	e.failure.NotifyFailure(ctx, rec.Job, errMsg, retryCount)
}
