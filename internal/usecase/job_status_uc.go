package usecase

import (
	"context"
	"time"

	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/repository"
	"event-keyword-monitor/internal/infra/logging"

	"github.com/rs/zerolog"
)

// JobControl is the slice of the scheduler this use case needs for
// introspection and manual control. Implemented by sched.Scheduler.
type JobControl interface {
	TriggerNow(job string) error
	Pause(job string) error
	Resume(job string) error
	IsPaused(job string) bool
	NextRun(job string) (time.Time, bool)
	Jobs() []model.JobInfo
}

// JobStatusView is the composite the admin API renders for one job.
type JobStatusView struct {
	Job                 model.JobKind `json:"job"`
	State               string        `json:"state"` // running | paused | scheduled
	LastRun             *model.JobRun `json:"last_run,omitempty"`
	NextRunTime         *time.Time    `json:"next_run_time,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// Compile-time check
var _ JobStatusUseCase = (*jobStatusUC)(nil)

// JobStatusUseCase exposes the operational surface: status, history,
// stats, and manual trigger/pause/resume.
type JobStatusUseCase interface {
	Status(ctx context.Context, job model.JobKind) (*JobStatusView, error)
	History(ctx context.Context, job model.JobKind, page, limit int, status model.JobRunStatus) ([]*model.JobRun, error)
	Stats(ctx context.Context, job model.JobKind, windowDays int) (*model.JobStats, error)
	Jobs(ctx context.Context) []model.JobInfo
	Trigger(ctx context.Context, job model.JobKind) error
	Pause(ctx context.Context, job model.JobKind) error
	Resume(ctx context.Context, job model.JobKind) error
}

type jobStatusUC struct {
	history repository.JobRunRepository
	control JobControl
	log     *zerolog.Logger
}

func NewJobStatusUseCase(history repository.JobRunRepository, control JobControl, logger *zerolog.Logger) *jobStatusUC {
	compLog := logger.With().Str("component", "JobStatusUC").Logger()
	return &jobStatusUC{history: history, control: control, log: &compLog}
}

func (u *jobStatusUC) Status(ctx context.Context, job model.JobKind) (*JobStatusView, error) {
	defer logging.TraceDuration(u.log, "JobStatusUC.Status")()

	view := &JobStatusView{Job: job, State: "scheduled"}

	if u.control.IsPaused(string(job)) {
		view.State = "paused"
	}
	if next, ok := u.control.NextRun(string(job)); ok {
		view.NextRunTime = &next
	}

	latest, err := u.history.Latest(ctx, repository.NoTX, job)
	if err == nil {
		view.LastRun = latest
		if latest.Status == model.JobRunRunning {
			view.State = "running"
		}
	}

	failures, err := u.history.ConsecutiveFailures(ctx, repository.NoTX, job)
	if err != nil {
		return nil, err
	}
	view.ConsecutiveFailures = failures
	return view, nil
}

func (u *jobStatusUC) History(ctx context.Context, job model.JobKind, page, limit int, status model.JobRunStatus) ([]*model.JobRun, error) {
	defer logging.TraceDuration(u.log, "JobStatusUC.History")()

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return u.history.List(ctx, repository.NoTX, job, repository.JobRunListFilter{
		Status: status,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
}

func (u *jobStatusUC) Stats(ctx context.Context, job model.JobKind, windowDays int) (*model.JobStats, error) {
	defer logging.TraceDuration(u.log, "JobStatusUC.Stats")()

	if windowDays <= 0 {
		windowDays = 7
	}
	return u.history.Stats(ctx, repository.NoTX, job, time.Duration(windowDays)*24*time.Hour)
}

func (u *jobStatusUC) Jobs(ctx context.Context) []model.JobInfo {
	return u.control.Jobs()
}

func (u *jobStatusUC) Trigger(ctx context.Context, job model.JobKind) error {
	u.log.Info().Str("job", string(job)).Msg("manual trigger requested")
	return u.control.TriggerNow(string(job))
}

func (u *jobStatusUC) Pause(ctx context.Context, job model.JobKind) error {
	if err := u.control.Pause(string(job)); err != nil {
		return err
	}
	now := time.Now()
	msg := "job stopped manually"
	rec := &model.JobRun{
		Job:          job,
		Status:       model.JobRunPaused,
		StartedAt:    now,
		CompletedAt:  &now,
		ErrorMessage: &msg,
	}
	if err := u.history.Create(ctx, repository.NoTX, rec); err != nil {
		u.log.Error().Err(err).Str("job", string(job)).Msg("failed to record manual pause")
	}
	return nil
}

func (u *jobStatusUC) Resume(ctx context.Context, job model.JobKind) error {
	if err := u.control.Resume(string(job)); err != nil {
		return err
	}
	now := time.Now()
	msg := "job resumed manually"
	rec := &model.JobRun{
		Job:          job,
		Status:       model.JobRunResumed,
		StartedAt:    now,
		CompletedAt:  &now,
		ErrorMessage: &msg,
	}
	if err := u.history.Create(ctx, repository.NoTX, rec); err != nil {
		u.log.Error().Err(err).Str("job", string(job)).Msg("failed to record manual resume")
	}
	return nil
}
