// File: internal/infra/sched/mocks_test.go
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/repository"
)

// fakeClock advances instantly and records every requested wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	// cancelAfter, when > 0, makes Sleep fail with ctx.Err() once that
	// many sleeps have been requested.
	cancelAfter int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.cancelAfter > 0 && len(c.sleeps) >= c.cancelAfter {
		return context.Canceled
	}
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// memHistory is an in-memory JobRunRepository recording everything the
// executor and breaker write.
type memHistory struct {
	mu        sync.Mutex
	runs      []*model.JobRun
	seq       int
	createErr error

	cleanupCalls int
	cleanupBefor time.Time
}

func newMemHistory() *memHistory { return &memHistory{} }

func (m *memHistory) Create(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%03d", m.seq)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	cp := *run
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *memHistory) Update(ctx context.Context, tx repository.Tx, id string, patch model.JobRunPatch) (*model.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID != id {
			continue
		}
		if patch.Status != nil {
			r.Status = *patch.Status
		}
		if patch.CompletedAt != nil {
			r.CompletedAt = patch.CompletedAt
		}
		if patch.DurationSeconds != nil {
			r.DurationSeconds = patch.DurationSeconds
		}
		if patch.ItemsScanned != nil {
			r.ItemsScanned = patch.ItemsScanned
		}
		if patch.ItemsNew != nil {
			r.ItemsNew = patch.ItemsNew
		}
		if patch.ResultPayload != nil {
			r.ResultPayload = patch.ResultPayload
		}
		if patch.ErrorMessage != nil {
			r.ErrorMessage = patch.ErrorMessage
		}
		if patch.RetryCount != nil {
			r.RetryCount = *patch.RetryCount
		}
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memHistory) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memHistory) Latest(ctx context.Context, tx repository.Tx, job model.JobKind) (*model.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].Job == job {
			cp := *m.runs[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memHistory) List(ctx context.Context, tx repository.Tx, job model.JobKind, filter repository.JobRunListFilter) ([]*model.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.JobRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].Job == job {
			cp := *m.runs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memHistory) ConsecutiveFailures(ctx context.Context, tx repository.Tx, job model.JobKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count, scanned := 0, 0
	for i := len(m.runs) - 1; i >= 0 && scanned < 10; i-- {
		if m.runs[i].Job != job {
			continue
		}
		scanned++
		if m.runs[i].Status != model.JobRunFailed {
			break
		}
		count++
	}
	return count, nil
}

func (m *memHistory) IsPaused(ctx context.Context, tx repository.Tx, job model.JobKind) (bool, error) {
	latest, err := m.Latest(ctx, tx, job)
	if err != nil {
		return false, nil
	}
	return latest.Status == model.JobRunPaused, nil
}

func (m *memHistory) Cleanup(ctx context.Context, tx repository.Tx, job model.JobKind, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupCalls++
	m.cleanupBefor = before
	var kept []*model.JobRun
	var deleted int64
	for _, r := range m.runs {
		if r.Job == job && r.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.runs = kept
	return deleted, nil
}

func (m *memHistory) Stats(ctx context.Context, tx repository.Tx, job model.JobKind, window time.Duration) (*model.JobStats, error) {
	return &model.JobStats{}, nil
}

func (m *memHistory) SweepOrphanedRunning(ctx context.Context, tx repository.Tx, reason string) (int64, error) {
	return 0, nil
}

func (m *memHistory) byID(id string) *model.JobRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			cp := *r
			return &cp
		}
	}
	return nil
}

func (m *memHistory) statuses(job model.JobKind) []model.JobRunStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.JobRunStatus
	for _, r := range m.runs {
		if r.Job == job {
			out = append(out, r.Status)
		}
	}
	return out
}

func (m *memHistory) last(job model.JobKind) *model.JobRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].Job == job {
			cp := *m.runs[i]
			return &cp
		}
	}
	return nil
}

// failureAlert captures one NotifyFailure call.
type failureAlert struct {
	Job        model.JobKind
	Message    string
	RetryCount int
}

type spyFailureNotifier struct {
	mu     sync.Mutex
	alerts []failureAlert
}

func (s *spyFailureNotifier) NotifyFailure(ctx context.Context, job model.JobKind, errorMessage string, retryCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, failureAlert{Job: job, Message: errorMessage, RetryCount: retryCount})
}

func (s *spyFailureNotifier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// fakePauser records PauseFor calls from the breaker.
type fakePauser struct {
	mu    sync.Mutex
	calls []struct {
		Job      string
		Cooldown time.Duration
	}
	err error
}

func (p *fakePauser) PauseFor(job string, cooldown time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, struct {
		Job      string
		Cooldown time.Duration
	}{job, cooldown})
	return p.err
}
