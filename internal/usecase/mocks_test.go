// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"
	"event-keyword-monitor/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// fakeTxManager runs the callback without a real transaction and counts
// invocations so tests can assert batch boundaries.
type fakeTxManager struct {
	mu       sync.Mutex
	calls    int
	beginErr error
}

func (f *fakeTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

func (f *fakeTxManager) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memSubRepo is a small in-memory implementation used by unit tests.
type memSubRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Subscription
	listErr error // used by tests to simulate read failures
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.store[sub.ID] = &cp
	return nil
}

func (m *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Subscription, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Active {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memItemRepo keeps work items in memory and records MarkProcessed calls.
type memItemRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.WorkItem
	saveErr  error
	markErr  error
	markedID []string
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{store: make(map[string]*model.WorkItem)}
}

func (m *memItemRepo) Save(ctx context.Context, tx repository.Tx, item *model.WorkItem) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Title == item.Title && existing.StartsOn.Equal(item.StartsOn) {
			return domain.ErrAlreadyExists
		}
	}
	if item.ID == "" {
		item.ID = item.Title
	}
	cp := *item
	m.store[item.ID] = &cp
	return nil
}

func (m *memItemRepo) ListUnprocessed(ctx context.Context, tx repository.Tx, limit int) ([]*model.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.WorkItem
	for _, it := range m.store {
		if !it.Processed {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memItemRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	it.Processed = true
	m.markedID = append(m.markedID, id)
	return nil
}

// sentMessage captures one Notifier.Send call for assertions.
type sentMessage struct {
	Channel     model.Channel
	Destination string
	Subject     string
	Body        string
}

// mockNotifier records sends and can fail selected destinations.
type mockNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error // destination -> error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{failFor: make(map[string]error)}
}

func (m *mockNotifier) Send(ctx context.Context, channel model.Channel, destination, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[destination]; ok {
		return err
	}
	m.sent = append(m.sent, sentMessage{Channel: channel, Destination: destination, Subject: subject, Body: body})
	return nil
}

func (m *mockNotifier) sentTo(destination string) *sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sent {
		if m.sent[i].Destination == destination {
			return &m.sent[i]
		}
	}
	return nil
}

// mockCollector returns a canned batch or a canned error.
type mockCollector struct {
	events []adapter.CollectedEvent
	err    error
}

func (m *mockCollector) Fetch(ctx context.Context) ([]adapter.CollectedEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.events, nil
}

// mockJobControl satisfies JobControl with recorded calls.
type mockJobControl struct {
	mu        sync.Mutex
	paused    map[string]bool
	triggered []string
	nextRun   time.Time
	jobs      []model.JobInfo
	err       error
}

func newMockJobControl() *mockJobControl {
	return &mockJobControl{paused: make(map[string]bool)}
}

func (m *mockJobControl) TriggerNow(job string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered = append(m.triggered, job)
	return nil
}

func (m *mockJobControl) Pause(job string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[job] = true
	return nil
}

func (m *mockJobControl) Resume(job string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[job] = false
	return nil
}

func (m *mockJobControl) IsPaused(job string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused[job]
}

func (m *mockJobControl) NextRun(job string) (time.Time, bool) {
	if m.nextRun.IsZero() {
		return time.Time{}, false
	}
	return m.nextRun, true
}

func (m *mockJobControl) Jobs() []model.JobInfo { return m.jobs }

// memJobRunRepo is an in-memory JobRunRepository keyed by insertion order.
type memJobRunRepo struct {
	mu   sync.Mutex
	runs []*model.JobRun
	seq  int
}

func newMemJobRunRepo() *memJobRunRepo { return &memJobRunRepo{} }

func (m *memJobRunRepo) Create(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
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

func (m *memJobRunRepo) Update(ctx context.Context, tx repository.Tx, id string, patch model.JobRunPatch) (*model.JobRun, error) {
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

func (m *memJobRunRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobRun, error) {
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

func (m *memJobRunRepo) Latest(ctx context.Context, tx repository.Tx, job model.JobKind) (*model.JobRun, error) {
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

func (m *memJobRunRepo) List(ctx context.Context, tx repository.Tx, job model.JobKind, filter repository.JobRunListFilter) ([]*model.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*model.JobRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		r := m.runs[i]
		if r.Job != job {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		matched = append(matched, &cp)
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (m *memJobRunRepo) ConsecutiveFailures(ctx context.Context, tx repository.Tx, job model.JobKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	scanned := 0
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

func (m *memJobRunRepo) IsPaused(ctx context.Context, tx repository.Tx, job model.JobKind) (bool, error) {
	latest, err := m.Latest(ctx, tx, job)
	if err != nil {
		return false, nil
	}
	return latest.Status == model.JobRunPaused, nil
}

func (m *memJobRunRepo) Cleanup(ctx context.Context, tx repository.Tx, job model.JobKind, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memJobRunRepo) Stats(ctx context.Context, tx repository.Tx, job model.JobKind, window time.Duration) (*model.JobStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &model.JobStats{}
	for _, r := range m.runs {
		if r.Job != job || !r.Status.Terminal() {
			continue
		}
		stats.Total++
		if r.Status == model.JobRunSuccess {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.Total) * 100
	}
	return stats, nil
}

func (m *memJobRunRepo) SweepOrphanedRunning(ctx context.Context, tx repository.Tx, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var swept int64
	for _, r := range m.runs {
		if r.Status == model.JobRunRunning {
			r.Status = model.JobRunFailed
			msg := reason
			r.ErrorMessage = &msg
			swept++
		}
	}
	return swept, nil
}

func (m *memJobRunRepo) statuses(job model.JobKind) []model.JobRunStatus {
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
