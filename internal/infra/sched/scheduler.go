package sched

import (
	"context"
	"sort"
	"sync"
	"time"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"

	"github.com/rs/zerolog"
)

// TickHandler is one scheduled invocation opportunity for a job. It is
// expected to contain its own catch boundaries; the scheduler adds a
// final recover() so a broken handler can never take the process down.
type TickHandler func(ctx context.Context)

// JobSpec describes one registered recurring job. Jobs are iterated
// uniformly off this descriptor; there is no per-job branching.
type JobSpec struct {
	Name         string
	Interval     time.Duration
	StartupDelay time.Duration
	Tick         TickHandler
}

type jobState struct {
	spec        JobSpec
	paused      bool
	running     bool
	nextRun     time.Time
	resumeTimer *time.Timer
}

// Scheduler owns the recurring triggers. One goroutine per job: a
// one-shot startup timer followed by a fixed-interval ticker. A job has
// at most one run in flight (overlapping ticks are rejected, not
// queued).
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*jobState

	// resumeHook is invoked after a PauseFor cooldown re-enables a job.
	resumeHook func(job string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zerolog.Logger
}

func NewScheduler(logger *zerolog.Logger) *Scheduler {
	compLog := logger.With().Str("component", "Scheduler").Logger()
	return &Scheduler{
		jobs: make(map[string]*jobState),
		log:  &compLog,
	}
}

// SetResumeHook wires the circuit breaker's resume bookkeeping. Must be
// called before Start.
func (s *Scheduler) SetResumeHook(hook func(job string)) { s.resumeHook = hook }

// Register adds a job. Registering after Start has no effect on the
// running loops, so compose the full registry first.
func (s *Scheduler) Register(spec JobSpec) error {
	if spec.Name == "" || spec.Tick == nil || spec.Interval <= 0 {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[spec.Name]; ok {
		return domain.ErrAlreadyExists
	}
	s.jobs[spec.Name] = &jobState{spec: spec}
	return nil
}

// Start launches one loop per registered job. Calling Start twice has
// no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)

	for _, st := range s.jobs {
		s.wg.Add(1)
		go s.loop(st)
	}
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

func (s *Scheduler) loop(st *jobState) {
	defer s.wg.Done()

	delay := st.spec.StartupDelay
	if delay <= 0 {
		delay = time.Second
	}
	s.setNextRun(st, time.Now().Add(delay))

	startup := time.NewTimer(delay)
	select {
	case <-s.ctx.Done():
		startup.Stop()
		return
	case <-startup.C:
	}
	s.setNextRun(st, time.Now().Add(st.spec.Interval))
	s.fire(st)

	ticker := time.NewTicker(st.spec.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.setNextRun(st, time.Now().Add(st.spec.Interval))
			s.fire(st)
		}
	}
}

// fire runs one tick synchronously in the job's loop goroutine.
func (s *Scheduler) fire(st *jobState) {
	s.mu.Lock()
	if st.paused {
		s.mu.Unlock()
		s.log.Debug().Str("job", st.spec.Name).Msg("trigger suspended, tick dropped")
		return
	}
	if st.running {
		// max_instances = 1: reject, never queue.
		s.mu.Unlock()
		s.log.Warn().Str("job", st.spec.Name).Msg("previous run still in flight, tick rejected")
		return
	}
	st.running = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("job", st.spec.Name).Interface("panic", r).Msg("tick handler panicked")
		}
		s.mu.Lock()
		st.running = false
		s.mu.Unlock()
	}()
	st.spec.Tick(s.ctx)
}

// TriggerNow runs a job once, outside its schedule. The tick handler's
// own gate still applies, so a paused-in-history job will drop the run.
func (s *Scheduler) TriggerNow(job string) error {
	s.mu.Lock()
	st, ok := s.jobs[job]
	if !ok {
		s.mu.Unlock()
		return domain.ErrJobUnknown
	}
	if st.running {
		s.mu.Unlock()
		return domain.ErrJobBusy
	}
	if s.ctx == nil {
		s.mu.Unlock()
		return domain.ErrOperationFailed
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fire(st)
	}()
	return nil
}

// Pause suspends the job's trigger. In-flight runs are unaffected.
func (s *Scheduler) Pause(job string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[job]
	if !ok {
		return domain.ErrJobUnknown
	}
	st.paused = true
	if st.resumeTimer != nil {
		st.resumeTimer.Stop()
		st.resumeTimer = nil
	}
	s.log.Info().Str("job", job).Msg("job paused")
	return nil
}

// PauseFor suspends the trigger and schedules an unconditional resume
// after the cooldown.
func (s *Scheduler) PauseFor(job string, cooldown time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[job]
	if !ok {
		return domain.ErrJobUnknown
	}
	st.paused = true
	if st.resumeTimer != nil {
		st.resumeTimer.Stop()
	}
	st.resumeTimer = time.AfterFunc(cooldown, func() {
		if err := s.Resume(job); err != nil {
			s.log.Error().Err(err).Str("job", job).Msg("scheduled resume failed")
			return
		}
		if s.resumeHook != nil {
			s.resumeHook(job)
		}
	})
	s.log.Info().Str("job", job).Dur("cooldown", cooldown).Msg("job paused with scheduled resume")
	return nil
}

// Resume re-enables the job's trigger.
func (s *Scheduler) Resume(job string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[job]
	if !ok {
		return domain.ErrJobUnknown
	}
	st.paused = false
	if st.resumeTimer != nil {
		st.resumeTimer.Stop()
		st.resumeTimer = nil
	}
	s.log.Info().Str("job", job).Msg("job resumed")
	return nil
}

func (s *Scheduler) IsPaused(job string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[job]
	return ok && st.paused
}

// NextRun reports the next scheduled tick time for a registered job.
func (s *Scheduler) NextRun(job string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[job]
	if !ok {
		return time.Time{}, false
	}
	return st.nextRun, true
}

// Jobs lists all registered jobs with their trigger and pause metadata.
func (s *Scheduler) Jobs() []model.JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.JobInfo, 0, len(s.jobs))
	for _, st := range s.jobs {
		out = append(out, model.JobInfo{
			Name:         st.spec.Name,
			Interval:     st.spec.Interval,
			NextRun:      st.nextRun,
			Paused:       st.paused,
			Running:      st.running,
			MaxInstances: 1,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop cancels all loops and waits for in-flight ticks to finish. No
// forced kill: a tick already running completes naturally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	for _, st := range s.jobs {
		if st.resumeTimer != nil {
			st.resumeTimer.Stop()
			st.resumeTimer = nil
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) setNextRun(st *jobState, t time.Time) {
	s.mu.Lock()
	st.nextRun = t
	s.mu.Unlock()
}
