// Package scheduler implements background job scheduling for the worker.
// It runs periodic tasks such as creating the daily challenge and warming
// the leaderboard cache, on interval or cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be nil")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of background work. Run receives a context that is
// cancelled when the scheduler stops.
type Job interface {
	Name() string
	Description() string
	Run(ctx context.Context) error
}

// Schedule yields the run after t.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

// Observer receives the outcome of every run, e.g. for Prometheus.
type Observer interface {
	ObserveJob(name string, duration time.Duration, err error)
}

// JobResult describes one run.
type JobResult struct {
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Manual    bool
	Err       error
}

// Success reports whether the run returned nil.
func (r JobResult) Success() bool { return r.Err == nil }

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	Name       string
	Schedule   string
	NextRun    time.Time
	RunCount   int64
	FailCount  int64
	LastResult *JobResult
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// SchedulerConfig configures NewScheduler. Zero values take defaults.
type SchedulerConfig struct {
	Logger       *slog.Logger   // slog.Default()
	Timezone     *time.Location // UTC
	TickInterval time.Duration  // 1s
	Observer     Observer       // optional
}

// Scheduler polls its jobs every tick and starts the due ones in their own
// goroutines. A job is never started again while its slot is reserved.
type Scheduler struct {
	log      *slog.Logger
	tz       *time.Location
	tick     time.Duration
	observer Observer

	mu      sync.Mutex
	jobs    map[string]*entry
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

type entry struct {
	job       Job
	schedule  Schedule
	nextRun   time.Time
	runCount  int64
	failCount int64
	last      *JobResult
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		log:      cfg.Logger,
		tz:       cfg.Timezone,
		tick:     cfg.TickInterval,
		observer: cfg.Observer,
		jobs:     make(map[string]*entry),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.tz == nil {
		s.tz = time.UTC
	}
	if s.tick <= 0 {
		s.tick = time.Second
	}
	return s
}

// Register adds job under its unique name with its first run computed
// from now.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	e := &entry{job: job, schedule: schedule, nextRun: schedule.Next(s.now())}
	s.jobs[name] = e

	s.log.Info("job registered",
		"job", name,
		"description", job.Description(),
		"schedule", schedule.String(),
		"next_run", e.nextRun.Format(time.RFC3339),
	)
	return nil
}

// Start launches the polling loop. Jobs run under a context derived
// from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(runCtx)

	s.log.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels the loop and running jobs, then waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

// IsRunning reports whether Start has been called without Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) now() time.Time { return time.Now().In(s.tz) }

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range s.reserveDue(s.now()) {
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					_ = s.execute(ctx, e, false)
				}()
			}
		}
	}
}

// reserveDue moves every due job's next run forward and returns those jobs.
func (s *Scheduler) reserveDue(now time.Time) []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*entry
	for _, e := range s.jobs {
		if !e.nextRun.IsZero() && !now.Before(e.nextRun) {
			e.nextRun = e.schedule.Next(now)
			due = append(due, e)
		}
	}
	return due
}

// RunNow runs the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobResult, error) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	res := s.execute(ctx, e, true)
	return res, res.Err
}

func (s *Scheduler) execute(ctx context.Context, e *entry, manual bool) *JobResult {
	name := e.job.Name()
	log := s.log.With("job", name, "manual", manual)
	log.Info("job started")

	start := time.Now()
	err := e.job.Run(ctx)
	res := &JobResult{
		JobName:   name,
		StartedAt: start,
		Duration:  time.Since(start),
		Manual:    manual,
		Err:       err,
	}

	if s.observer != nil {
		s.observer.ObserveJob(name, res.Duration, err)
	}

	s.mu.Lock()
	e.runCount++
	if err != nil {
		e.failCount++
	}
	e.last = res
	s.mu.Unlock()

	if err != nil {
		log.Error("job failed", "duration", res.Duration.String(), "error", err)
	} else {
		log.Info("job completed", "duration", res.Duration.String())
	}
	return res
}

// ListJobs returns a snapshot of every job, sorted by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, e := range s.jobs {
		out = append(out, JobInfo{
			Name:       name,
			Schedule:   e.schedule.String(),
			NextRun:    e.nextRun,
			RunCount:   e.runCount,
			FailCount:  e.failCount,
			LastResult: e.last,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
