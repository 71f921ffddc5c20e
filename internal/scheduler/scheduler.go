// Package scheduler runs named jobs on cron schedules and keeps at most one
// run of each job in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"rent-billing/internal/observability/metrics"
)

var (
	// ErrJobRunning is returned when a run of the job is already in flight.
	ErrJobRunning = errors.New("scheduler: job already running")
	// ErrUnknownJob is returned for a job that was never registered.
	ErrUnknownJob = errors.New("scheduler: unknown job")
	// ErrDuplicateJob is returned when registering a job name twice.
	ErrDuplicateJob = errors.New("scheduler: duplicate job")
)

const defaultLockTTL = 10 * time.Minute

// Job is a named unit of scheduled work.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates cron specs in loc.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocker adds a cross-process lease on top of the in-process guard.
func WithLocker(locker Locker) Option {
	return func(s *Scheduler) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithLockTTL bounds how long a lease is held if its holder dies.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// Scheduler triggers jobs on their cron specs.
type Scheduler struct {
	loc     *time.Location
	logger  *zap.Logger
	locker  Locker
	lockTTL time.Duration

	cron *cron.Cron
	// runCtx is cancelled by Stop so in-flight jobs wind down.
	runCtx context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]Job
	running map[string]bool
}

// New constructs a stopped scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		loc:     time.UTC,
		logger:  zap.NewNop(),
		locker:  LocalLocker{},
		lockTTL: defaultLockTTL,
		jobs:    make(map[string]Job),
		running: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "scheduler"))
	cronLogger := zapCronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	s.runCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Register adds a job. An empty spec registers the job for manual runs only.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("scheduler: job needs a name and a run func")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	if job.Spec != "" {
		if _, err := s.cron.AddFunc(job.Spec, func() { s.fire(job) }); err != nil {
			return fmt.Errorf("scheduler: job %s: invalid spec %q: %w", job.Name, job.Spec, err)
		}
	}
	s.jobs[job.Name] = job
	s.logger.Info("job registered", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start begins firing jobs on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("location", s.loc.String()))
}

// Stop halts scheduling, cancels in-flight runs and waits for them to return
// or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// RunNow runs a registered job immediately, subject to the same
// non-overlap guard as scheduled runs.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.Exclusive(ctx, name, job.Run)
}

// Exclusive runs fn unless a run named name is in flight in this process or,
// with a distributed locker, in another one.
func (s *Scheduler) Exclusive(ctx context.Context, name string, fn func(context.Context)) error {
	if !s.markRunning(name) {
		metrics.IncJobSkipped(name, "running")
		s.logger.Warn("job skipped, previous run still in flight", zap.String("job", name))
		return ErrJobRunning
	}
	defer s.clearRunning(name)

	release, acquired, err := s.locker.Acquire(ctx, name, s.lockTTL)
	if err != nil {
		return fmt.Errorf("scheduler: acquire lock for %s: %w", name, err)
	}
	if !acquired {
		metrics.IncJobSkipped(name, "locked")
		s.logger.Warn("job skipped, lease held elsewhere", zap.String("job", name))
		return ErrJobRunning
	}
	defer release()

	fn(ctx)
	return nil
}

func (s *Scheduler) fire(job Job) {
	err := s.Exclusive(s.runCtx, job.Name, job.Run)
	if err != nil && !errors.Is(err, ErrJobRunning) {
		s.logger.Error("scheduled job failed to start", zap.String("job", job.Name), zap.Error(err))
	}
}

func (s *Scheduler) markRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) clearRunning(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
