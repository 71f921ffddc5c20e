package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"rent-billing/internal/observability/metrics"
)

const (
	JobGenerateMonthlyRents = "generate-monthly-rents"
	JobUpdateOverdueRents   = "update-overdue-rents"
	JobCalculateLateFees    = "calculate-late-fees"
	JobCleanupOrphanedRents = "cleanup-orphaned-rents"
)

// ErrUnknownJob is returned for a job name that is not registered.
var ErrUnknownJob = errors.New("billing jobs: unknown job")

// JobFunc runs one sweep.
type JobFunc func(ctx context.Context) *RunResult

// Jobs is the set of named billing sweeps.
type Jobs struct {
	funcs  map[string]JobFunc
	logger *zap.Logger
}

// NewJobs registers the four billing sweeps under their job names.
func NewJobs(generator *Generator, overdue *OverdueMonitor, lateFees *LateFeeCalculator, reclaimer *Reclaimer, logger *zap.Logger) (*Jobs, error) {
	if generator == nil || overdue == nil || lateFees == nil || reclaimer == nil {
		return nil, errors.New("billing jobs: nil sweep")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Jobs{
		funcs: map[string]JobFunc{
			JobGenerateMonthlyRents: generator.RunAutomated,
			JobUpdateOverdueRents:   overdue.Run,
			JobCalculateLateFees:    lateFees.Run,
			JobCleanupOrphanedRents: reclaimer.Run,
		},
		logger: logger.With(zap.String("component", "billing_jobs")),
	}, nil
}

// Names returns the registered job names in sorted order.
func (j *Jobs) Names() []string {
	names := make([]string, 0, len(j.funcs))
	for name := range j.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Func returns an instrumented runner for a job.
func (j *Jobs) Func(name string) (JobFunc, error) {
	fn, ok := j.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return func(ctx context.Context) *RunResult {
		start := time.Now()
		result := fn(ctx)
		j.observe(name, result, time.Since(start))
		return result
	}, nil
}

// Run executes a job once.
func (j *Jobs) Run(ctx context.Context, name string) (*RunResult, error) {
	fn, err := j.Func(name)
	if err != nil {
		return nil, err
	}
	return fn(ctx), nil
}

func (j *Jobs) observe(name string, result *RunResult, elapsed time.Duration) {
	status := metrics.ResultSuccess
	if result.Failed() {
		status = metrics.ResultError
	}
	metrics.ObserveJobRun(name, status, elapsed)
	metrics.AddJobItems(name, "created", result.Created)
	metrics.AddJobItems(name, "skipped", result.Skipped)
	metrics.AddJobItems(name, "updated", result.Updated)
	metrics.AddJobItems(name, "deleted", result.Deleted)
	metrics.AddJobItems(name, "failed", len(result.Errors))

	fields := []zap.Field{
		zap.String("job", name),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", elapsed),
		zap.Bool("interrupted", result.Interrupted),
	}
	if result.Fatal != nil {
		j.logger.Error("billing job failed", append(fields, zap.Error(result.Fatal))...)
		return
	}
	j.logger.Info("billing job finished", fields...)
}
