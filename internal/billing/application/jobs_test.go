package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/billing/infrastructure/memory"
)

func newTestJobs(t *testing.T) (*Jobs, *memory.InvoiceRepository) {
	t.Helper()
	repo := memory.NewInvoiceRepository()
	configs := memory.NewConfigStore(billing.DefaultConfig("owner-1"))
	units := memory.NewUnitOracle(occupiedUnit("unit-1", "owner-1", 10000))
	opts := []Option{WithClock(fixedClock(2025, time.January, 3, 0)), WithLocation(dhaka)}

	gen, err := NewGenerator(repo, configs, units, opts...)
	require.NoError(t, err)
	overdue, err := NewOverdueMonitor(repo, configs, opts...)
	require.NoError(t, err)
	lateFees, err := NewLateFeeCalculator(repo, configs, opts...)
	require.NoError(t, err)
	reclaimer, err := NewReclaimer(repo, units, opts...)
	require.NoError(t, err)
	jobs, err := NewJobs(gen, overdue, lateFees, reclaimer, nil)
	require.NoError(t, err)
	return jobs, repo
}

func TestJobsNamesAndRun(t *testing.T) {
	jobs, repo := newTestJobs(t)
	assert.Equal(t, []string{
		JobCalculateLateFees,
		JobCleanupOrphanedRents,
		JobGenerateMonthlyRents,
		JobUpdateOverdueRents,
	}, jobs.Names())

	result, err := jobs.Run(context.Background(), JobGenerateMonthlyRents)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.False(t, result.FinishedAt.IsZero())

	all, err := repo.List(context.Background(), billing.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = jobs.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestNewJobsRequiresSweeps(t *testing.T) {
	_, err := NewJobs(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestForEachStopsStartingItemsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := make([]int, 50)
	var ran atomic.Int32

	err := forEach(ctx, 1, items, func(itemCtx context.Context, _ int) {
		if ran.Add(1) == 3 {
			cancel()
		}
		assert.NoError(t, itemCtx.Err())
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, int(ran.Load()), len(items))
}

func TestForEachBoundsParallelism(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	err := forEach(context.Background(), 3, items, func(context.Context, int) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, int(peak.Load()), 3)
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestRunResultString(t *testing.T) {
	r := newRunResult("job", time.Unix(0, 0))
	r.addCreated(2)
	r.addError(ItemUnit, "u-1", errBoom)
	r.finish(time.Unix(5, 0), true)

	assert.Equal(t, "job: created=2 skipped=0 updated=0 deleted=0 errors=1 interrupted", r.String())
	assert.Equal(t, 5*time.Second, r.Duration())
	assert.True(t, r.Failed())
	assert.Equal(t, "unit u-1: boom", r.Errors[0].Error())
}
