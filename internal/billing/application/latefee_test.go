package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/billing/infrastructure/memory"
	"rent-billing/internal/notifications"
)

func scenarioConfig(ownerID string) billing.Config {
	cfg := billing.DefaultConfig(ownerID)
	cfg.GracePeriodDays = 5
	cfg.LateFeePercentagePerWeek = 2
	cfg.MaxLateFeePercentage = 10
	return cfg
}

func seedOverdue(t *testing.T, repo billing.InvoiceRepository, id, unitID, ownerID string, total int64, due time.Time) *billing.Invoice {
	t.Helper()
	inv := seedInvoice(t, repo, id, unitID, ownerID, total, due)
	require.True(t, inv.MarkOverdue(due.AddDate(0, 1, 0), 0, time.Now()))
	require.NoError(t, repo.Update(context.Background(), inv))
	return inv
}

func TestLateFeeCalculatorAppliesScenarioFee(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	seedOverdue(t, repo, "inv-1", "unit-1", "owner-1", 10000, dhakaDate(2025, time.January, 5))
	sink := &recordingSink{}
	calc, err := NewLateFeeCalculator(repo, memory.NewConfigStore(scenarioConfig("owner-1")),
		WithClock(fixedClock(2025, time.January, 21, 0)),
		WithLocation(dhaka),
		WithNotifier(sink),
	)
	require.NoError(t, err)

	result := calc.Run(context.Background())
	require.Nil(t, result.Fatal)
	assert.Equal(t, 1, result.Updated)

	inv := mustFind(t, repo, "inv-1")
	assert.Equal(t, int64(400), inv.LateFee)
	assert.Equal(t, int64(10400), inv.AdjustedTotal)
	assert.Equal(t, int64(10400), inv.DueAmount)
	assert.Equal(t, []notifications.Kind{notifications.KindLateFeeApplied}, sink.kinds())

	again := calc.Run(context.Background())
	assert.Equal(t, 0, again.Updated)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, int64(400), mustFind(t, repo, "inv-1").LateFee)
	assert.Len(t, sink.kinds(), 1)
}

func TestLateFeeCalculatorKeepsFeeWhenBackWithinGrace(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	seedOverdue(t, repo, "inv-1", "unit-1", "owner-1", 10000, dhakaDate(2025, time.January, 5))
	configs := memory.NewConfigStore(scenarioConfig("owner-1"))
	charge, err := NewLateFeeCalculator(repo, configs,
		WithClock(fixedClock(2025, time.January, 21, 0)),
		WithLocation(dhaka),
	)
	require.NoError(t, err)
	require.Equal(t, 1, charge.Run(context.Background()).Updated)
	require.Equal(t, int64(400), mustFind(t, repo, "inv-1").LateFee)

	widened := scenarioConfig("owner-1")
	widened.GracePeriodDays = 30
	require.NoError(t, configs.SaveConfig(context.Background(), widened))

	later, err := NewLateFeeCalculator(repo, configs,
		WithClock(fixedClock(2025, time.January, 22, 0)),
		WithLocation(dhaka),
	)
	require.NoError(t, err)
	result := later.Run(context.Background())
	require.Nil(t, result.Fatal)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	inv := mustFind(t, repo, "inv-1")
	assert.Equal(t, int64(400), inv.LateFee)
	assert.Equal(t, int64(10400), inv.AdjustedTotal)
	assert.Equal(t, billing.StatusOverdue, inv.Status)
}

func TestLateFeeCalculatorCapsAndSteps(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	seedOverdue(t, repo, "inv-1", "unit-1", "owner-1", 10000, dhakaDate(2025, time.January, 5))
	configs := memory.NewConfigStore(scenarioConfig("owner-1"))

	fees := map[int]int64{}
	for _, day := range []int{11, 12, 17, 18} {
		calc, err := NewLateFeeCalculator(repo, configs, WithClock(fixedClock(2025, time.January, day, 0)), WithLocation(dhaka))
		require.NoError(t, err)
		calc.Run(context.Background())
		fees[day] = mustFind(t, repo, "inv-1").LateFee
	}
	assert.Equal(t, int64(200), fees[11])
	assert.Equal(t, int64(200), fees[12])
	assert.Equal(t, int64(200), fees[17])
	assert.Equal(t, int64(400), fees[18])

	calc, err := NewLateFeeCalculator(repo, configs, WithClock(fixedClock(2025, time.June, 1, 0)), WithLocation(dhaka))
	require.NoError(t, err)
	calc.Run(context.Background())
	assert.Equal(t, int64(1000), mustFind(t, repo, "inv-1").LateFee)
}

func TestLateFeeCalculatorSkipsDisabledOwners(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	seedOverdue(t, repo, "inv-1", "unit-1", "owner-1", 10000, dhakaDate(2025, time.January, 5))
	cfg := scenarioConfig("owner-1")
	cfg.LateFeeEnabled = false

	calc, err := NewLateFeeCalculator(repo, memory.NewConfigStore(cfg), WithClock(fixedClock(2025, time.February, 1, 0)), WithLocation(dhaka))
	require.NoError(t, err)
	result := calc.Run(context.Background())

	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, int64(0), mustFind(t, repo, "inv-1").LateFee)
}

func TestLateFeeCalculatorNeverDropsBelowPaid(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	configs := memory.NewConfigStore(scenarioConfig("owner-1"))
	seedOverdue(t, repo, "inv-1", "unit-1", "owner-1", 10000, dhakaDate(2025, time.January, 5))

	calc, err := NewLateFeeCalculator(repo, configs, WithClock(fixedClock(2025, time.January, 21, 0)), WithLocation(dhaka))
	require.NoError(t, err)
	calc.Run(context.Background())

	inv := mustFind(t, repo, "inv-1")
	require.NoError(t, inv.RecordPayment(10200, "bank", "", time.Now()))
	require.True(t, inv.MarkOverdue(dhakaDate(2025, time.January, 21), 5, time.Now()))
	require.NoError(t, repo.Update(context.Background(), inv))

	lowered := scenarioConfig("owner-1")
	lowered.MaxLateFeePercentage = 1
	require.NoError(t, configs.SaveConfig(context.Background(), lowered))
	calc.Run(context.Background())

	got := mustFind(t, repo, "inv-1")
	assert.Equal(t, int64(200), got.LateFee)
	assert.Equal(t, int64(0), got.DueAmount)
	assert.Equal(t, billing.StatusPaid, got.Status)
	assert.NotNil(t, got.PaidDate)
}

func TestLateFeeCalculatorRecordsConflicts(t *testing.T) {
	repo := newFaultyInvoices()
	seedOverdue(t, repo, "inv-1", "unit-1", "owner-1", 10000, dhakaDate(2025, time.January, 5))
	repo.conflictsFor["inv-1"] = 1

	calc, err := NewLateFeeCalculator(repo, memory.NewConfigStore(scenarioConfig("owner-1")), WithClock(fixedClock(2025, time.January, 21, 0)), WithLocation(dhaka))
	require.NoError(t, err)

	result := calc.Run(context.Background())
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], billing.ErrConcurrentUpdate)

	result = calc.Run(context.Background())
	assert.Empty(t, result.Errors)
	assert.Equal(t, int64(400), mustFind(t, repo, "inv-1").LateFee)
}
