package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billing "rent-billing/internal/billing/domain"
)

func newInvoice(t *testing.T, id, unitID string, period billing.Period) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(billing.NewInvoiceParams{
		ID:       id,
		UnitID:   unitID,
		TenantID: "tenant-" + unitID,
		OwnerID:  "owner-1",
		Period:   period,
		Charges:  billing.Charges{BaseRent: 1000},
		DueDate:  period.Start(time.UTC).AddDate(0, 0, 4),
	})
	require.NoError(t, err)
	return inv
}

func TestInvoiceRepositoryUniqueUnitPeriod(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository()
	jan := billing.Period{Year: 2025, Month: time.January}

	require.NoError(t, repo.Create(ctx, newInvoice(t, "inv-1", "unit-1", jan)))
	err := repo.Create(ctx, newInvoice(t, "inv-2", "unit-1", jan))
	assert.ErrorIs(t, err, billing.ErrDuplicateInvoice)

	found, err := repo.FindByUnitAndPeriod(ctx, "unit-1", jan)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "inv-1", found.ID)

	missing, err := repo.FindByUnitAndPeriod(ctx, "unit-1", jan.Next())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInvoiceRepositoryVersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository()
	jan := billing.Period{Year: 2025, Month: time.January}
	require.NoError(t, repo.Create(ctx, newInvoice(t, "inv-1", "unit-1", jan)))

	first, err := repo.FindByID(ctx, "inv-1")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, "inv-1")
	require.NoError(t, err)

	require.NoError(t, first.RecordPayment(100, "", "", time.Now()))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	require.NoError(t, second.RecordPayment(200, "", "", time.Now()))
	assert.ErrorIs(t, repo.Update(ctx, second), billing.ErrConcurrentUpdate)

	stored, err := repo.FindByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.PaidAmount)
}

func TestInvoiceRepositoryDeleteMany(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceRepository()
	jan := billing.Period{Year: 2025, Month: time.January}

	unpaid := newInvoice(t, "inv-1", "unit-1", jan)
	paid := newInvoice(t, "inv-2", "unit-1", jan.Next())
	require.NoError(t, paid.RecordPayment(1000, "", "", time.Now()))
	other := newInvoice(t, "inv-3", "unit-2", jan)
	for _, inv := range []*billing.Invoice{unpaid, paid, other} {
		require.NoError(t, repo.Create(ctx, inv))
	}

	deleted, err := repo.DeleteMany(ctx, billing.InvoiceFilter{
		UnitID:          "unit-1",
		Statuses:        billing.UnpaidStatuses,
		OutstandingOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.List(ctx, billing.InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "inv-2", remaining[0].ID)
	assert.Equal(t, "inv-3", remaining[1].ID)

	require.NoError(t, repo.Create(ctx, newInvoice(t, "inv-4", "unit-1", jan)))
}
