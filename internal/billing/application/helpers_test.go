package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/billing/infrastructure/memory"
	"rent-billing/internal/notifications"
)

var (
	dhaka   = mustLocation("Asia/Dhaka")
	errBoom = errors.New("boom")
)

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// fixedClock returns a clock pinned to a wall time in Dhaka.
func fixedClock(year int, month time.Month, day, hour int) ClockFunc {
	at := time.Date(year, month, day, hour, 0, 0, 0, dhaka)
	return func() time.Time { return at }
}

type recordingSink struct {
	mu   sync.Mutex
	sent []notifications.Notification
	err  error
}

func (s *recordingSink) Notify(_ context.Context, n notifications.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

func (s *recordingSink) kinds() []notifications.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]notifications.Kind, 0, len(s.sent))
	for _, n := range s.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// faultyInvoices wraps a repository and injects errors.
type faultyInvoices struct {
	*memory.InvoiceRepository
	createErr    map[string]error // by unit id
	statusErr    error
	conflictsFor map[string]int // invoice id -> number of updates to reject
	mu           sync.Mutex
}

func newFaultyInvoices() *faultyInvoices {
	return &faultyInvoices{
		InvoiceRepository: memory.NewInvoiceRepository(),
		createErr:         map[string]error{},
		conflictsFor:      map[string]int{},
	}
}

func (f *faultyInvoices) Create(ctx context.Context, inv *billing.Invoice) error {
	if err := f.createErr[inv.UnitID]; err != nil {
		return err
	}
	return f.InvoiceRepository.Create(ctx, inv)
}

func (f *faultyInvoices) FindByStatus(ctx context.Context, statuses []billing.InvoiceStatus, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.InvoiceRepository.FindByStatus(ctx, statuses, filter)
}

func (f *faultyInvoices) Update(ctx context.Context, inv *billing.Invoice) error {
	f.mu.Lock()
	if f.conflictsFor[inv.ID] > 0 {
		f.conflictsFor[inv.ID]--
		f.mu.Unlock()
		return billing.ErrConcurrentUpdate
	}
	f.mu.Unlock()
	return f.InvoiceRepository.Update(ctx, inv)
}

// faultyUnits wraps a unit oracle and injects errors.
type faultyUnits struct {
	*memory.UnitOracle
	listErr    map[string]error // by owner id
	chargesErr error
	vacantErr  error
}

func (f *faultyUnits) ListOccupiedUnits(ctx context.Context, ownerID string) ([]billing.Unit, error) {
	if err := f.listErr[ownerID]; err != nil {
		return nil, err
	}
	return f.UnitOracle.ListOccupiedUnits(ctx, ownerID)
}

func (f *faultyUnits) OwnerCharges(ctx context.Context, ownerID string) (billing.OwnerCharges, error) {
	if f.chargesErr != nil {
		return billing.OwnerCharges{}, f.chargesErr
	}
	return f.UnitOracle.OwnerCharges(ctx, ownerID)
}

func (f *faultyUnits) ListVacantUnits(ctx context.Context) ([]billing.Unit, error) {
	if f.vacantErr != nil {
		return nil, f.vacantErr
	}
	return f.UnitOracle.ListVacantUnits(ctx)
}

type failingConfigs struct {
	billing.ConfigStore
}

func (failingConfigs) ListConfigs(context.Context, billing.ConfigFilter) ([]billing.Config, error) {
	return nil, errBoom
}

func occupiedUnit(id, ownerID string, rent int64) billing.Unit {
	return billing.Unit{
		ID:       id,
		OwnerID:  ownerID,
		Name:     "Flat " + id,
		Occupied: true,
		TenantID: "tenant-" + id,
		BaseRent: rent,
	}
}

func metered(u billing.Unit, previous, current int64, rate string) billing.Unit {
	u.PreviousReading = decimal.NewFromInt(previous)
	u.CurrentReading = decimal.NewFromInt(current)
	if rate != "" {
		u.RatePerUnit = decimal.RequireFromString(rate)
	}
	return u
}

func seedInvoice(t *testing.T, repo billing.InvoiceRepository, id, unitID, ownerID string, total int64, due time.Time) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(billing.NewInvoiceParams{
		ID:       id,
		UnitID:   unitID,
		TenantID: "tenant-" + unitID,
		OwnerID:  ownerID,
		Period:   billing.PeriodOf(due),
		Charges:  billing.Charges{BaseRent: total},
		DueDate:  due,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), inv))
	return inv
}

func mustFind(t *testing.T, repo billing.InvoiceRepository, id string) *billing.Invoice {
	t.Helper()
	inv, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func dhakaDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, dhaka)
}
