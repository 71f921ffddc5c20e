package memory

import (
	"context"
	"sort"
	"sync"

	billing "rent-billing/internal/billing/domain"
)

// InvoiceRepository is an in-memory invoice store with the same uniqueness
// and version semantics as the Postgres repository.
type InvoiceRepository struct {
	mu         sync.RWMutex
	data       map[string]*billing.Invoice
	unitPeriod map[string]string
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		data:       make(map[string]*billing.Invoice),
		unitPeriod: make(map[string]string),
	}
}

// FindByID loads an invoice.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*billing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	inv := r.data[id]
	r.mu.RUnlock()
	return inv.Clone(), nil
}

// FindByUnitAndPeriod loads the invoice for a unit and period.
func (r *InvoiceRepository) FindByUnitAndPeriod(ctx context.Context, unitID string, period billing.Period) (*billing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.unitPeriod[unitPeriodKey(unitID, period)]
	if !ok {
		return nil, nil
	}
	return r.data[id].Clone(), nil
}

// FindByStatus lists invoices in any of statuses that match filter.
func (r *InvoiceRepository) FindByStatus(ctx context.Context, statuses []billing.InvoiceStatus, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	filter.Statuses = statuses
	return r.List(ctx, filter)
}

// List returns invoices matching filter ordered by period then unit.
func (r *InvoiceRepository) List(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	var result []*billing.Invoice
	for _, inv := range r.data {
		if filter.Matches(inv) {
			result = append(result, inv.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Period != b.Period {
			return a.Period.Label() > b.Period.Label()
		}
		if a.UnitID != b.UnitID {
			return a.UnitID < b.UnitID
		}
		return a.ID < b.ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Create inserts a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	_ = ctx
	if inv == nil {
		return billing.ErrNilInvoice
	}
	key := unitPeriodKey(inv.UnitID, inv.Period)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.unitPeriod[key]; exists {
		return billing.ErrDuplicateInvoice
	}
	if _, exists := r.data[inv.ID]; exists {
		return billing.ErrDuplicateInvoice
	}
	inv.Version = 1
	r.data[inv.ID] = inv.Clone()
	r.unitPeriod[key] = inv.ID
	return nil
}

// Update overwrites an invoice when its version matches.
func (r *InvoiceRepository) Update(ctx context.Context, inv *billing.Invoice) error {
	_ = ctx
	if inv == nil {
		return billing.ErrNilInvoice
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[inv.ID]
	if !ok {
		return billing.ErrInvoiceNotFound
	}
	if current.Version != inv.Version {
		return billing.ErrConcurrentUpdate
	}
	oldKey := unitPeriodKey(current.UnitID, current.Period)
	newKey := unitPeriodKey(inv.UnitID, inv.Period)
	if oldKey != newKey {
		if _, taken := r.unitPeriod[newKey]; taken {
			return billing.ErrDuplicateInvoice
		}
		delete(r.unitPeriod, oldKey)
		r.unitPeriod[newKey] = inv.ID
	}
	inv.Version++
	r.data[inv.ID] = inv.Clone()
	return nil
}

// DeleteMany removes every invoice matching filter.
func (r *InvoiceRepository) DeleteMany(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, inv := range r.data {
		if !filter.Matches(inv) {
			continue
		}
		delete(r.unitPeriod, unitPeriodKey(inv.UnitID, inv.Period))
		delete(r.data, id)
		deleted++
	}
	return deleted, nil
}

func unitPeriodKey(unitID string, period billing.Period) string {
	return unitID + "|" + period.Label()
}
