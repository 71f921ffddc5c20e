package billing

import (
	"context"
	"slices"
	"time"
)

// InvoiceFilter narrows invoice queries and deletes. Zero fields are ignored.
type InvoiceFilter struct {
	IDs      []string
	OwnerID  string
	UnitID   string
	TenantID string
	Statuses []InvoiceStatus
	Period   *Period
	// DueBefore keeps invoices whose due date is strictly before it.
	DueBefore time.Time
	// OutstandingOnly keeps invoices with a positive due amount.
	OutstandingOnly bool
	Limit           int
	Offset          int
}

// Matches reports whether inv satisfies the filter, ignoring paging.
func (f InvoiceFilter) Matches(inv *Invoice) bool {
	if inv == nil {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, inv.ID) {
		return false
	}
	if f.OwnerID != "" && inv.OwnerID != f.OwnerID {
		return false
	}
	if f.UnitID != "" && inv.UnitID != f.UnitID {
		return false
	}
	if f.TenantID != "" && inv.TenantID != f.TenantID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, inv.Status) {
		return false
	}
	if f.Period != nil && inv.Period != *f.Period {
		return false
	}
	if !f.DueBefore.IsZero() && DaysBetween(inv.DueDate, f.DueBefore) <= 0 {
		return false
	}
	if f.OutstandingOnly && inv.DueAmount <= 0 {
		return false
	}
	return true
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	// FindByID returns nil when the invoice does not exist.
	FindByID(ctx context.Context, id string) (*Invoice, error)
	// FindByUnitAndPeriod returns nil when no invoice exists for the pair.
	FindByUnitAndPeriod(ctx context.Context, unitID string, period Period) (*Invoice, error)
	FindByStatus(ctx context.Context, statuses []InvoiceStatus, filter InvoiceFilter) ([]*Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)
	// Create returns ErrDuplicateInvoice when the unit already has an invoice for the period.
	Create(ctx context.Context, inv *Invoice) error
	// Update writes inv if its Version still matches storage and bumps Version.
	// It returns ErrConcurrentUpdate on a mismatch and ErrInvoiceNotFound when gone.
	Update(ctx context.Context, inv *Invoice) error
	DeleteMany(ctx context.Context, filter InvoiceFilter) (int64, error)
}

// ConfigStore reads and writes owner billing configs.
type ConfigStore interface {
	// GetConfig returns nil when the owner has no config.
	GetConfig(ctx context.Context, ownerID string) (*Config, error)
	ListConfigs(ctx context.Context, filter ConfigFilter) ([]Config, error)
	SaveConfig(ctx context.Context, cfg Config) error
}

// UnitOracle answers occupancy questions owned by the property context.
type UnitOracle interface {
	ListOccupiedUnits(ctx context.Context, ownerID string) ([]Unit, error)
	ListVacantUnits(ctx context.Context) ([]Unit, error)
	// GetUnit returns nil when the unit does not exist.
	GetUnit(ctx context.Context, unitID string) (*Unit, error)
	OwnerCharges(ctx context.Context, ownerID string) (OwnerCharges, error)
}
