package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/notifications"
	"rent-billing/internal/observability/metrics"
)

const maxPaymentAttempts = 3

// CreateInvoiceInput describes a manually created invoice. A zero base rent
// takes the unit's rent.
type CreateInvoiceInput struct {
	UnitID  string
	Period  billing.Period
	DueDate time.Time
	Charges billing.Charges
	Note    string
}

// PaymentInput describes a payment against an invoice.
type PaymentInput struct {
	Amount int64
	Method string
	Note   string
}

// MonthlyStats aggregates one owner's invoices for a period.
type MonthlyStats struct {
	Period         string `json:"period"`
	TotalRent      int64  `json:"total_rent"`
	TotalLateFees  int64  `json:"total_late_fees"`
	TotalCollected int64  `json:"total_collected"`
	TotalPending   int64  `json:"total_pending"`
	TotalOverdue   int64  `json:"total_overdue"`
	PaidCount      int    `json:"paid_count"`
	PendingCount   int    `json:"pending_count"`
	PartialCount   int    `json:"partial_count"`
	OverdueCount   int    `json:"overdue_count"`
}

// InvoiceService handles caller-initiated invoice operations.
type InvoiceService struct {
	invoices billing.InvoiceRepository
	units    billing.UnitOracle
	opts     options
}

// NewInvoiceService constructs the service.
func NewInvoiceService(invoices billing.InvoiceRepository, units billing.UnitOracle, opts ...Option) (*InvoiceService, error) {
	if invoices == nil {
		return nil, errors.New("invoice service: nil invoice repository")
	}
	if units == nil {
		return nil, errors.New("invoice service: nil unit oracle")
	}
	o := buildOptions(opts)
	o.logger = o.logger.With(zap.String("component", "invoice_service"))
	return &InvoiceService{invoices: invoices, units: units, opts: o}, nil
}

// Create adds an invoice for one of the owner's occupied units.
func (s *InvoiceService) Create(ctx context.Context, actor Actor, in CreateInvoiceInput) (*billing.Invoice, error) {
	if actor.Role == RoleTenant {
		return nil, billing.ErrForbidden
	}
	if in.UnitID == "" {
		return nil, billing.ErrEmptyUnitID
	}
	unit, err := s.units.GetUnit(ctx, in.UnitID)
	if err != nil {
		return nil, err
	}
	if unit == nil || (!actor.isAdmin() && unit.OwnerID != actor.UserID) {
		return nil, billing.ErrUnitNotFound
	}
	if !unit.HasTenant() {
		return nil, billing.ErrEmptyTenantID
	}
	existing, err := s.invoices.FindByUnitAndPeriod(ctx, unit.ID, in.Period)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, billing.ErrDuplicateInvoice
	}

	charges := in.Charges
	if charges.BaseRent == 0 {
		charges.BaseRent = unit.BaseRent
	}
	inv, err := billing.NewInvoice(billing.NewInvoiceParams{
		ID:       uuid.NewString(),
		UnitID:   unit.ID,
		TenantID: unit.TenantID,
		OwnerID:  unit.OwnerID,
		Period:   in.Period,
		Charges:  charges,
		DueDate:  billing.DateOf(in.DueDate, s.opts.location),
		Note:     in.Note,
		Now:      s.opts.clock.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.opts.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID),
		zap.String("unit_id", inv.UnitID),
		zap.String("period", inv.Period.Label()),
	)
	return inv, nil
}

// Get returns an invoice the actor may read.
func (s *InvoiceService) Get(ctx context.Context, actor Actor, id string) (*billing.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil || !actor.canRead(inv) {
		return nil, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

// List returns invoices visible to the actor.
func (s *InvoiceService) List(ctx context.Context, actor Actor, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	return s.invoices.List(ctx, actor.scope(filter))
}

// PaymentHistory returns a tenant's invoices, newest period first.
func (s *InvoiceService) PaymentHistory(ctx context.Context, tenantID string, statuses []billing.InvoiceStatus, limit, offset int) ([]*billing.Invoice, error) {
	if tenantID == "" {
		return nil, billing.ErrEmptyTenantID
	}
	return s.invoices.List(ctx, billing.InvoiceFilter{
		TenantID: tenantID,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
}

// UpdateCharges replaces the line items of an unpaid invoice.
func (s *InvoiceService) UpdateCharges(ctx context.Context, actor Actor, id string, charges billing.Charges) (*billing.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil || !actor.canManage(inv) {
		return nil, billing.ErrInvoiceNotFound
	}
	if err := inv.UpdateCharges(charges, s.opts.clock.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes an invoice owned by the actor.
func (s *InvoiceService) Delete(ctx context.Context, actor Actor, id string) error {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if inv == nil || !actor.canManage(inv) {
		return billing.ErrInvoiceNotFound
	}
	deleted, err := s.invoices.DeleteMany(ctx, billing.InvoiceFilter{IDs: []string{id}})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return billing.ErrInvoiceNotFound
	}
	s.opts.logger.Info("invoice deleted", zap.String("invoice_id", id))
	return nil
}

// RecordPayment applies a payment, retrying when a sweep updated the
// invoice concurrently.
func (s *InvoiceService) RecordPayment(ctx context.Context, actor Actor, id string, in PaymentInput) (inv *billing.Invoice, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObservePayment(result, time.Since(start))
	}()

	if in.Amount <= 0 {
		return nil, billing.ErrInvalidPaymentAmount
	}
	for attempt := 1; attempt <= maxPaymentAttempts; attempt++ {
		inv, err = s.invoices.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if inv == nil || !actor.canRead(inv) {
			return nil, billing.ErrInvoiceNotFound
		}
		if err = inv.RecordPayment(in.Amount, in.Method, in.Note, s.opts.clock.Now().UTC()); err != nil {
			return nil, err
		}
		err = s.invoices.Update(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, billing.ErrConcurrentUpdate) {
			return nil, err
		}
		s.opts.logger.Warn("payment conflicted with concurrent update, retrying",
			zap.String("invoice_id", id),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("payment recorded",
		zap.String("invoice_id", inv.ID),
		zap.Int64("amount", in.Amount),
		zap.String("status", inv.Status.String()),
	)
	recipient := inv.TenantID
	if actor.UserID == inv.TenantID {
		recipient = inv.OwnerID
	}
	s.opts.notify(ctx, notifications.Notification{
		RecipientID: recipient,
		Kind:        notifications.KindPaymentReceived,
		Priority:    notifications.PriorityMedium,
		Title:       "Payment Received",
		Message: fmt.Sprintf("Payment of %d recorded for %s. Remaining due: %d",
			in.Amount, inv.Period.DisplayName(), inv.DueAmount),
		RelatedID: inv.ID,
		Channels:  []notifications.Channel{notifications.ChannelInApp},
	})
	return inv, nil
}

// MonthlyStats totals the owner's invoices for a period.
func (s *InvoiceService) MonthlyStats(ctx context.Context, ownerID string, period billing.Period) (MonthlyStats, error) {
	if ownerID == "" {
		return MonthlyStats{}, billing.ErrEmptyOwnerID
	}
	if period.IsZero() {
		return MonthlyStats{}, billing.ErrInvalidPeriod
	}
	invoices, err := s.invoices.List(ctx, billing.InvoiceFilter{OwnerID: ownerID, Period: &period})
	if err != nil {
		return MonthlyStats{}, err
	}
	stats := MonthlyStats{Period: period.Label()}
	for _, inv := range invoices {
		stats.TotalRent += inv.TotalAmount
		stats.TotalLateFees += inv.LateFee
		stats.TotalCollected += inv.PaidAmount
		switch inv.Status {
		case billing.StatusPaid:
			stats.PaidCount++
		case billing.StatusPending:
			stats.PendingCount++
			stats.TotalPending += inv.DueAmount
		case billing.StatusPartial:
			stats.PartialCount++
			stats.TotalPending += inv.DueAmount
		case billing.StatusOverdue:
			stats.OverdueCount++
			stats.TotalOverdue += inv.DueAmount
		}
	}
	return stats, nil
}
