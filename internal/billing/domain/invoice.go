package billing

import (
	"fmt"
	"strings"
	"time"
)

// Invoice is a rent bill for one unit and one period.
// Identity: unit id + period.
type Invoice struct {
	ID       string
	UnitID   string
	TenantID string
	OwnerID  string
	Period   Period

	BaseRent          int64
	ElectricityCharge int64
	GasCharge         int64
	WaterCharge       int64
	ServiceCharge     int64
	TotalAmount       int64

	LateFee       int64
	AdjustedTotal int64
	PaidAmount    int64
	DueAmount     int64

	Status        InvoiceStatus
	DueDate       time.Time
	PaidDate      *time.Time
	PaymentMethod string
	Note          string

	IsAutoGenerated bool
	GeneratedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Version is bumped by the repository on every update and checked on write.
	Version int64
}

// NewInvoiceParams carries the inputs for a fresh invoice.
type NewInvoiceParams struct {
	ID              string
	UnitID          string
	TenantID        string
	OwnerID         string
	Period          Period
	Charges         Charges
	DueDate         time.Time
	IsAutoGenerated bool
	Note            string
	Now             time.Time
}

// NewInvoice builds a PENDING invoice with nothing paid and no late fee.
func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	if strings.TrimSpace(p.UnitID) == "" {
		return nil, ErrEmptyUnitID
	}
	if strings.TrimSpace(p.OwnerID) == "" {
		return nil, ErrEmptyOwnerID
	}
	if strings.TrimSpace(p.TenantID) == "" {
		return nil, ErrEmptyTenantID
	}
	if p.Period.IsZero() {
		return nil, ErrInvalidPeriod
	}
	if p.DueDate.IsZero() {
		return nil, ErrInvalidDueDate
	}
	if err := p.Charges.Validate(); err != nil {
		return nil, err
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	inv := &Invoice{
		ID:                p.ID,
		UnitID:            p.UnitID,
		TenantID:          p.TenantID,
		OwnerID:           p.OwnerID,
		Period:            p.Period,
		BaseRent:          p.Charges.BaseRent,
		ElectricityCharge: p.Charges.Electricity,
		GasCharge:         p.Charges.Gas,
		WaterCharge:       p.Charges.Water,
		ServiceCharge:     p.Charges.Service,
		Status:            StatusPending,
		DueDate:           p.DueDate,
		Note:              p.Note,
		IsAutoGenerated:   p.IsAutoGenerated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if p.IsAutoGenerated {
		inv.GeneratedAt = now
	}
	inv.recompute()
	return inv, nil
}

// Charges returns the invoice line items.
func (i *Invoice) Charges() Charges {
	return Charges{
		BaseRent:    i.BaseRent,
		Electricity: i.ElectricityCharge,
		Gas:         i.GasCharge,
		Water:       i.WaterCharge,
		Service:     i.ServiceCharge,
	}
}

// RecordPayment applies a payment. On error the invoice is left unchanged.
func (i *Invoice) RecordPayment(amount int64, method, note string, now time.Time) error {
	if i.Status.IsTerminal() {
		return ErrInvoiceAlreadyPaid
	}
	if amount <= 0 {
		return ErrInvalidPaymentAmount
	}
	if i.PaidAmount+amount > i.AdjustedTotal {
		return ErrPaymentExceedsBalance
	}
	next := StatusPartial
	if i.PaidAmount+amount == i.AdjustedTotal {
		next = StatusPaid
	}
	if !i.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.Status, next)
	}
	i.PaidAmount += amount
	i.recompute()
	if method != "" {
		i.PaymentMethod = method
	}
	if note != "" {
		i.Note = note
	}
	if next == StatusPaid {
		i.settle(now)
	} else {
		i.Status = next
	}
	i.UpdatedAt = now
	return nil
}

// GracePeriodEnd returns the last day on which the invoice is not yet overdue.
func (i *Invoice) GracePeriodEnd(graceDays int) time.Time {
	return i.DueDate.AddDate(0, 0, graceDays)
}

// IsPastGrace reports whether today is strictly after due date plus grace.
// Both sides are compared as calendar dates.
func (i *Invoice) IsPastGrace(today time.Time, graceDays int) bool {
	return DaysBetween(i.GracePeriodEnd(graceDays), today) > 0
}

// MarkOverdue moves a PENDING or PARTIAL invoice with a balance past its grace
// period to OVERDUE. It reports whether the status changed.
func (i *Invoice) MarkOverdue(today time.Time, graceDays int, now time.Time) bool {
	if !i.Status.CanTransitionTo(StatusOverdue) {
		return false
	}
	if i.DueAmount <= 0 || !i.IsPastGrace(today, graceDays) {
		return false
	}
	i.Status = StatusOverdue
	i.UpdatedAt = now
	return true
}

// ApplyLateFee replaces the late fee. The fee is lowered if needed so the
// adjusted total never drops below what was already paid; if that leaves no
// balance the invoice is settled. It reports whether anything changed.
func (i *Invoice) ApplyLateFee(fee int64, now time.Time) bool {
	if i.Status.IsTerminal() {
		return false
	}
	if fee < 0 {
		fee = 0
	}
	if floor := i.PaidAmount - i.TotalAmount; fee < floor {
		fee = floor
	}
	if fee == i.LateFee {
		return false
	}
	i.LateFee = fee
	i.recompute()
	if i.DueAmount == 0 {
		i.settle(now)
	}
	i.UpdatedAt = now
	return true
}

// UpdateCharges replaces the line items and recomputes the totals.
func (i *Invoice) UpdateCharges(c Charges, now time.Time) error {
	if i.Status.IsTerminal() {
		return ErrInvoiceAlreadyPaid
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Total()+i.LateFee < i.PaidAmount {
		return ErrChargesBelowPaid
	}
	i.BaseRent = c.BaseRent
	i.ElectricityCharge = c.Electricity
	i.GasCharge = c.Gas
	i.WaterCharge = c.Water
	i.ServiceCharge = c.Service
	i.recompute()
	if i.DueAmount == 0 && i.PaidAmount > 0 {
		i.settle(now)
	}
	i.UpdatedAt = now
	return nil
}

// IsReclaimable reports whether the invoice may be deleted when its unit is vacated.
func (i *Invoice) IsReclaimable() bool {
	return i.Status != StatusPaid && i.DueAmount > 0
}

// CanBeAccessedBy reports whether the user is the invoice's owner or tenant.
func (i *Invoice) CanBeAccessedBy(userID string) bool {
	if userID == "" {
		return false
	}
	return i.OwnerID == userID || i.TenantID == userID
}

// Clone returns a detached copy.
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	copy := *i
	if i.PaidDate != nil {
		paid := *i.PaidDate
		copy.PaidDate = &paid
	}
	return &copy
}

// settle moves the invoice to PAID. Every open status may settle.
func (i *Invoice) settle(now time.Time) {
	i.Status = StatusPaid
	paidAt := now
	i.PaidDate = &paidAt
}

func (i *Invoice) recompute() {
	i.TotalAmount = i.Charges().Total()
	i.AdjustedTotal = i.TotalAmount + i.LateFee
	i.DueAmount = i.AdjustedTotal - i.PaidAmount
}
