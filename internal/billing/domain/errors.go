package billing

import "errors"

var (
	// ErrEmptyUnitID is returned when a unit id is empty.
	ErrEmptyUnitID = errors.New("billing: empty unit id")
	// ErrEmptyOwnerID is returned when an owner id is empty.
	ErrEmptyOwnerID = errors.New("billing: empty owner id")
	// ErrEmptyTenantID is returned when an occupied unit has no tenant.
	ErrEmptyTenantID = errors.New("billing: empty tenant id")
	// ErrInvalidPeriod is returned when a billing period cannot be parsed.
	ErrInvalidPeriod = errors.New("billing: period must be YYYY-MM")
	// ErrInvalidDueDate is returned when a due date is zero.
	ErrInvalidDueDate = errors.New("billing: invalid due date")
	// ErrNegativeAmount is returned when a charge is negative.
	ErrNegativeAmount = errors.New("billing: negative amount")
	// ErrNilInvoice is returned when persisting a nil invoice.
	ErrNilInvoice = errors.New("billing: nil invoice")

	// ErrInvalidPaymentAmount is returned when a payment is zero or negative.
	ErrInvalidPaymentAmount = errors.New("billing: payment amount must be greater than 0")
	// ErrPaymentExceedsBalance is returned when a payment would overpay the invoice.
	ErrPaymentExceedsBalance = errors.New("billing: payment amount exceeds total rent amount")
	// ErrInvoiceAlreadyPaid is returned when mutating a settled invoice.
	ErrInvoiceAlreadyPaid = errors.New("billing: invoice already paid")
	// ErrChargesBelowPaid is returned when a charge update would drop the total below what was paid.
	ErrChargesBelowPaid = errors.New("billing: charges below paid amount")
	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("billing: invalid status transition")

	// ErrDuplicateInvoice is returned when an invoice already exists for the unit and period.
	ErrDuplicateInvoice = errors.New("billing: rent for this unit and period already exists")
	// ErrInvoiceNotFound is returned when an invoice is not found.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrUnitNotFound is returned when a unit is not found.
	ErrUnitNotFound = errors.New("billing: unit not found")
	// ErrInvalidConfig is returned when a billing config fails validation.
	ErrInvalidConfig = errors.New("billing: invalid billing config")
	// ErrConcurrentUpdate is returned when an invoice changed since it was read.
	ErrConcurrentUpdate = errors.New("billing: invoice modified concurrently")
	// ErrForbidden is returned when the caller may not access the invoice.
	ErrForbidden = errors.New("billing: forbidden")
)

// IsValidationError reports whether err is a caller mistake rather than an infrastructure failure.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyUnitID),
		errors.Is(err, ErrEmptyOwnerID),
		errors.Is(err, ErrEmptyTenantID),
		errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrInvalidDueDate),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrInvalidPaymentAmount),
		errors.Is(err, ErrPaymentExceedsBalance),
		errors.Is(err, ErrInvoiceAlreadyPaid),
		errors.Is(err, ErrChargesBelowPaid),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidConfig):
		return true
	}
	return false
}
