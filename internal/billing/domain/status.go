package billing

// InvoiceStatus is the payment lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "PENDING"
	StatusPartial InvoiceStatus = "PARTIAL"
	StatusOverdue InvoiceStatus = "OVERDUE"
	StatusPaid    InvoiceStatus = "PAID"
)

// UnpaidStatuses are the states an invoice can be reclaimed from.
var UnpaidStatuses = []InvoiceStatus{StatusPending, StatusPartial, StatusOverdue}

// ParseStatus validates a status string.
func ParseStatus(value string) (InvoiceStatus, bool) {
	status := InvoiceStatus(value)
	return status, status.IsValid()
}

// IsValid checks whether the status is known.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusOverdue, StatusPaid:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s InvoiceStatus) IsTerminal() bool {
	return s == StatusPaid
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// OVERDUE -> PARTIAL is allowed because a partial payment on an overdue invoice
// records PARTIAL; the overdue sweep derives OVERDUE again on its next run.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusPartial || next == StatusOverdue || next == StatusPaid
	case StatusPartial:
		return next == StatusPartial || next == StatusOverdue || next == StatusPaid
	case StatusOverdue:
		return next == StatusPartial || next == StatusPaid
	}
	return false
}

func (s InvoiceStatus) String() string {
	return string(s)
}
