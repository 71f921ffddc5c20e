package billing

import "github.com/shopspring/decimal"

// Unit is a read-only snapshot of a rentable flat.
type Unit struct {
	ID              string
	OwnerID         string
	Name            string
	Occupied        bool
	TenantID        string
	BaseRent        int64
	CurrentReading  decimal.Decimal
	PreviousReading decimal.Decimal
	// RatePerUnit is the electricity price per meter unit; zero means the default rate.
	RatePerUnit decimal.Decimal
}

// HasTenant reports whether the unit is occupied by a known tenant.
func (u Unit) HasTenant() bool {
	return u.Occupied && u.TenantID != ""
}

// OwnerCharges are flat monthly utility charges set at the owner's property level.
type OwnerCharges struct {
	Water int64
	Gas   int64
}
