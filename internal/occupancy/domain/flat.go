package occupancy

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// FlatStatus is the occupancy state of a flat.
type FlatStatus string

const (
	FlatOccupied FlatStatus = "OCCUPIED"
	FlatVacant   FlatStatus = "VACANT"
)

var (
	// ErrFlatNotFound is returned when a flat does not exist.
	ErrFlatNotFound = errors.New("occupancy: flat not found")
	// ErrAlreadyVacant is returned when vacating a vacant flat.
	ErrAlreadyVacant = errors.New("occupancy: flat already vacant")
	// ErrNotOwner is returned when the caller does not own the flat.
	ErrNotOwner = errors.New("occupancy: not the flat owner")
)

// Flat is a rentable unit inside an owner's house.
type Flat struct {
	ID              string
	HouseID         string
	OwnerID         string
	Name            string
	Status          FlatStatus
	TenantID        string
	Rent            int64
	CurrentReading  decimal.Decimal
	PreviousReading decimal.Decimal
	RatePerUnit     decimal.Decimal
	UpdatedAt       time.Time
}

// IsOccupied reports whether the flat is marked occupied.
func (f *Flat) IsOccupied() bool {
	return f.Status == FlatOccupied
}

// Vacate marks the flat vacant and clears its tenant. It returns the tenant
// that moved out.
func (f *Flat) Vacate(now time.Time) (string, error) {
	if f.Status == FlatVacant && f.TenantID == "" {
		return "", ErrAlreadyVacant
	}
	tenantID := f.TenantID
	f.Status = FlatVacant
	f.TenantID = ""
	f.UpdatedAt = now
	return tenantID, nil
}

// House groups an owner's flats and carries the flat monthly utility bills.
type House struct {
	ID        string
	OwnerID   string
	Name      string
	WaterBill int64
	GasBill   int64
}
