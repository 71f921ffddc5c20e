package occupancy

import (
	"context"
	"errors"

	billing "rent-billing/internal/billing/domain"
	occupancy "rent-billing/internal/occupancy/domain"
)

// FlatReader is the read side of the occupancy store.
type FlatReader interface {
	Get(ctx context.Context, id string) (*occupancy.Flat, error)
	ListOccupied(ctx context.Context, ownerID string) ([]occupancy.Flat, error)
	ListVacant(ctx context.Context) ([]occupancy.Flat, error)
	OwnerHouse(ctx context.Context, ownerID string) (*occupancy.House, error)
}

// UnitReader answers billing's occupancy questions from the flats store.
type UnitReader struct {
	flats FlatReader
}

// NewUnitReader constructs a reader.
func NewUnitReader(flats FlatReader) (*UnitReader, error) {
	if flats == nil {
		return nil, errors.New("unit reader: nil flat reader")
	}
	return &UnitReader{flats: flats}, nil
}

// ListOccupiedUnits returns the owner's occupied flats with a tenant.
func (r *UnitReader) ListOccupiedUnits(ctx context.Context, ownerID string) ([]billing.Unit, error) {
	flats, err := r.flats.ListOccupied(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return toUnits(flats), nil
}

// ListVacantUnits returns every vacant flat.
func (r *UnitReader) ListVacantUnits(ctx context.Context) ([]billing.Unit, error) {
	flats, err := r.flats.ListVacant(ctx)
	if err != nil {
		return nil, err
	}
	return toUnits(flats), nil
}

// GetUnit loads a flat. It returns nil when the flat does not exist.
func (r *UnitReader) GetUnit(ctx context.Context, unitID string) (*billing.Unit, error) {
	flat, err := r.flats.Get(ctx, unitID)
	if err != nil || flat == nil {
		return nil, err
	}
	unit := toUnit(*flat)
	return &unit, nil
}

// OwnerCharges returns the water and gas bills of the owner's house, or zero
// charges when the owner has no house on record.
func (r *UnitReader) OwnerCharges(ctx context.Context, ownerID string) (billing.OwnerCharges, error) {
	house, err := r.flats.OwnerHouse(ctx, ownerID)
	if err != nil {
		return billing.OwnerCharges{}, err
	}
	if house == nil {
		return billing.OwnerCharges{}, nil
	}
	return billing.OwnerCharges{Water: house.WaterBill, Gas: house.GasBill}, nil
}

func toUnits(flats []occupancy.Flat) []billing.Unit {
	units := make([]billing.Unit, 0, len(flats))
	for _, flat := range flats {
		units = append(units, toUnit(flat))
	}
	return units
}

func toUnit(flat occupancy.Flat) billing.Unit {
	return billing.Unit{
		ID:              flat.ID,
		OwnerID:         flat.OwnerID,
		Name:            flat.Name,
		Occupied:        flat.IsOccupied(),
		TenantID:        flat.TenantID,
		BaseRent:        flat.Rent,
		CurrentReading:  flat.CurrentReading,
		PreviousReading: flat.PreviousReading,
		RatePerUnit:     flat.RatePerUnit,
	}
}
