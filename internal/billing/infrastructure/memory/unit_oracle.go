package memory

import (
	"context"
	"sort"
	"sync"

	billing "rent-billing/internal/billing/domain"
)

// UnitOracle is an in-memory occupancy view, used in tests and local runs.
type UnitOracle struct {
	mu      sync.RWMutex
	units   map[string]billing.Unit
	charges map[string]billing.OwnerCharges
}

// NewUnitOracle constructs an oracle seeded with units.
func NewUnitOracle(units ...billing.Unit) *UnitOracle {
	o := &UnitOracle{
		units:   make(map[string]billing.Unit),
		charges: make(map[string]billing.OwnerCharges),
	}
	for _, unit := range units {
		o.units[unit.ID] = unit
	}
	return o
}

// PutUnit inserts or replaces a unit.
func (o *UnitOracle) PutUnit(unit billing.Unit) {
	o.mu.Lock()
	o.units[unit.ID] = unit
	o.mu.Unlock()
}

// RemoveUnit deletes a unit.
func (o *UnitOracle) RemoveUnit(unitID string) {
	o.mu.Lock()
	delete(o.units, unitID)
	o.mu.Unlock()
}

// Vacate marks a unit vacant and clears its tenant.
func (o *UnitOracle) Vacate(unitID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	unit, ok := o.units[unitID]
	if !ok {
		return false
	}
	unit.Occupied = false
	unit.TenantID = ""
	o.units[unitID] = unit
	return true
}

// SetOwnerCharges sets flat utility charges for an owner.
func (o *UnitOracle) SetOwnerCharges(ownerID string, charges billing.OwnerCharges) {
	o.mu.Lock()
	o.charges[ownerID] = charges
	o.mu.Unlock()
}

// ListOccupiedUnits returns the owner's occupied units that have a tenant.
func (o *UnitOracle) ListOccupiedUnits(ctx context.Context, ownerID string) ([]billing.Unit, error) {
	_ = ctx
	return o.list(func(u billing.Unit) bool { return u.OwnerID == ownerID && u.HasTenant() }), nil
}

// ListVacantUnits returns every vacant unit.
func (o *UnitOracle) ListVacantUnits(ctx context.Context) ([]billing.Unit, error) {
	_ = ctx
	return o.list(func(u billing.Unit) bool { return !u.Occupied }), nil
}

// GetUnit loads a unit.
func (o *UnitOracle) GetUnit(ctx context.Context, unitID string) (*billing.Unit, error) {
	_ = ctx
	o.mu.RLock()
	unit, ok := o.units[unitID]
	o.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &unit, nil
}

// OwnerCharges returns the owner's flat utility charges.
func (o *UnitOracle) OwnerCharges(ctx context.Context, ownerID string) (billing.OwnerCharges, error) {
	_ = ctx
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.charges[ownerID], nil
}

func (o *UnitOracle) list(keep func(billing.Unit) bool) []billing.Unit {
	o.mu.RLock()
	var result []billing.Unit
	for _, unit := range o.units {
		if keep(unit) {
			result = append(result, unit)
		}
	}
	o.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
