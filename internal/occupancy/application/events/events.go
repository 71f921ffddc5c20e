package events

import "time"

// UnitVacated is emitted when a tenant moves out of a flat.
type UnitVacated struct {
	UnitID     string    `json:"unit_id"`
	OwnerID    string    `json:"owner_id"`
	TenantID   string    `json:"tenant_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
