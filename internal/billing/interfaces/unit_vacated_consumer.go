package interfaces

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"rent-billing/internal/eventing"
	"rent-billing/internal/occupancy/application/events"
)

// ConsumerUnitVacated is the processed-events name of the billing reclaim consumer.
const ConsumerUnitVacated = "billing.reclaim"

// UnitReclaimer deletes the unpaid invoices of a unit.
type UnitReclaimer interface {
	ReclaimUnit(ctx context.Context, unitID string) (int64, error)
}

// UnitVacatedConsumer reclaims a unit's unpaid invoices when it is vacated.
type UnitVacatedConsumer struct {
	reclaimer UnitReclaimer
	logger    *zap.Logger
}

// NewUnitVacatedConsumer constructs the consumer.
func NewUnitVacatedConsumer(reclaimer UnitReclaimer, logger *zap.Logger) (*UnitVacatedConsumer, error) {
	if reclaimer == nil {
		return nil, errors.New("unit vacated consumer: nil reclaimer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitVacatedConsumer{reclaimer: reclaimer, logger: logger.With(zap.String("component", "unit_vacated_consumer"))}, nil
}

// Subscribe registers the consumer on bus, deduplicated through store.
func (c *UnitVacatedConsumer) Subscribe(bus eventing.Bus, store eventing.ProcessedStore) {
	eventing.Subscribe(bus, eventing.EventTypeOf[events.UnitVacated](), ConsumerUnitVacated, c.HandleUnitVacated, store)
}

// HandleUnitVacated handles events.UnitVacated. Other events are ignored.
func (c *UnitVacatedConsumer) HandleUnitVacated(ctx context.Context, event any) error {
	var evt events.UnitVacated
	switch e := event.(type) {
	case events.UnitVacated:
		evt = e
	case *events.UnitVacated:
		if e == nil {
			return nil
		}
		evt = *e
	default:
		return nil
	}
	if evt.UnitID == "" {
		c.logger.Warn("unit vacated event without unit id")
		return nil
	}
	deleted, err := c.reclaimer.ReclaimUnit(ctx, evt.UnitID)
	if err != nil {
		c.logger.Error("reclaim vacated unit failed", zap.String("unit_id", evt.UnitID), zap.Error(err))
		return err
	}
	c.logger.Info("vacated unit reclaimed",
		zap.String("unit_id", evt.UnitID),
		zap.String("owner_id", evt.OwnerID),
		zap.Int64("deleted", deleted),
	)
	return nil
}
