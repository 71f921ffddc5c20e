package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rent-billing/internal/eventing"
	"rent-billing/internal/occupancy/application/events"
	occupancy "rent-billing/internal/occupancy/domain"
)

// FlatStore is the transactional flat storage used by the service.
type FlatStore interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*occupancy.Flat, error)
	SaveOccupancyTx(ctx context.Context, tx *sql.Tx, flat *occupancy.Flat) error
}

// EventPublisher records events in the caller's transaction.
type EventPublisher interface {
	PublishTx(ctx context.Context, tx *sql.Tx, event any) (eventing.Envelope, error)
	Flush(ctx context.Context) error
}

// Service changes flat occupancy.
type Service struct {
	db        *sql.DB
	flats     FlatStore
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs an occupancy service.
func NewService(db *sql.DB, flats FlatStore, publisher EventPublisher, logger *zap.Logger) (*Service, error) {
	if db == nil {
		return nil, errors.New("occupancy service: nil db")
	}
	if flats == nil {
		return nil, errors.New("occupancy service: nil flat store")
	}
	if publisher == nil {
		return nil, errors.New("occupancy service: nil publisher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:        db,
		flats:     flats,
		publisher: publisher,
		logger:    logger.With(zap.String("component", "occupancy")),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// VacateUnit marks a flat vacant and records UnitVacated in the same
// transaction. An empty ownerID skips the ownership check.
func (s *Service) VacateUnit(ctx context.Context, ownerID, unitID string) (events.UnitVacated, error) {
	if unitID == "" {
		return events.UnitVacated{}, occupancy.ErrFlatNotFound
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return events.UnitVacated{}, err
	}
	defer func() { _ = tx.Rollback() }()

	flat, err := s.flats.GetForUpdate(ctx, tx, unitID)
	if err != nil {
		return events.UnitVacated{}, err
	}
	if flat == nil {
		return events.UnitVacated{}, occupancy.ErrFlatNotFound
	}
	if ownerID != "" && flat.OwnerID != ownerID {
		return events.UnitVacated{}, occupancy.ErrNotOwner
	}
	now := s.now()
	tenantID, err := flat.Vacate(now)
	if err != nil {
		return events.UnitVacated{}, err
	}
	if err := s.flats.SaveOccupancyTx(ctx, tx, flat); err != nil {
		return events.UnitVacated{}, err
	}
	event := events.UnitVacated{
		UnitID:     flat.ID,
		OwnerID:    flat.OwnerID,
		TenantID:   tenantID,
		OccurredAt: now,
	}
	if _, err := s.publisher.PublishTx(ctx, tx, event); err != nil {
		return events.UnitVacated{}, fmt.Errorf("occupancy service: publish: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return events.UnitVacated{}, err
	}
	s.logger.Info("unit vacated",
		zap.String("unit_id", flat.ID),
		zap.String("owner_id", flat.OwnerID),
		zap.String("tenant_id", tenantID))

	if err := s.publisher.Flush(ctx); err != nil {
		s.logger.Warn("outbox flush failed; dispatcher will retry", zap.String("unit_id", flat.ID), zap.Error(err))
	}
	return event, nil
}
