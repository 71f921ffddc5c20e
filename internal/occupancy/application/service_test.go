package application

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-billing/internal/eventing"
	occupancy "rent-billing/internal/occupancy/domain"
)

type stubFlats struct {
	flat  *occupancy.Flat
	saved *occupancy.Flat
}

func (s *stubFlats) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*occupancy.Flat, error) {
	if s.flat == nil || s.flat.ID != id {
		return nil, nil
	}
	copy := *s.flat
	return &copy, nil
}

func (s *stubFlats) SaveOccupancyTx(ctx context.Context, tx *sql.Tx, flat *occupancy.Flat) error {
	s.saved = flat
	return nil
}

type stubPublisher struct {
	published []any
	flushed   int
}

func (p *stubPublisher) PublishTx(ctx context.Context, tx *sql.Tx, event any) (eventing.Envelope, error) {
	p.published = append(p.published, event)
	return eventing.BuildEnvelope(event, eventing.Meta{})
}

func (p *stubPublisher) Flush(ctx context.Context) error {
	p.flushed++
	return nil
}

func newTestService(t *testing.T, flats *stubFlats, pub *stubPublisher) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc, err := NewService(db, flats, pub, nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC) }
	return svc, mock
}

func TestVacateUnitPublishesInTransaction(t *testing.T) {
	flats := &stubFlats{flat: &occupancy.Flat{ID: "flat-1", OwnerID: "owner-1", Status: occupancy.FlatOccupied, TenantID: "tenant-1"}}
	pub := &stubPublisher{}
	svc, mock := newTestService(t, flats, pub)
	mock.ExpectBegin()
	mock.ExpectCommit()

	event, err := svc.VacateUnit(context.Background(), "owner-1", "flat-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, "flat-1", event.UnitID)
	require.NotNil(t, flats.saved)
	assert.Equal(t, occupancy.FlatVacant, flats.saved.Status)
	assert.Len(t, pub.published, 1)
	assert.Equal(t, 1, pub.flushed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVacateUnitRejections(t *testing.T) {
	cases := []struct {
		name    string
		flat    *occupancy.Flat
		ownerID string
		wantErr error
	}{
		{name: "missing flat", flat: nil, ownerID: "owner-1", wantErr: occupancy.ErrFlatNotFound},
		{name: "other owner", flat: &occupancy.Flat{ID: "flat-1", OwnerID: "owner-2", Status: occupancy.FlatOccupied, TenantID: "t"}, ownerID: "owner-1", wantErr: occupancy.ErrNotOwner},
		{name: "already vacant", flat: &occupancy.Flat{ID: "flat-1", OwnerID: "owner-1", Status: occupancy.FlatVacant}, ownerID: "owner-1", wantErr: occupancy.ErrAlreadyVacant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &stubPublisher{}
			svc, mock := newTestService(t, &stubFlats{flat: tc.flat}, pub)
			mock.ExpectBegin()
			mock.ExpectRollback()

			_, err := svc.VacateUnit(context.Background(), tc.ownerID, "flat-1")
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, pub.published)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
