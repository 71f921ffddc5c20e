package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-billing/internal/notifications"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStoreNotify(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "RENT_GENERATED", "MEDIUM", "Rent generated", "msg",
			"inv-1", "in_app,webhook", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Notify(context.Background(), notifications.Notification{
		RecipientID: "tenant-1",
		Kind:        notifications.KindRentGenerated,
		Priority:    notifications.PriorityMedium,
		Title:       "Rent generated",
		Message:     "msg",
		RelatedID:   "inv-1",
		Channels:    []notifications.Channel{notifications.ChannelInApp, notifications.ChannelWebhook},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, store.Notify(context.Background(), notifications.Notification{}))
}

func TestStoreListForRecipient(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)
	readAt := created.Add(time.Hour)
	columns := []string{"id", "recipient_id", "kind", "priority", "title", "message", "related_id", "channels", "meta", "created_at", "read_at"}

	mock.ExpectQuery(`FROM notifications WHERE recipient_id = \$1`).
		WithArgs("tenant-1", true, int64(50)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("n-2", "tenant-1", "PAYMENT_OVERDUE", "HIGH", "Overdue", "pay", "inv-1", "in_app", []byte(`{"period":"2025-01"}`), created, nil).
			AddRow("n-1", "tenant-1", "RENT_GENERATED", "MEDIUM", "Rent", "new", nil, "", []byte(`null`), created, readAt))

	records, err := store.ListForRecipient(context.Background(), "tenant-1", true, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, notifications.KindPaymentOverdue, records[0].Kind)
	assert.Equal(t, "2025-01", records[0].Meta["period"])
	assert.Equal(t, []notifications.Channel{notifications.ChannelInApp}, records[0].Channels)
	assert.Nil(t, records[0].ReadAt)
	assert.Empty(t, records[1].RelatedID)
	require.NotNil(t, records[1].ReadAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkRead(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE notifications SET read_at = \$1 WHERE id = \$2 AND recipient_id = \$3`).
		WithArgs(sqlmock.AnyArg(), "n-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(sqlmock.AnyArg(), "n-1", "tenant-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.MarkRead(context.Background(), "tenant-1", "n-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkRead(context.Background(), "tenant-2", "n-1")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
