package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-billing/internal/auth"
	"rent-billing/internal/notifications"
	"rent-billing/internal/notifications/infrastructure/postgres"
)

type fakeInbox struct {
	records    []postgres.Record
	unreadOnly bool
	read       map[string]bool
}

func (f *fakeInbox) ListForRecipient(_ context.Context, recipientID string, unreadOnly bool, _ int) ([]postgres.Record, error) {
	f.unreadOnly = unreadOnly
	var out []postgres.Record
	for _, rec := range f.records {
		if rec.RecipientID == recipientID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, recipientID, id string) (bool, error) {
	for _, rec := range f.records {
		if rec.ID == id && rec.RecipientID == recipientID && !f.read[id] {
			f.read[id] = true
			return true, nil
		}
	}
	return false, nil
}

func serve(t *testing.T, h http.Handler, subject, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if subject != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.RoleTenant, subject))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNotificationInbox(t *testing.T) {
	inbox := &fakeInbox{
		records: []postgres.Record{
			{Notification: notifications.Notification{ID: "n-1", RecipientID: "tenant-1", Kind: notifications.KindRentGenerated}},
			{Notification: notifications.Notification{ID: "n-2", RecipientID: "tenant-2", Kind: notifications.KindPaymentOverdue}},
		},
		read: map[string]bool{},
	}
	h, err := NewHandler(inbox, nil)
	require.NoError(t, err)

	rec := serve(t, h, "tenant-1", http.MethodGet, "/api/v1/notifications?unread=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []postgres.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "n-1", records[0].ID)
	assert.True(t, inbox.unreadOnly)

	rec = serve(t, h, "tenant-3", http.MethodGet, "/api/v1/notifications")
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, serve(t, h, "tenant-1", http.MethodPost, "/api/v1/notifications/n-1/read").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "tenant-1", http.MethodPost, "/api/v1/notifications/n-1/read").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "tenant-1", http.MethodPost, "/api/v1/notifications/n-2/read").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, h, "", http.MethodGet, "/api/v1/notifications").Code)
}
