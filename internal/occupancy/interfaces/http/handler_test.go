package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-billing/internal/audit"
	"rent-billing/internal/auth"
	"rent-billing/internal/occupancy/application/events"
	occupancy "rent-billing/internal/occupancy/domain"
)

type stubVacater struct {
	gotOwner string
	gotUnit  string
	err      error
}

func (s *stubVacater) VacateUnit(_ context.Context, ownerID, unitID string) (events.UnitVacated, error) {
	s.gotOwner, s.gotUnit = ownerID, unitID
	if s.err != nil {
		return events.UnitVacated{}, s.err
	}
	return events.UnitVacated{UnitID: unitID, OwnerID: "owner-1", TenantID: "tenant-1"}, nil
}

type auditRecorder struct{ entries []audit.Entry }

func (a *auditRecorder) Log(_ context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

func vacate(t *testing.T, h http.Handler, role auth.Role, subject, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), role, subject))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVacateUnit(t *testing.T) {
	svc := &stubVacater{}
	recorder := &auditRecorder{}
	h, err := NewUnitHandler(svc, recorder, nil)
	require.NoError(t, err)

	rec := vacate(t, h, auth.RoleOwner, "owner-1", "/api/v1/units/flat-7/vacate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner-1", svc.gotOwner)
	assert.Equal(t, "flat-7", svc.gotUnit)
	assert.Contains(t, rec.Body.String(), `"tenant_id":"tenant-1"`)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, audit.ActionUnitVacated, recorder.entries[0].Action)

	rec = vacate(t, h, auth.RoleAdmin, "admin-1", "/api/v1/units/flat-7/vacate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.gotOwner)
}

func TestVacateUnitErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"missing flat", occupancy.ErrFlatNotFound, http.StatusNotFound},
		{"foreign flat", occupancy.ErrNotOwner, http.StatusNotFound},
		{"already vacant", occupancy.ErrAlreadyVacant, http.StatusConflict},
		{"storage failure", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := NewUnitHandler(&stubVacater{err: tc.err}, nil, nil)
			require.NoError(t, err)
			rec := vacate(t, h, auth.RoleOwner, "owner-1", "/api/v1/units/flat-7/vacate")
			assert.Equal(t, tc.code, rec.Code)
		})
	}

	h, err := NewUnitHandler(&stubVacater{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, vacate(t, h, auth.RoleOwner, "owner-1", "/api/v1/units//vacate").Code)
	assert.Equal(t, http.StatusNotFound, vacate(t, h, auth.RoleOwner, "owner-1", "/api/v1/units/flat-7").Code)
}
