package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-billing/internal/audit"
	"rent-billing/internal/auth"
	billingapp "rent-billing/internal/billing/application"
	"rent-billing/internal/billing/infrastructure/memory"
	"rent-billing/internal/scheduler"
)

func TestConfigHandler(t *testing.T) {
	store := memory.NewConfigStore()
	service, err := billingapp.NewConfigService(store)
	require.NoError(t, err)
	recorder := &recordingAudit{}
	handler, err := NewConfigHandler(service, recorder, nil)
	require.NoError(t, err)
	serve := func(role auth.Role, subject, method, path string, body any) (int, configView) {
		rec := serveWith(t, handler, role, subject, method, path, body)
		var view configView
		if rec.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		}
		return rec.Code, view
	}

	code, view := serve(auth.RoleOwner, "owner-1", http.MethodGet, "/api/v1/billing-config", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, view.IsDefault)
	assert.Equal(t, 1, view.GenerationDay)

	code, view = serve(auth.RoleOwner, "owner-1", http.MethodPut, "/api/v1/billing-config",
		map[string]any{"generation_day": 10, "grace_period_days": 3})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 10, view.GenerationDay)
	assert.Equal(t, 3, view.GracePeriodDays)

	code, view = serve(auth.RoleOwner, "owner-1", http.MethodGet, "/api/v1/billing-config", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, view.IsDefault)
	assert.Equal(t, 10, view.GenerationDay)

	code, _ = serve(auth.RoleOwner, "owner-1", http.MethodPut, "/api/v1/billing-config",
		map[string]any{"generation_day": 31})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(auth.RoleAdmin, "admin-1", http.MethodGet, "/api/v1/billing-config", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	cfg, err := store.GetConfig(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.GenerationDay)
	assert.Equal(t, []string{audit.ActionConfigUpdated}, recorder.actions())
}

func newJobs(t *testing.T) *billingapp.Jobs {
	t.Helper()
	invoices := memory.NewInvoiceRepository()
	configs := memory.NewConfigStore()
	units := memory.NewUnitOracle()
	generator, err := billingapp.NewGenerator(invoices, configs, units)
	require.NoError(t, err)
	overdue, err := billingapp.NewOverdueMonitor(invoices, configs)
	require.NoError(t, err)
	lateFees, err := billingapp.NewLateFeeCalculator(invoices, configs)
	require.NoError(t, err)
	reclaimer, err := billingapp.NewReclaimer(invoices, units)
	require.NoError(t, err)
	jobs, err := billingapp.NewJobs(generator, overdue, lateFees, reclaimer, nil)
	require.NoError(t, err)
	return jobs
}

func TestJobsHandler(t *testing.T) {
	sched := scheduler.New()
	recorder := &recordingAudit{}
	handler, err := NewJobsHandler(newJobs(t), sched, recorder, nil)
	require.NoError(t, err)

	rec := serveWith(t, handler, auth.RoleAdmin, "admin-1", http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), billingapp.JobCalculateLateFees)

	rec = serveWith(t, handler, auth.RoleAdmin, "admin-1", http.MethodPost, "/api/v1/jobs/"+billingapp.JobUpdateOverdueRents+"/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, billingapp.JobUpdateOverdueRents, result["job"])

	rec = serveWith(t, handler, auth.RoleAdmin, "admin-1", http.MethodPost, "/api/v1/jobs/nope/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{audit.ActionJobTriggered}, recorder.actions())
}

type busyGuard struct{}

func (busyGuard) Exclusive(context.Context, string, func(context.Context)) error {
	return scheduler.ErrJobRunning
}

func TestJobsHandlerReportsRunningJob(t *testing.T) {
	handler, err := NewJobsHandler(newJobs(t), busyGuard{}, nil, nil)
	require.NoError(t, err)

	rec := serveWith(t, handler, auth.RoleAdmin, "admin-1", http.MethodPost, "/api/v1/jobs/"+billingapp.JobGenerateMonthlyRents+"/run", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
