package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"rent-billing/internal/audit"
	billingapp "rent-billing/internal/billing/application"
	"rent-billing/internal/scheduler"
)

const jobsPath = "/api/v1/jobs"

// JobGuard runs fn unless the named job is already running.
type JobGuard interface {
	Exclusive(ctx context.Context, name string, fn func(context.Context)) error
}

type runView struct {
	*billingapp.RunResult
	Fatal string `json:"fatal,omitempty"`
}

// JobsHandler lists billing jobs and triggers single runs.
type JobsHandler struct {
	jobs        *billingapp.Jobs
	guard       JobGuard
	auditLogger audit.Logger
	logger      *zap.Logger
}

// NewJobsHandler constructs a handler.
func NewJobsHandler(jobs *billingapp.Jobs, guard JobGuard, auditLogger audit.Logger, logger *zap.Logger) (*JobsHandler, error) {
	if jobs == nil {
		return nil, errors.New("jobs handler: nil jobs")
	}
	if guard == nil {
		return nil, errors.New("jobs handler: nil guard")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsHandler{jobs: jobs, guard: guard, auditLogger: auditLogger, logger: logger.With(zap.String("component", "jobs_handler"))}, nil
}

// ServeHTTP handles GET /api/v1/jobs and POST /api/v1/jobs/{name}/run.
func (h *JobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == jobsPath && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"jobs": h.jobs.Names()})
		return
	}
	rest := strings.TrimPrefix(path, jobsPath+"/")
	parts := strings.Split(rest, "/")
	if rest != path && len(parts) == 2 && parts[1] == "run" && r.Method == http.MethodPost {
		h.handleRun(w, r, parts[0])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *JobsHandler) handleRun(w http.ResponseWriter, r *http.Request, name string) {
	if _, err := h.jobs.Func(name); err != nil {
		respondError(w, h.logger, err)
		return
	}
	var (
		result *billingapp.RunResult
		runErr error
	)
	err := h.guard.Exclusive(r.Context(), name, func(ctx context.Context) {
		result, runErr = h.jobs.Run(ctx, name)
	})
	if errors.Is(err, scheduler.ErrJobRunning) {
		http.Error(w, "job already running", http.StatusConflict)
		return
	}
	if err == nil {
		err = runErr
	}
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, runView{RunResult: result, Fatal: result.FatalMessage()})
	logAudit(r, h.auditLogger, h.logger, audit.ActionJobTriggered, "job", name, map[string]any{
		"created": result.Created,
		"updated": result.Updated,
		"deleted": result.Deleted,
		"errors":  len(result.Errors),
	})
}
