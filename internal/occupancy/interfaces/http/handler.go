package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"rent-billing/internal/audit"
	"rent-billing/internal/auth"
	"rent-billing/internal/occupancy/application/events"
	occupancy "rent-billing/internal/occupancy/domain"
)

const unitsPath = "/api/v1/units/"

// Vacater vacates a unit on behalf of its owner. An empty owner id skips the
// ownership check.
type Vacater interface {
	VacateUnit(ctx context.Context, ownerID, unitID string) (events.UnitVacated, error)
}

// UnitHandler serves POST /api/v1/units/{id}/vacate.
type UnitHandler struct {
	service     Vacater
	auditLogger audit.Logger
	logger      *zap.Logger
}

// NewUnitHandler constructs a handler.
func NewUnitHandler(service Vacater, auditLogger audit.Logger, logger *zap.Logger) (*UnitHandler, error) {
	if service == nil {
		return nil, errors.New("unit handler: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitHandler{service: service, auditLogger: auditLogger, logger: logger.With(zap.String("component", "unit_handler"))}, nil
}

// ServeHTTP routes unit requests.
func (h *UnitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(strings.TrimSuffix(r.URL.Path, "/"), unitsPath)
	parts := strings.Split(rest, "/")
	if len(parts) == 2 && parts[0] != "" && parts[1] == "vacate" && r.Method == http.MethodPost {
		h.handleVacate(w, r, parts[0])
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *UnitHandler) handleVacate(w http.ResponseWriter, r *http.Request, unitID string) {
	role := auth.RoleFromContext(r.Context())
	subject := auth.SubjectFromContext(r.Context())
	ownerID := subject
	if role == auth.RoleAdmin {
		ownerID = ""
	}
	evt, err := h.service.VacateUnit(r.Context(), ownerID, unitID)
	switch {
	case err == nil:
	case errors.Is(err, occupancy.ErrFlatNotFound), errors.Is(err, occupancy.ErrNotOwner):
		http.Error(w, "unit not found", http.StatusNotFound)
		return
	case errors.Is(err, occupancy.ErrAlreadyVacant):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	default:
		h.logger.Error("vacate unit failed", zap.String("unit_id", unitID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"unit_id":   evt.UnitID,
		"owner_id":  evt.OwnerID,
		"tenant_id": evt.TenantID,
		"status":    string(occupancy.FlatVacant),
	})
	if h.auditLogger == nil {
		return
	}
	entry := audit.NewEntry(r, subject, string(role), audit.ActionUnitVacated, "unit", unitID, map[string]any{
		"previous_tenant": evt.TenantID,
	})
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit log failed", zap.Error(err))
	}
}
