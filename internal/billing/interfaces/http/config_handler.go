package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"rent-billing/internal/audit"
	billingapp "rent-billing/internal/billing/application"
	billing "rent-billing/internal/billing/domain"
)

type configView struct {
	billing.Config
	IsDefault bool `json:"is_default"`
}

// ConfigHandler serves GET|PUT /api/v1/billing-config.
type ConfigHandler struct {
	service     *billingapp.ConfigService
	auditLogger audit.Logger
	logger      *zap.Logger
}

// NewConfigHandler constructs a handler.
func NewConfigHandler(service *billingapp.ConfigService, auditLogger audit.Logger, logger *zap.Logger) (*ConfigHandler, error) {
	if service == nil {
		return nil, errors.New("config handler: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigHandler{service: service, auditLogger: auditLogger, logger: logger.With(zap.String("component", "config_handler"))}, nil
}

// ServeHTTP handles config reads and updates for the caller's owner scope.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerScope(r)
	if ownerID == "" {
		respondError(w, h.logger, billing.ErrEmptyOwnerID)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, found, err := h.service.Get(r.Context(), ownerID)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, configView{Config: cfg, IsDefault: !found})
	case http.MethodPut:
		var update billingapp.ConfigUpdate
		if err := decode(r, &update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cfg, err := h.service.Upsert(r.Context(), ownerID, update)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, configView{Config: cfg})
		logAudit(r, h.auditLogger, h.logger, audit.ActionConfigUpdated, "billing_config", ownerID, update)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
