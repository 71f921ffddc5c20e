package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rent-billing/internal/auth"
	"rent-billing/internal/notifications/infrastructure/postgres"
)

const notificationsPath = "/api/v1/notifications"

// Inbox reads and acknowledges a user's in-app notifications.
type Inbox interface {
	ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]postgres.Record, error)
	MarkRead(ctx context.Context, recipientID, id string) (bool, error)
}

// Handler serves the caller's notification inbox.
type Handler struct {
	inbox  Inbox
	logger *zap.Logger
}

// NewHandler constructs a handler.
func NewHandler(inbox Inbox, logger *zap.Logger) (*Handler, error) {
	if inbox == nil {
		return nil, errors.New("notification handler: nil inbox")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{inbox: inbox, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/notifications and
// POST /api/v1/notifications/{id}/read.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	recipient := auth.SubjectFromContext(r.Context())
	if recipient == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == notificationsPath && r.Method == http.MethodGet {
		unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err := h.inbox.ListForRecipient(r.Context(), recipient, unread, limit)
		if err != nil {
			h.logger.Error("list notifications failed", zap.String("recipient_id", recipient), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []postgres.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
		return
	}
	parts := strings.Split(strings.TrimPrefix(path, notificationsPath+"/"), "/")
	if strings.HasPrefix(path, notificationsPath+"/") && len(parts) == 2 && parts[0] != "" && parts[1] == "read" && r.Method == http.MethodPost {
		updated, err := h.inbox.MarkRead(r.Context(), recipient, parts[0])
		if err != nil {
			h.logger.Error("mark notification read failed", zap.String("notification_id", parts[0]), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !updated {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}
