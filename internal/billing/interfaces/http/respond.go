package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"rent-billing/internal/audit"
	"rent-billing/internal/auth"
	billingapp "rent-billing/internal/billing/application"
	billing "rent-billing/internal/billing/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// decode reads a JSON body into dst and validates its tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid json")
	}
	if err := requestValidator().Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return errors.New(strings.ToLower(fieldErrs[0].Field()) + " is invalid")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func actorFrom(r *http.Request) billingapp.Actor {
	return billingapp.Actor{
		UserID: auth.SubjectFromContext(r.Context()),
		Role:   billingapp.Role(auth.RoleFromContext(r.Context())),
	}
}

// ownerScope resolves the owner a request acts for. Admins name the owner
// with the owner_id query parameter.
func ownerScope(r *http.Request) string {
	actor := actorFrom(r)
	if actor.Role == billingapp.RoleAdmin {
		return r.URL.Query().Get("owner_id")
	}
	return actor.UserID
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, billing.ErrInvalidDueDate
	}
	return t, nil
}

func parsePaging(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseStatuses(value string) ([]billing.InvoiceStatus, error) {
	if value == "" {
		return nil, nil
	}
	var statuses []billing.InvoiceStatus
	for _, part := range strings.Split(value, ",") {
		status, ok := billing.ParseStatus(strings.ToUpper(strings.TrimSpace(part)))
		if !ok {
			return nil, errors.New("invalid status " + part)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// respondError maps service errors to status codes.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, billing.ErrInvoiceNotFound), errors.Is(err, billing.ErrUnitNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, billing.ErrDuplicateInvoice), errors.Is(err, billing.ErrConcurrentUpdate):
		http.Error(w, err.Error(), http.StatusConflict)
	case billing.IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, billingapp.ErrUnknownJob):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func logAudit(r *http.Request, logger audit.Logger, zlog *zap.Logger, action, resourceType, resourceID string, meta any) {
	if logger == nil {
		return
	}
	actor := actorFrom(r)
	entry := audit.NewEntry(r, actor.UserID, string(actor.Role), action, resourceType, resourceID, meta)
	if err := logger.Log(r.Context(), entry); err != nil {
		zlog.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}
