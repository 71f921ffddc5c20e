package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"rent-billing/internal/audit"
	billingapp "rent-billing/internal/billing/application"
	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/observability/metrics"
)

const invoicesPath = "/api/v1/invoices"

// InvoiceHandler handles invoice APIs under /api/v1/invoices.
type InvoiceHandler struct {
	service     *billingapp.InvoiceService
	generator   *billingapp.Generator
	auditLogger audit.Logger
	loc         *time.Location
	logger      *zap.Logger
}

// NewInvoiceHandler constructs a handler.
func NewInvoiceHandler(service *billingapp.InvoiceService, generator *billingapp.Generator, auditLogger audit.Logger, loc *time.Location, logger *zap.Logger) (*InvoiceHandler, error) {
	if service == nil {
		return nil, errors.New("invoice handler: nil service")
	}
	if generator == nil {
		return nil, errors.New("invoice handler: nil generator")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceHandler{
		service:     service,
		generator:   generator,
		auditLogger: auditLogger,
		loc:         loc,
		logger:      logger.With(zap.String("component", "invoice_handler")),
	}, nil
}

// ServeHTTP routes invoice requests.
func (h *InvoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == invoicesPath+"/generate" && r.Method == http.MethodPost:
		h.handleGenerate(w, r)
		return
	case path == invoicesPath+"/stats" && r.Method == http.MethodGet:
		h.handleStats(w, r)
		return
	case path == invoicesPath+"/export.xlsx" && r.Method == http.MethodGet:
		h.handleExportXLSX(w, r)
		return
	case path == invoicesPath && r.Method == http.MethodPost:
		h.handleCreate(w, r)
		return
	case path == invoicesPath && r.Method == http.MethodGet:
		h.handleList(w, r)
		return
	case strings.HasPrefix(path, invoicesPath+"/"):
		h.handleByID(w, r, strings.TrimPrefix(path, invoicesPath+"/"))
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *InvoiceHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
			return
		case http.MethodPatch:
			h.handleUpdateCharges(w, r, id)
			return
		case http.MethodDelete:
			h.handleDelete(w, r, id)
			return
		}
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "payments":
			if r.Method == http.MethodPost {
				h.handlePayment(w, r, id)
				return
			}
		case "receipt.pdf":
			if r.Method == http.MethodGet {
				h.handleReceiptPDF(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

type generateRequest struct {
	OwnerID string `json:"owner_id"`
	Period  string `json:"period" validate:"required"`
	DueDate string `json:"due_date" validate:"required"`
}

func (h *InvoiceHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	actor := actorFrom(r)
	ownerID := actor.UserID
	if req.OwnerID != "" && req.OwnerID != ownerID {
		if actor.Role != billingapp.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ownerID = req.OwnerID
	}
	period, err := billing.ParsePeriod(req.Period)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	dueDate, err := parseDate(req.DueDate, h.loc)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	summary, err := h.generator.GenerateForOwner(r.Context(), ownerID, period, dueDate)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
	logAudit(r, h.auditLogger, h.logger, audit.ActionRentsGenerated, "owner", ownerID, map[string]any{
		"period":  summary.Period,
		"created": summary.Created,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
}

type createRequest struct {
	UnitID            string `json:"unit_id" validate:"required"`
	Period            string `json:"period" validate:"required"`
	DueDate           string `json:"due_date" validate:"required"`
	BaseRent          int64  `json:"base_rent" validate:"gte=0"`
	ElectricityCharge int64  `json:"electricity_charge" validate:"gte=0"`
	GasCharge         int64  `json:"gas_charge" validate:"gte=0"`
	WaterCharge       int64  `json:"water_charge" validate:"gte=0"`
	ServiceCharge     int64  `json:"service_charge" validate:"gte=0"`
	Note              string `json:"note" validate:"max=500"`
}

func (h *InvoiceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	period, err := billing.ParsePeriod(req.Period)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	dueDate, err := parseDate(req.DueDate, h.loc)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	inv, err := h.service.Create(r.Context(), actorFrom(r), billingapp.CreateInvoiceInput{
		UnitID:  req.UnitID,
		Period:  period,
		DueDate: dueDate,
		Charges: billing.Charges{
			BaseRent:    req.BaseRent,
			Electricity: req.ElectricityCharge,
			Gas:         req.GasCharge,
			Water:       req.WaterCharge,
			Service:     req.ServiceCharge,
		},
		Note: req.Note,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceView(inv))
	logAudit(r, h.auditLogger, h.logger, audit.ActionInvoiceCreated, "invoice", inv.ID, map[string]any{
		"unit_id": inv.UnitID,
		"period":  inv.Period.Label(),
		"total":   inv.TotalAmount,
	})
}

func (h *InvoiceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	statuses, err := parseStatuses(query.Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, offset := parsePaging(r)
	actor := actorFrom(r)

	var invoices []*billing.Invoice
	if actor.Role == billingapp.RoleTenant {
		invoices, err = h.service.PaymentHistory(r.Context(), actor.UserID, statuses, limit, offset)
	} else {
		filter := billing.InvoiceFilter{
			OwnerID:  query.Get("owner_id"),
			UnitID:   query.Get("unit_id"),
			TenantID: query.Get("tenant_id"),
			Statuses: statuses,
			Limit:    limit,
			Offset:   offset,
		}
		if label := query.Get("period"); label != "" {
			period, perr := billing.ParsePeriod(label)
			if perr != nil {
				respondError(w, h.logger, perr)
				return
			}
			filter.Period = &period
		}
		invoices, err = h.service.List(r.Context(), actor, filter)
	}
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceViews(invoices))
}

func (h *InvoiceHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	period, err := billing.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	stats, err := h.service.MonthlyStats(r.Context(), ownerScope(r), period)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *InvoiceHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.service.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceView(inv))
}

type chargesRequest struct {
	BaseRent          *int64 `json:"base_rent" validate:"omitempty,gte=0"`
	ElectricityCharge *int64 `json:"electricity_charge" validate:"omitempty,gte=0"`
	GasCharge         *int64 `json:"gas_charge" validate:"omitempty,gte=0"`
	WaterCharge       *int64 `json:"water_charge" validate:"omitempty,gte=0"`
	ServiceCharge     *int64 `json:"service_charge" validate:"omitempty,gte=0"`
}

func (req chargesRequest) merge(c billing.Charges) billing.Charges {
	if req.BaseRent != nil {
		c.BaseRent = *req.BaseRent
	}
	if req.ElectricityCharge != nil {
		c.Electricity = *req.ElectricityCharge
	}
	if req.GasCharge != nil {
		c.Gas = *req.GasCharge
	}
	if req.WaterCharge != nil {
		c.Water = *req.WaterCharge
	}
	if req.ServiceCharge != nil {
		c.Service = *req.ServiceCharge
	}
	return c
}

func (h *InvoiceHandler) handleUpdateCharges(w http.ResponseWriter, r *http.Request, id string) {
	var req chargesRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	actor := actorFrom(r)
	current, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	charges := req.merge(current.Charges())
	inv, err := h.service.UpdateCharges(r.Context(), actor, id, charges)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceView(inv))
	logAudit(r, h.auditLogger, h.logger, audit.ActionInvoiceUpdated, "invoice", inv.ID, charges)
}

func (h *InvoiceHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), actorFrom(r), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logAudit(r, h.auditLogger, h.logger, audit.ActionInvoiceDeleted, "invoice", id, nil)
}

type paymentRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Method string `json:"payment_method" validate:"max=50"`
	Note   string `json:"note" validate:"max=500"`
}

func (h *InvoiceHandler) handlePayment(w http.ResponseWriter, r *http.Request, id string) {
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	inv, err := h.service.RecordPayment(r.Context(), actorFrom(r), id, billingapp.PaymentInput{
		Amount: req.Amount,
		Method: req.Method,
		Note:   req.Note,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceView(inv))
	logAudit(r, h.auditLogger, h.logger, audit.ActionPaymentRecorded, "invoice", inv.ID, map[string]any{
		"amount": req.Amount,
		"method": req.Method,
		"status": inv.Status.String(),
	})
}

func (h *InvoiceHandler) handleReceiptPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("pdf", result, time.Since(start))
	}()

	inv, err := h.service.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		result = metrics.ResultError
		respondError(w, h.logger, err)
		return
	}
	data, err := BuildReceiptPDF(inv)
	if err != nil {
		result = metrics.ResultError
		h.logger.Error("build receipt pdf failed", zap.String("invoice_id", id), zap.Error(err))
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *InvoiceHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("xlsx", result, time.Since(start))
	}()

	period, err := billing.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		result = metrics.ResultError
		respondError(w, h.logger, err)
		return
	}
	ownerID := ownerScope(r)
	if ownerID == "" {
		result = metrics.ResultError
		respondError(w, h.logger, billing.ErrEmptyOwnerID)
		return
	}
	actor := actorFrom(r)
	invoices, err := h.service.List(r.Context(), actor, billing.InvoiceFilter{OwnerID: ownerID, Period: &period})
	if err != nil {
		result = metrics.ResultError
		respondError(w, h.logger, err)
		return
	}
	stats, err := h.service.MonthlyStats(r.Context(), ownerID, period)
	if err != nil {
		result = metrics.ResultError
		respondError(w, h.logger, err)
		return
	}
	data, err := BuildMonthlyReportXLSX(period, invoices, stats)
	if err != nil {
		result = metrics.ResultError
		h.logger.Error("build monthly report failed", zap.String("owner_id", ownerID), zap.Error(err))
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
