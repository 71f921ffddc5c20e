package http

import (
	"time"

	billing "rent-billing/internal/billing/domain"
)

const dateLayout = "2006-01-02"

type invoiceView struct {
	ID                string     `json:"id"`
	UnitID            string     `json:"unit_id"`
	TenantID          string     `json:"tenant_id"`
	OwnerID           string     `json:"owner_id"`
	Period            string     `json:"period"`
	BaseRent          int64      `json:"base_rent"`
	ElectricityCharge int64      `json:"electricity_charge"`
	GasCharge         int64      `json:"gas_charge"`
	WaterCharge       int64      `json:"water_charge"`
	ServiceCharge     int64      `json:"service_charge"`
	TotalAmount       int64      `json:"total_amount"`
	LateFee           int64      `json:"late_fee"`
	AdjustedTotal     int64      `json:"adjusted_total"`
	PaidAmount        int64      `json:"paid_amount"`
	DueAmount         int64      `json:"due_amount"`
	Status            string     `json:"status"`
	DueDate           string     `json:"due_date"`
	PaidDate          *time.Time `json:"paid_date,omitempty"`
	PaymentMethod     string     `json:"payment_method,omitempty"`
	Note              string     `json:"note,omitempty"`
	IsAutoGenerated   bool       `json:"is_auto_generated"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int64      `json:"version"`
}

func toInvoiceView(inv *billing.Invoice) invoiceView {
	return invoiceView{
		ID:                inv.ID,
		UnitID:            inv.UnitID,
		TenantID:          inv.TenantID,
		OwnerID:           inv.OwnerID,
		Period:            inv.Period.Label(),
		BaseRent:          inv.BaseRent,
		ElectricityCharge: inv.ElectricityCharge,
		GasCharge:         inv.GasCharge,
		WaterCharge:       inv.WaterCharge,
		ServiceCharge:     inv.ServiceCharge,
		TotalAmount:       inv.TotalAmount,
		LateFee:           inv.LateFee,
		AdjustedTotal:     inv.AdjustedTotal,
		PaidAmount:        inv.PaidAmount,
		DueAmount:         inv.DueAmount,
		Status:            inv.Status.String(),
		DueDate:           inv.DueDate.Format(dateLayout),
		PaidDate:          inv.PaidDate,
		PaymentMethod:     inv.PaymentMethod,
		Note:              inv.Note,
		IsAutoGenerated:   inv.IsAutoGenerated,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
		Version:           inv.Version,
	}
}

func toInvoiceViews(invoices []*billing.Invoice) []invoiceView {
	views := make([]invoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, toInvoiceView(inv))
	}
	return views
}
