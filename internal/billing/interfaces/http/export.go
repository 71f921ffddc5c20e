package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	billingapp "rent-billing/internal/billing/application"
	billing "rent-billing/internal/billing/domain"
)

// BuildReceiptPDF renders a one-page receipt for an invoice.
func BuildReceiptPDF(inv *billing.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Rent Receipt")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice: %s", inv.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", inv.Period.DisplayName()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Unit: %s", inv.UnitID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tenant: %s", inv.TenantID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", inv.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Due date: %s", inv.DueDate.Format(dateLayout)))
	pdf.Ln(5)
	if inv.PaidDate != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Paid: %s", inv.PaidDate.Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	lines := []struct {
		label  string
		amount int64
	}{
		{"Base rent", inv.BaseRent},
		{"Electricity", inv.ElectricityCharge},
		{"Gas", inv.GasCharge},
		{"Water", inv.WaterCharge},
		{"Service", inv.ServiceCharge},
		{"Total", inv.TotalAmount},
		{"Late fee", inv.LateFee},
		{"Adjusted total", inv.AdjustedTotal},
		{"Paid", inv.PaidAmount},
		{"Due", inv.DueAmount},
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, "Amount", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range lines {
		pdf.CellFormat(80, 6, line.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%d", line.amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildMonthlyReportXLSX renders an owner's invoices and totals for a period.
func BuildMonthlyReportXLSX(period billing.Period, invoices []*billing.Invoice, stats billingapp.MonthlyStats) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	invoicesSheet := "invoices"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(invoicesSheet); err != nil {
		return nil, err
	}

	summary := [][2]any{
		{"Period", period.DisplayName()},
		{"Total rent", stats.TotalRent},
		{"Late fees", stats.TotalLateFees},
		{"Collected", stats.TotalCollected},
		{"Pending", stats.TotalPending},
		{"Overdue", stats.TotalOverdue},
		{"Paid invoices", stats.PaidCount},
		{"Pending invoices", stats.PendingCount},
		{"Partial invoices", stats.PartialCount},
		{"Overdue invoices", stats.OverdueCount},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Monthly Billing Report")
	for i, row := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+3), row[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+3), row[1])
	}

	headers := []string{"Invoice", "Unit", "Tenant", "Status", "Due date", "Total", "Late fee", "Paid", "Due"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(invoicesSheet, cell, header)
	}
	for i, inv := range invoices {
		row := i + 2
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("A%d", row), inv.ID)
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("B%d", row), inv.UnitID)
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("C%d", row), inv.TenantID)
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("D%d", row), inv.Status.String())
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("E%d", row), inv.DueDate.Format(dateLayout))
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("F%d", row), inv.TotalAmount)
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("G%d", row), inv.LateFee)
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("H%d", row), inv.PaidAmount)
		_ = f.SetCellValue(invoicesSheet, fmt.Sprintf("I%d", row), inv.DueAmount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
