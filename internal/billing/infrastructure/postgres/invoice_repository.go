package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	billing "rent-billing/internal/billing/domain"
)

const (
	defaultInvoicesTable = "invoices"
	dateLayout           = "2006-01-02"

	uniqueViolation = "23505"
)

const invoiceColumns = `id, unit_id, tenant_id, owner_id, period,
	base_rent, electricity_charge, gas_charge, water_charge, service_charge, total_amount,
	late_fee, adjusted_total, paid_amount, due_amount,
	status, due_date, paid_date, payment_method, note,
	is_auto_generated, generated_at, created_at, updated_at, version`

// InvoiceRepository persists invoices in Postgres.
type InvoiceRepository struct {
	db    *sql.DB
	table string
	loc   *time.Location
}

// Option configures a repository.
type Option func(*InvoiceRepository)

// WithInvoicesTable overrides the table name.
func WithInvoicesTable(table string) Option {
	return func(r *InvoiceRepository) {
		if table != "" {
			r.table = table
		}
	}
}

// WithLocation sets the zone calendar dates are read back in.
func WithLocation(loc *time.Location) Option {
	return func(r *InvoiceRepository) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB, opts ...Option) *InvoiceRepository {
	repo := &InvoiceRepository{db: db, table: defaultInvoicesTable, loc: time.UTC}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// FindByID loads an invoice.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, invoiceColumns, r.table)
	inv, err := r.scanInvoice(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// FindByUnitAndPeriod loads the invoice for a unit and period.
func (r *InvoiceRepository) FindByUnitAndPeriod(ctx context.Context, unitID string, period billing.Period) (*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE unit_id = $1 AND period = $2`, invoiceColumns, r.table)
	inv, err := r.scanInvoice(r.db.QueryRowContext(ctx, query, unitID, period.Label()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// FindByStatus lists invoices in any of statuses that match filter.
func (r *InvoiceRepository) FindByStatus(ctx context.Context, statuses []billing.InvoiceStatus, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	filter.Statuses = statuses
	return r.List(ctx, filter)
}

// List returns invoices matching filter, newest period first.
func (r *InvoiceRepository) List(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	where, args := buildInvoiceWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY period DESC, unit_id ASC, id ASC`, invoiceColumns, r.table, where)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*billing.Invoice
	for rows.Next() {
		inv, err := r.scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Create inserts a new invoice with version 1.
func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if inv == nil {
		return billing.ErrNilInvoice
	}
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		r.table, invoiceColumns)
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.UnitID, inv.TenantID, inv.OwnerID, inv.Period.Label(),
		inv.BaseRent, inv.ElectricityCharge, inv.GasCharge, inv.WaterCharge, inv.ServiceCharge, inv.TotalAmount,
		inv.LateFee, inv.AdjustedTotal, inv.PaidAmount, inv.DueAmount,
		string(inv.Status), inv.DueDate.Format(dateLayout), nullTime(inv.PaidDate), inv.PaymentMethod, inv.Note,
		inv.IsAutoGenerated, nullTimeValue(inv.GeneratedAt), inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(), int64(1),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return billing.ErrDuplicateInvoice
		}
		return err
	}
	inv.Version = 1
	return nil
}

// Update writes inv when the stored version still matches and bumps it.
func (r *InvoiceRepository) Update(ctx context.Context, inv *billing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if inv == nil {
		return billing.ErrNilInvoice
	}
	query := fmt.Sprintf(`
UPDATE %s SET
	unit_id = $1, tenant_id = $2, owner_id = $3, period = $4,
	base_rent = $5, electricity_charge = $6, gas_charge = $7, water_charge = $8, service_charge = $9, total_amount = $10,
	late_fee = $11, adjusted_total = $12, paid_amount = $13, due_amount = $14,
	status = $15, due_date = $16, paid_date = $17, payment_method = $18, note = $19,
	updated_at = $20, version = version + 1
WHERE id = $21 AND version = $22`, r.table)
	res, err := r.db.ExecContext(ctx, query,
		inv.UnitID, inv.TenantID, inv.OwnerID, inv.Period.Label(),
		inv.BaseRent, inv.ElectricityCharge, inv.GasCharge, inv.WaterCharge, inv.ServiceCharge, inv.TotalAmount,
		inv.LateFee, inv.AdjustedTotal, inv.PaidAmount, inv.DueAmount,
		string(inv.Status), inv.DueDate.Format(dateLayout), nullTime(inv.PaidDate), inv.PaymentMethod, inv.Note,
		inv.UpdatedAt.UTC(), inv.ID, inv.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return billing.ErrDuplicateInvoice
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		check := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.table)
		if err := r.db.QueryRowContext(ctx, check, inv.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return billing.ErrInvoiceNotFound
		}
		return billing.ErrConcurrentUpdate
	}
	inv.Version++
	return nil
}

// DeleteMany removes every invoice matching filter. Paging fields are ignored.
func (r *InvoiceRepository) DeleteMany(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("invoice repo: nil db")
	}
	where, args := buildInvoiceWhere(filter)
	if where == "" {
		return 0, errors.New("invoice repo: refusing unfiltered delete")
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s%s`, r.table, where), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func buildInvoiceWhere(filter billing.InvoiceFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, values ...any) {
		conds = append(conds, cond)
		args = append(args, values...)
	}
	placeholders := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = fmt.Sprintf("$%d", len(args)+i+1)
		}
		return strings.Join(parts, ",")
	}

	if len(filter.IDs) > 0 {
		values := make([]any, len(filter.IDs))
		for i, id := range filter.IDs {
			values[i] = id
		}
		add("id IN ("+placeholders(len(values))+")", values...)
	}
	if filter.OwnerID != "" {
		add(fmt.Sprintf("owner_id = $%d", len(args)+1), filter.OwnerID)
	}
	if filter.UnitID != "" {
		add(fmt.Sprintf("unit_id = $%d", len(args)+1), filter.UnitID)
	}
	if filter.TenantID != "" {
		add(fmt.Sprintf("tenant_id = $%d", len(args)+1), filter.TenantID)
	}
	if len(filter.Statuses) > 0 {
		values := make([]any, len(filter.Statuses))
		for i, status := range filter.Statuses {
			values[i] = string(status)
		}
		add("status IN ("+placeholders(len(values))+")", values...)
	}
	if filter.Period != nil {
		add(fmt.Sprintf("period = $%d", len(args)+1), filter.Period.Label())
	}
	if !filter.DueBefore.IsZero() {
		add(fmt.Sprintf("due_date < $%d", len(args)+1), filter.DueBefore.Format(dateLayout))
	}
	if filter.OutstandingOnly {
		conds = append(conds, "due_amount > 0")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *InvoiceRepository) scanInvoice(row rowScanner) (*billing.Invoice, error) {
	var inv billing.Invoice
	var period, status string
	var dueDate time.Time
	var paidDate, generatedAt sql.NullTime
	var method, note sql.NullString
	err := row.Scan(
		&inv.ID, &inv.UnitID, &inv.TenantID, &inv.OwnerID, &period,
		&inv.BaseRent, &inv.ElectricityCharge, &inv.GasCharge, &inv.WaterCharge, &inv.ServiceCharge, &inv.TotalAmount,
		&inv.LateFee, &inv.AdjustedTotal, &inv.PaidAmount, &inv.DueAmount,
		&status, &dueDate, &paidDate, &method, &note,
		&inv.IsAutoGenerated, &generatedAt, &inv.CreatedAt, &inv.UpdatedAt, &inv.Version,
	)
	if err != nil {
		return nil, err
	}
	inv.Period, err = billing.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("invoice repo: invoice %s: %w", inv.ID, err)
	}
	inv.Status = billing.InvoiceStatus(status)
	inv.DueDate = time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, r.loc)
	if paidDate.Valid {
		t := paidDate.Time.UTC()
		inv.PaidDate = &t
	}
	if generatedAt.Valid {
		inv.GeneratedAt = generatedAt.Time.UTC()
	}
	inv.PaymentMethod = method.String
	inv.Note = note.String
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullTimeValue(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
