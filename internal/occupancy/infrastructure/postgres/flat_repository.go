package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	occupancy "rent-billing/internal/occupancy/domain"
)

const (
	defaultFlatsTable  = "flats"
	defaultHousesTable = "houses"
)

const flatColumns = `id, house_id, owner_id, name, status, tenant_id, rent,
	current_reading, previous_reading, rate_per_unit, updated_at`

// FlatRepository reads and updates flats and their houses.
type FlatRepository struct {
	db     *sql.DB
	flats  string
	houses string
}

// NewFlatRepository constructs a repository.
func NewFlatRepository(db *sql.DB) *FlatRepository {
	return &FlatRepository{db: db, flats: defaultFlatsTable, houses: defaultHousesTable}
}

// Get loads a flat. It returns nil when the flat does not exist.
func (r *FlatRepository) Get(ctx context.Context, id string) (*occupancy.Flat, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("flat repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, flatColumns, r.flats)
	flat, err := scanFlat(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return flat, err
}

// GetForUpdate loads and row-locks a flat inside tx.
func (r *FlatRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (*occupancy.Flat, error) {
	if tx == nil {
		return nil, errors.New("flat repo: nil tx")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, flatColumns, r.flats)
	flat, err := scanFlat(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return flat, err
}

// SaveOccupancyTx writes the flat's status and tenant inside tx.
func (r *FlatRepository) SaveOccupancyTx(ctx context.Context, tx *sql.Tx, flat *occupancy.Flat) error {
	if tx == nil {
		return errors.New("flat repo: nil tx")
	}
	if flat == nil {
		return errors.New("flat repo: nil flat")
	}
	query := fmt.Sprintf(`UPDATE %s SET status = $1, tenant_id = $2, updated_at = $3 WHERE id = $4`, r.flats)
	res, err := tx.ExecContext(ctx, query, string(flat.Status), nullString(flat.TenantID), flat.UpdatedAt.UTC(), flat.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return occupancy.ErrFlatNotFound
	}
	return nil
}

// ListOccupied returns the owner's occupied flats that have a tenant.
func (r *FlatRepository) ListOccupied(ctx context.Context, ownerID string) ([]occupancy.Flat, error) {
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE owner_id = $1 AND status = $2 AND tenant_id IS NOT NULL AND tenant_id <> ''
ORDER BY id ASC`, flatColumns, r.flats)
	return r.list(ctx, query, ownerID, string(occupancy.FlatOccupied))
}

// ListVacant returns every vacant flat.
func (r *FlatRepository) ListVacant(ctx context.Context) ([]occupancy.Flat, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE status = $1 ORDER BY id ASC`, flatColumns, r.flats)
	return r.list(ctx, query, string(occupancy.FlatVacant))
}

// OwnerHouse returns the owner's first house, or nil when the owner has none.
func (r *FlatRepository) OwnerHouse(ctx context.Context, ownerID string) (*occupancy.House, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("flat repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, owner_id, name, water_bill, gas_bill
FROM %s
WHERE owner_id = $1
ORDER BY created_at ASC, id ASC
LIMIT 1`, r.houses)
	var house occupancy.House
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&house.ID, &house.OwnerID, &house.Name, &house.WaterBill, &house.GasBill)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &house, nil
}

func (r *FlatRepository) list(ctx context.Context, query string, args ...any) ([]occupancy.Flat, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("flat repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []occupancy.Flat
	for rows.Next() {
		flat, err := scanFlat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *flat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlat(row rowScanner) (*occupancy.Flat, error) {
	var flat occupancy.Flat
	var status string
	var tenant sql.NullString
	var updatedAt time.Time
	err := row.Scan(
		&flat.ID,
		&flat.HouseID,
		&flat.OwnerID,
		&flat.Name,
		&status,
		&tenant,
		&flat.Rent,
		&flat.CurrentReading,
		&flat.PreviousReading,
		&flat.RatePerUnit,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	flat.Status = occupancy.FlatStatus(status)
	flat.TenantID = tenant.String
	flat.UpdatedAt = updatedAt.UTC()
	return &flat, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
