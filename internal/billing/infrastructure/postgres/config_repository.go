package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	billing "rent-billing/internal/billing/domain"
)

const defaultConfigsTable = "billing_configs"

const configColumns = `owner_id, auto_generate_rents, generation_day, due_day_offset, grace_period_days,
	late_fee_enabled, late_fee_percentage_per_week, max_late_fee_percentage, created_at, updated_at`

// ConfigRepository persists owner billing configs.
type ConfigRepository struct {
	db    *sql.DB
	table string
}

// NewConfigRepository constructs a repository.
func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db, table: defaultConfigsTable}
}

// GetConfig loads an owner's config.
func (r *ConfigRepository) GetConfig(ctx context.Context, ownerID string) (*billing.Config, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("config repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1`, configColumns, r.table)
	cfg, err := scanConfig(r.db.QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConfigs returns configs matching filter ordered by owner.
func (r *ConfigRepository) ListConfigs(ctx context.Context, filter billing.ConfigFilter) ([]billing.Config, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("config repo: nil db")
	}
	var conds []string
	var args []any
	if filter.AutoGenerateEnabled != nil {
		args = append(args, *filter.AutoGenerateEnabled)
		conds = append(conds, fmt.Sprintf("auto_generate_rents = $%d", len(args)))
	}
	if filter.LateFeeEnabled != nil {
		args = append(args, *filter.LateFeeEnabled)
		conds = append(conds, fmt.Sprintf("late_fee_enabled = $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, configColumns, r.table)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY owner_id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SaveConfig upserts an owner's config. created_at is kept on update.
func (r *ConfigRepository) SaveConfig(ctx context.Context, cfg billing.Config) error {
	if r == nil || r.db == nil {
		return errors.New("config repo: nil db")
	}
	if cfg.OwnerID == "" {
		return billing.ErrEmptyOwnerID
	}
	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
ON CONFLICT (owner_id) DO UPDATE SET
	auto_generate_rents = EXCLUDED.auto_generate_rents,
	generation_day = EXCLUDED.generation_day,
	due_day_offset = EXCLUDED.due_day_offset,
	grace_period_days = EXCLUDED.grace_period_days,
	late_fee_enabled = EXCLUDED.late_fee_enabled,
	late_fee_percentage_per_week = EXCLUDED.late_fee_percentage_per_week,
	max_late_fee_percentage = EXCLUDED.max_late_fee_percentage,
	updated_at = EXCLUDED.updated_at`, r.table, configColumns)
	_, err := r.db.ExecContext(ctx, query,
		cfg.OwnerID, cfg.AutoGenerateRents, cfg.GenerationDay, cfg.DueDayOffset, cfg.GracePeriodDays,
		cfg.LateFeeEnabled, cfg.LateFeePercentagePerWeek, cfg.MaxLateFeePercentage, now)
	return err
}

func scanConfig(row rowScanner) (billing.Config, error) {
	var cfg billing.Config
	err := row.Scan(
		&cfg.OwnerID,
		&cfg.AutoGenerateRents,
		&cfg.GenerationDay,
		&cfg.DueDayOffset,
		&cfg.GracePeriodDays,
		&cfg.LateFeeEnabled,
		&cfg.LateFeePercentagePerWeek,
		&cfg.MaxLateFeePercentage,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return billing.Config{}, err
	}
	cfg.CreatedAt = cfg.CreatedAt.UTC()
	cfg.UpdatedAt = cfg.UpdatedAt.UTC()
	return cfg, nil
}
