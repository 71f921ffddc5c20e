package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	billing "rent-billing/internal/billing/domain"
)

// ConfigUpdate is a partial billing config. Nil fields keep their value.
type ConfigUpdate struct {
	AutoGenerateRents        *bool    `json:"auto_generate_rents"`
	GenerationDay            *int     `json:"generation_day"`
	DueDayOffset             *int     `json:"due_day_offset"`
	GracePeriodDays          *int     `json:"grace_period_days"`
	LateFeeEnabled           *bool    `json:"late_fee_enabled"`
	LateFeePercentagePerWeek *float64 `json:"late_fee_percentage_per_week"`
	MaxLateFeePercentage     *float64 `json:"max_late_fee_percentage"`
}

func (u ConfigUpdate) apply(cfg *billing.Config) {
	if u.AutoGenerateRents != nil {
		cfg.AutoGenerateRents = *u.AutoGenerateRents
	}
	if u.GenerationDay != nil {
		cfg.GenerationDay = *u.GenerationDay
	}
	if u.DueDayOffset != nil {
		cfg.DueDayOffset = *u.DueDayOffset
	}
	if u.GracePeriodDays != nil {
		cfg.GracePeriodDays = *u.GracePeriodDays
	}
	if u.LateFeeEnabled != nil {
		cfg.LateFeeEnabled = *u.LateFeeEnabled
	}
	if u.LateFeePercentagePerWeek != nil {
		cfg.LateFeePercentagePerWeek = *u.LateFeePercentagePerWeek
	}
	if u.MaxLateFeePercentage != nil {
		cfg.MaxLateFeePercentage = *u.MaxLateFeePercentage
	}
}

// ConfigService reads and updates owner billing settings.
type ConfigService struct {
	store billing.ConfigStore
	opts  options
}

// NewConfigService constructs the service.
func NewConfigService(store billing.ConfigStore, opts ...Option) (*ConfigService, error) {
	if store == nil {
		return nil, errors.New("config service: nil config store")
	}
	o := buildOptions(opts)
	o.logger = o.logger.With(zap.String("component", "config_service"))
	return &ConfigService{store: store, opts: o}, nil
}

// Get returns the owner's config, or the defaults when none is saved. The
// bool reports whether a config was stored.
func (s *ConfigService) Get(ctx context.Context, ownerID string) (billing.Config, bool, error) {
	if ownerID == "" {
		return billing.Config{}, false, billing.ErrEmptyOwnerID
	}
	cfg, err := s.store.GetConfig(ctx, ownerID)
	if err != nil {
		return billing.Config{}, false, err
	}
	if cfg == nil {
		return billing.DefaultConfig(ownerID), false, nil
	}
	return *cfg, true, nil
}

// Upsert merges the update onto the stored config or the defaults.
func (s *ConfigService) Upsert(ctx context.Context, ownerID string, update ConfigUpdate) (billing.Config, error) {
	cfg, _, err := s.Get(ctx, ownerID)
	if err != nil {
		return billing.Config{}, err
	}
	update.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return billing.Config{}, err
	}
	now := s.opts.clock.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return billing.Config{}, err
	}
	s.opts.logger.Info("billing config saved",
		zap.String("owner_id", ownerID),
		zap.Bool("auto_generate_rents", cfg.AutoGenerateRents),
		zap.Bool("late_fee_enabled", cfg.LateFeeEnabled),
	)
	return cfg, nil
}
