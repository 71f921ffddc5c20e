package billing

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config defaults applied when an owner saves settings without a value.
const (
	DefaultGenerationDay            = 1
	DefaultDueDayOffset             = 5
	DefaultGracePeriodDays          = 0
	DefaultLateFeePercentagePerWeek = 2.0
	DefaultMaxLateFeePercentage     = 10.0
)

// Config is an owner's billing automation settings.
type Config struct {
	OwnerID                  string    `json:"owner_id" validate:"required"`
	AutoGenerateRents        bool      `json:"auto_generate_rents"`
	GenerationDay            int       `json:"generation_day" validate:"min=1,max=28"`
	DueDayOffset             int       `json:"due_day_offset" validate:"min=1,max=28"`
	GracePeriodDays          int       `json:"grace_period_days" validate:"min=0"`
	LateFeeEnabled           bool      `json:"late_fee_enabled"`
	LateFeePercentagePerWeek float64   `json:"late_fee_percentage_per_week" validate:"gte=0,lte=100"`
	MaxLateFeePercentage     float64   `json:"max_late_fee_percentage" validate:"gte=0,lte=100"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// DefaultConfig returns the settings a new owner starts with.
func DefaultConfig(ownerID string) Config {
	return Config{
		OwnerID:                  ownerID,
		AutoGenerateRents:        true,
		GenerationDay:            DefaultGenerationDay,
		DueDayOffset:             DefaultDueDayOffset,
		GracePeriodDays:          DefaultGracePeriodDays,
		LateFeeEnabled:           true,
		LateFeePercentagePerWeek: DefaultLateFeePercentagePerWeek,
		MaxLateFeePercentage:     DefaultMaxLateFeePercentage,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field ranges. The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// ShouldGenerate reports whether automated generation is due on today.
// Any day on or after the generation day qualifies so a missed tick catches up.
func (c Config) ShouldGenerate(today time.Time) bool {
	return c.AutoGenerateRents && today.Day() >= c.GenerationDay
}

// DueDateFor returns the due date for invoices generated on today: day
// DueDayOffset of today's month, or of the next month when that day has passed.
func (c Config) DueDateFor(today time.Time) time.Time {
	due := time.Date(today.Year(), today.Month(), c.DueDayOffset, 0, 0, 0, 0, today.Location())
	if c.DueDayOffset < today.Day() {
		due = due.AddDate(0, 1, 0)
	}
	return due
}

// ConfigFilter selects owner configs.
type ConfigFilter struct {
	AutoGenerateEnabled *bool
	LateFeeEnabled      *bool
}

// Matches reports whether c satisfies the filter.
func (f ConfigFilter) Matches(c Config) bool {
	if f.AutoGenerateEnabled != nil && c.AutoGenerateRents != *f.AutoGenerateEnabled {
		return false
	}
	if f.LateFeeEnabled != nil && c.LateFeeEnabled != *f.LateFeeEnabled {
		return false
	}
	return true
}
