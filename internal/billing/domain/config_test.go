package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig("owner-1").Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing owner", func(c *Config) { c.OwnerID = "" }},
		{"generation day zero", func(c *Config) { c.GenerationDay = 0 }},
		{"generation day 29", func(c *Config) { c.GenerationDay = 29 }},
		{"due day 31", func(c *Config) { c.DueDayOffset = 31 }},
		{"negative grace", func(c *Config) { c.GracePeriodDays = -1 }},
		{"weekly pct above 100", func(c *Config) { c.LateFeePercentagePerWeek = 101 }},
		{"max pct negative", func(c *Config) { c.MaxLateFeePercentage = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig("owner-1")
			tc.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestConfigDueDateFor(t *testing.T) {
	cfg := DefaultConfig("owner-1")

	due := cfg.DueDateFor(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC), due)

	cfg.DueDayOffset = 3
	due = cfg.DueDateFor(time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC), due)
}

func TestConfigShouldGenerate(t *testing.T) {
	cfg := DefaultConfig("owner-1")
	cfg.GenerationDay = 10

	assert.False(t, cfg.ShouldGenerate(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cfg.ShouldGenerate(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cfg.ShouldGenerate(time.Date(2025, 1, 28, 0, 0, 0, 0, time.UTC)))

	cfg.AutoGenerateRents = false
	assert.False(t, cfg.ShouldGenerate(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-01")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2025, Month: time.January}, p)
	assert.Equal(t, "2025-01", p.Label())
	assert.Equal(t, "January 2025", p.DisplayName())
	assert.Equal(t, Period{Year: 2026, Month: time.January}, Period{Year: 2025, Month: time.December}.Next())

	_, err = ParsePeriod("2025/01")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = ParsePeriod("")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestInvoiceFilterMatches(t *testing.T) {
	inv := &Invoice{
		ID:        "inv-1",
		OwnerID:   "owner-1",
		UnitID:    "unit-1",
		Status:    StatusPartial,
		Period:    Period{Year: 2025, Month: time.January},
		DueDate:   time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		DueAmount: 10,
	}
	jan := Period{Year: 2025, Month: time.January}
	feb := Period{Year: 2025, Month: time.February}

	assert.True(t, InvoiceFilter{}.Matches(inv))
	assert.True(t, InvoiceFilter{OwnerID: "owner-1", Period: &jan, OutstandingOnly: true}.Matches(inv))
	assert.False(t, InvoiceFilter{Period: &feb}.Matches(inv))
	assert.False(t, InvoiceFilter{Statuses: []InvoiceStatus{StatusPaid}}.Matches(inv))
	assert.False(t, InvoiceFilter{DueBefore: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)}.Matches(inv))
	assert.True(t, InvoiceFilter{DueBefore: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)}.Matches(inv))
	assert.False(t, InvoiceFilter{IDs: []string{"inv-2"}}.Matches(inv))
}
