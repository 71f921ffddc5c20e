package billing

import "github.com/shopspring/decimal"

// DefaultElectricityRate applies when a unit has no per-unit rate configured.
var DefaultElectricityRate = decimal.NewFromInt(8)

// Charges is the set of line items that make up an invoice total.
type Charges struct {
	BaseRent    int64 `json:"base_rent"`
	Electricity int64 `json:"electricity_charge"`
	Gas         int64 `json:"gas_charge"`
	Water       int64 `json:"water_charge"`
	Service     int64 `json:"service_charge"`
}

// Total sums every line item.
func (c Charges) Total() int64 {
	return c.BaseRent + c.Electricity + c.Gas + c.Water + c.Service
}

// Validate rejects negative line items.
func (c Charges) Validate() error {
	if c.BaseRent < 0 || c.Electricity < 0 || c.Gas < 0 || c.Water < 0 || c.Service < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// ElectricityCharge returns round(max(0, current-previous) * rate).
// A zero or negative rate falls back to fallback, then to DefaultElectricityRate.
func ElectricityCharge(current, previous, rate, fallback decimal.Decimal) int64 {
	consumed := current.Sub(previous)
	if consumed.IsNegative() {
		consumed = decimal.Zero
	}
	if !rate.IsPositive() {
		rate = fallback
	}
	if !rate.IsPositive() {
		rate = DefaultElectricityRate
	}
	return RoundAmount(consumed.Mul(rate))
}

// RoundAmount rounds to the nearest whole currency unit, halves away from zero.
func RoundAmount(value decimal.Decimal) int64 {
	return value.Round(0).IntPart()
}
