// Package assumption defines the underwriting assumption record that drives a
// projection and its valuation. An Assumptions value is immutable input: any
// change produces a new record and a full recomputation downstream.
package assumption

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Default sensitivity step sizes.
const (
	DefaultDiscountRateStep = 0.005  // 50 bps
	DefaultCapRateStep      = 0.0025 // 25 bps
	DefaultSensitivitySteps = 5
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid assumptions")

// Assumptions holds the deal-level drivers.
type Assumptions struct {
	StartDate       time.Time `json:"start_date" yaml:"start_date"`
	HoldPeriodYears float64   `json:"hold_period_years" yaml:"hold_period_years"`

	// Valuation
	DiscountRate    float64  `json:"discount_rate" yaml:"discount_rate"`
	TerminalCapRate float64  `json:"terminal_cap_rate" yaml:"terminal_cap_rate"`
	SellingCostsPct float64  `json:"selling_costs_pct" yaml:"selling_costs_pct"`
	PurchasePrice   *float64 `json:"purchase_price,omitempty" yaml:"purchase_price"`

	// Operations
	IncomeGrowth     float64 `json:"income_growth" yaml:"income_growth"`
	ExpenseGrowth    float64 `json:"expense_growth" yaml:"expense_growth"`
	VacancyRate      float64 `json:"vacancy_rate" yaml:"vacancy_rate"`
	CreditLossRate   float64 `json:"credit_loss_rate" yaml:"credit_loss_rate"`
	ManagementFeePct float64 `json:"management_fee_pct" yaml:"management_fee_pct"`
	ReservesPerUnit  float64 `json:"reserves_per_unit" yaml:"reserves_per_unit"` // per unit per year

	// Sensitivity
	DiscountRateStep float64 `json:"discount_rate_step" yaml:"discount_rate_step"`
	CapRateStep      float64 `json:"cap_rate_step" yaml:"cap_rate_step"`
}

// WithDefaults returns a copy with zero step sizes replaced by the defaults.
func (a Assumptions) WithDefaults() Assumptions {
	if a.DiscountRateStep == 0 {
		a.DiscountRateStep = DefaultDiscountRateStep
	}
	if a.CapRateStep == 0 {
		a.CapRateStep = DefaultCapRateStep
	}
	return a
}

// HoldMonths is the number of whole calendar months in the hold period.
// A 10.5 year hold is 126 months.
func (a Assumptions) HoldMonths() int {
	return int(math.Round(a.HoldPeriodYears * 12))
}

// Validate checks ranges. It does not reject a zero terminal cap rate: that
// surfaces as an unavailable exit value rather than a failed run.
func (a Assumptions) Validate() error {
	if a.HoldPeriodYears <= 0 {
		return fmt.Errorf("%w: hold_period_years must be positive, got %v", ErrInvalid, a.HoldPeriodYears)
	}
	if a.HoldMonths() < 1 {
		return fmt.Errorf("%w: hold period shorter than one month", ErrInvalid)
	}

	rates := []struct {
		name string
		v    float64
	}{
		{"discount_rate", a.DiscountRate},
		{"terminal_cap_rate", a.TerminalCapRate},
		{"selling_costs_pct", a.SellingCostsPct},
		{"vacancy_rate", a.VacancyRate},
		{"credit_loss_rate", a.CreditLossRate},
		{"management_fee_pct", a.ManagementFeePct},
	}
	for _, r := range rates {
		if math.IsNaN(r.v) || r.v < 0 || r.v >= 1 {
			return fmt.Errorf("%w: %s must be in [0, 1), got %v", ErrInvalid, r.name, r.v)
		}
	}
	if a.VacancyRate+a.CreditLossRate >= 1 {
		return fmt.Errorf("%w: vacancy plus credit loss leaves no collectible rent", ErrInvalid)
	}
	for _, g := range []struct {
		name string
		v    float64
	}{{"income_growth", a.IncomeGrowth}, {"expense_growth", a.ExpenseGrowth}} {
		if math.IsNaN(g.v) || g.v <= -1 {
			return fmt.Errorf("%w: %s must be greater than -100%%, got %v", ErrInvalid, g.name, g.v)
		}
	}
	if a.ReservesPerUnit < 0 {
		return fmt.Errorf("%w: reserves_per_unit cannot be negative", ErrInvalid)
	}
	if a.DiscountRateStep < 0 || a.CapRateStep < 0 {
		return fmt.Errorf("%w: sensitivity steps cannot be negative", ErrInvalid)
	}
	if a.PurchasePrice != nil && *a.PurchasePrice <= 0 {
		return fmt.Errorf("%w: purchase_price must be positive when set", ErrInvalid)
	}
	return nil
}

// ToJSON serializes the assumptions for storage alongside a run.
func (a Assumptions) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// FromJSON deserializes and validates an assumptions record.
func FromJSON(data []byte) (Assumptions, error) {
	var a Assumptions
	if err := json.Unmarshal(data, &a); err != nil {
		return Assumptions{}, err
	}
	a = a.WithDefaults()
	return a, a.Validate()
}
