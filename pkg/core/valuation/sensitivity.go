package valuation

import (
	"errors"
	"fmt"
	"math"

	"income_valuation/pkg/core/projection"
)

// DefaultBaseEpsilon is the tolerance used to recognise the base-case axis value.
const DefaultBaseEpsilon = 1e-9

// AxisConfig controls the sweep around a base case.
type AxisConfig struct {
	DiscountRateStep float64 `yaml:"discount_rate_step" json:"discount_rate_step"`
	CapRateStep      float64 `yaml:"cap_rate_step" json:"cap_rate_step"`
	Steps            int     `yaml:"steps" json:"steps"` // values per axis, odd
	Epsilon          float64 `yaml:"epsilon" json:"epsilon"`
}

func (c AxisConfig) withDefaults() AxisConfig {
	if c.Steps == 0 {
		c.Steps = 5
	}
	if c.Epsilon <= 0 {
		c.Epsilon = DefaultBaseEpsilon
	}
	return c
}

func (c AxisConfig) validate() error {
	if c.Steps < 1 || c.Steps%2 == 0 {
		return fmt.Errorf("axis steps must be a positive odd number, got %d", c.Steps)
	}
	if c.Steps > 1 && (c.DiscountRateStep <= 0 || c.CapRateStep <= 0) {
		return errors.New("axis step sizes must be positive")
	}
	if math.IsNaN(c.DiscountRateStep) || math.IsNaN(c.CapRateStep) {
		return errors.New("axis step sizes must be finite")
	}
	return nil
}

// axisValues returns steps values centred on base. Each value is computed from
// its offset alone so the grid never accumulates rounding drift.
func axisValues(base, step float64, steps int) []float64 {
	half := steps / 2
	out := make([]float64, steps)
	for i := range out {
		out[i] = base + float64(i-half)*step
	}
	return out
}

// SensitivityCell is one (discount rate, exit cap rate) combination.
type SensitivityCell struct {
	DiscountRate   float64   `json:"discount_rate"`
	CapRate        float64   `json:"cap_rate"`
	PresentValue   *float64  `json:"present_value"`
	IRR            *float64  `json:"irr"`
	IRRStatus      IRRStatus `json:"irr_status,omitempty"`
	EquityMultiple *float64  `json:"equity_multiple"`
	PricePerUnit   *float64  `json:"price_per_unit"`
	IsBase         bool      `json:"is_base"`
	Err            string    `json:"error,omitempty"`
}

// SensitivityRow holds every cap rate for one discount rate.
type SensitivityRow struct {
	DiscountRate float64           `json:"discount_rate"`
	IsBase       bool              `json:"is_base"`
	Cells        []SensitivityCell `json:"cells"`
}

// SensitivityGrid is the discount rate x exit cap rate matrix.
type SensitivityGrid struct {
	BaseDiscountRate float64          `json:"base_discount_rate"`
	BaseCapRate      float64          `json:"base_cap_rate"`
	DiscountRates    []float64        `json:"discount_rates"`
	CapRates         []float64        `json:"cap_rates"`
	Rows             []SensitivityRow `json:"rows"`
}

// Cell returns the cell at row i, column j.
func (g *SensitivityGrid) Cell(i, j int) *SensitivityCell {
	return &g.Rows[i].Cells[j]
}

// Base returns the single base-case cell.
func (g *SensitivityGrid) Base() *SensitivityCell {
	for i := range g.Rows {
		for j := range g.Rows[i].Cells {
			if g.Rows[i].Cells[j].IsBase {
				return &g.Rows[i].Cells[j]
			}
		}
	}
	return nil
}

// Failed counts cells that could not be valued.
func (g *SensitivityGrid) Failed() int {
	n := 0
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			if c.Err != "" {
				n++
			}
		}
	}
	return n
}

// Sensitivity re-runs the DCF for every combination of discount rate and exit
// cap rate around the base input. Output depends only on the arguments. A cell
// whose substituted discount rate is negative, or whose cap rate is not
// positive, carries ErrNonPositiveRate in Err and the remaining cells still resolve.
func Sensitivity(base DCFInput, axes AxisConfig) (*SensitivityGrid, error) {
	axes = axes.withDefaults()
	if err := axes.validate(); err != nil {
		return nil, fmt.Errorf("sensitivity: %w", err)
	}
	if base.Series == nil {
		return nil, fmt.Errorf("sensitivity: %w", projection.ErrEmptySeries)
	}
	if err := base.Series.Validate(); err != nil {
		return nil, fmt.Errorf("sensitivity: %w", err)
	}

	grid := &SensitivityGrid{
		BaseDiscountRate: base.DiscountRate,
		BaseCapRate:      base.TerminalCapRate,
		DiscountRates:    axisValues(base.DiscountRate, axes.DiscountRateStep, axes.Steps),
		CapRates:         axisValues(base.TerminalCapRate, axes.CapRateStep, axes.Steps),
	}
	half := axes.Steps / 2

	for i, dr := range grid.DiscountRates {
		row := SensitivityRow{
			DiscountRate: dr,
			IsBase:       i == half && math.Abs(dr-base.DiscountRate) <= axes.Epsilon,
			Cells:        make([]SensitivityCell, 0, len(grid.CapRates)),
		}
		for j, cr := range grid.CapRates {
			cell := SensitivityCell{
				DiscountRate: dr,
				CapRate:      cr,
				IsBase:       row.IsBase && j == half && math.Abs(cr-base.TerminalCapRate) <= axes.Epsilon,
			}
			in := base
			in.DiscountRate = dr
			in.TerminalCapRate = cr
			fillCell(&cell, in)
			row.Cells = append(row.Cells, cell)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

func fillCell(cell *SensitivityCell, in DCFInput) {
	// A zero discount rate is valid, as in RunDCF; a zero exit cap rate is not.
	if math.IsNaN(in.DiscountRate) || in.DiscountRate < 0 {
		cell.Err = fmt.Errorf("%w: discount rate %v", ErrNonPositiveRate, in.DiscountRate).Error()
		return
	}
	if !(in.TerminalCapRate > 0) {
		cell.Err = fmt.Errorf("%w: cap rate %v", ErrNonPositiveRate, in.TerminalCapRate).Error()
		return
	}
	res, err := RunDCF(in)
	if err != nil {
		cell.Err = err.Error()
		return
	}
	cell.PresentValue = res.Metrics.PresentValue
	cell.IRR = res.Metrics.IRR
	cell.IRRStatus = res.Metrics.IRRStatus
	cell.EquityMultiple = res.Metrics.EquityMultiple
	cell.PricePerUnit = res.Metrics.PricePerUnit
}

// CapRatePoint is one value of a single-axis cap rate sweep.
type CapRatePoint struct {
	CapRate          float64  `json:"cap_rate"`
	CapitalizedValue *float64 `json:"capitalized_value"`
	PricePerUnit     *float64 `json:"price_per_unit"`
	PricePerArea     *float64 `json:"price_per_area"`
	IsBase           bool     `json:"is_base"`
	Err              string   `json:"error,omitempty"`
}

// CapRateSweep is the single-axis sensitivity of one basis.
type CapRateSweep struct {
	Basis       Basis          `json:"basis"`
	NOI         float64        `json:"noi"`
	BaseCapRate float64        `json:"base_cap_rate"`
	Points      []CapRatePoint `json:"points"`
}

// CapRateSensitivity capitalizes one basis' Year-1 NOI across cap rates
// centred on baseCapRate, through the same path as ValuateBases.
func CapRateSensitivity(input BasisInput, property projection.PropertySummary, baseCapRate, step float64, steps int, epsilon float64) (*CapRateSweep, error) {
	cfg := AxisConfig{DiscountRateStep: step, CapRateStep: step, Steps: steps, Epsilon: epsilon}.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("cap rate sensitivity: %w", err)
	}

	sweep := &CapRateSweep{
		Basis:       input.Basis,
		NOI:         input.Year1.NOI(),
		BaseCapRate: baseCapRate,
	}
	half := cfg.Steps / 2
	for i, rate := range axisValues(baseCapRate, step, cfg.Steps) {
		pt := CapRatePoint{
			CapRate: rate,
			IsBase:  i == half && math.Abs(rate-baseCapRate) <= cfg.Epsilon,
		}
		if !(rate > 0) {
			pt.Err = fmt.Errorf("%w: cap rate %v", ErrNonPositiveRate, rate).Error()
			sweep.Points = append(sweep.Points, pt)
			continue
		}
		tile := valuateBasis(input, &rate, property)
		pt.CapitalizedValue = tile.CapitalizedValue
		pt.PricePerUnit = tile.PricePerUnit
		pt.PricePerArea = tile.PricePerArea
		sweep.Points = append(sweep.Points, pt)
	}
	return sweep, nil
}
