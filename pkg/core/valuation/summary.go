package valuation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"income_valuation/pkg/core/aggregate"
	"income_valuation/pkg/core/assumption"
	"income_valuation/pkg/core/logging"
	"income_valuation/pkg/core/projection"
)

// Request aggregates all inputs needed for the full suite of valuations.
type Request struct {
	Series        *projection.Series         `json:"series"`
	Assumptions   assumption.Assumptions     `json:"assumptions"`
	Property      projection.PropertySummary `json:"property"`
	Bases         []BasisInput               `json:"bases,omitempty"`
	CapRates      map[Basis]float64          `json:"cap_rates,omitempty"`
	SelectedBasis Basis                      `json:"selected_basis,omitempty"`
}

// Report is the complete output of one run. Each component that failed carries
// its error text next to it; the rest of the report is still populated.
type Report struct {
	RunID       uuid.UUID                  `json:"run_id"`
	CreatedAt   time.Time                  `json:"created_at"`
	Property    projection.PropertySummary `json:"property"`
	Assumptions assumption.Assumptions     `json:"assumptions"`

	Tiles      []ValueTile `json:"tiles,omitempty"`
	Headline   *ValueTile  `json:"headline,omitempty"`
	BasesError string      `json:"bases_error,omitempty"`

	DCF      *DCFResult `json:"dcf,omitempty"`
	DCFError string     `json:"dcf_error,omitempty"`

	Sensitivity      *SensitivityGrid `json:"sensitivity,omitempty"`
	SensitivityError string           `json:"sensitivity_error,omitempty"`

	CapRateSensitivity *CapRateSweep `json:"cap_rate_sensitivity,omitempty"`

	Annual           *aggregate.Grid `json:"annual,omitempty"`
	AggregationError string          `json:"aggregation_error,omitempty"`
}

// Options tunes a Runner.
type Options struct {
	Frequency Frequency  `yaml:"-" json:"-"`
	Axes      AxisConfig `yaml:"sensitivity" json:"sensitivity"`
	IRR       IRROptions `yaml:"irr" json:"irr"`
}

// Runner executes bases, DCF, sensitivity and the annual cash-flow grid for
// one request. It holds no state between runs.
type Runner struct {
	Options Options
	Logger  logging.Logger
}

// NewRunner creates a runner; a nil logger discards output.
func NewRunner(opts Options, log logging.Logger) *Runner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Runner{Options: opts, Logger: log}
}

// Run performs every valuation the request supports.
// Only an unusable request (no series, invalid assumptions) is an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	if req.Series == nil {
		return nil, fmt.Errorf("run: %w", projection.ErrEmptySeries)
	}
	a := req.Assumptions.WithDefaults()
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	log := r.logger()

	report := &Report{
		RunID:       uuid.New(),
		CreatedAt:   time.Now().UTC(),
		Property:    req.Property,
		Assumptions: a,
	}
	log = log.With(logging.String("run_id", report.RunID.String()), logging.String("property", req.Property.Name))

	// 1. Basis tiles
	if len(req.Bases) > 0 {
		r.runBases(report, req, log)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. DCF
	dcfInput := DCFInput{
		Series:          req.Series,
		DiscountRate:    a.DiscountRate,
		TerminalCapRate: a.TerminalCapRate,
		SellingCostsPct: a.SellingCostsPct,
		PurchasePrice:   a.PurchasePrice,
		Property:        req.Property,
		Frequency:       r.Options.Frequency,
		IRR:             r.Options.IRR,
	}
	dcf, err := RunDCF(dcfInput)
	if err != nil {
		report.DCFError = err.Error()
		log.Warn("dcf failed", logging.Err(err))
	} else {
		report.DCF = dcf
		for metric, reason := range dcf.Metrics.Unavailable {
			log.Debug("dcf metric unavailable", logging.String("metric", metric), logging.String("reason", reason))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Sensitivity around the same base case; step sizes are deal-level
	axes := r.Options.Axes
	axes.DiscountRateStep = a.DiscountRateStep
	axes.CapRateStep = a.CapRateStep
	grid, err := Sensitivity(dcfInput, axes)
	if err != nil {
		report.SensitivityError = err.Error()
		log.Warn("sensitivity failed", logging.Err(err))
	} else {
		report.Sensitivity = grid
		if n := grid.Failed(); n > 0 {
			log.Warn("sensitivity cells unavailable", logging.Int("cells", n))
		}
	}
	if report.Headline != nil && report.Headline.CapRate != nil {
		sweep, err := CapRateSensitivity(r.selectedInput(req), req.Property, *report.Headline.CapRate, axes.CapRateStep, axes.Steps, axes.Epsilon)
		if err != nil {
			log.Warn("cap rate sensitivity failed", logging.Err(err))
		} else {
			report.CapRateSensitivity = sweep
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. Annual cash-flow grid with the terminal reference year
	if err := r.buildAnnual(report, req.Series); err != nil {
		report.AggregationError = err.Error()
		log.Warn("annual aggregation failed", logging.Err(err))
	}

	log.Info("valuation run complete",
		logging.Int("tiles", len(report.Tiles)),
		logging.Bool("dcf", report.DCF != nil),
		logging.Bool("sensitivity", report.Sensitivity != nil),
	)
	return report, nil
}

func (r *Runner) runBases(report *Report, req Request, log logging.Logger) {
	tiles, err := ValuateBases(req.Bases, req.CapRates, req.Property)
	if err != nil {
		report.BasesError = err.Error()
		log.Warn("basis valuation failed", logging.Err(err))
		return
	}
	report.Tiles = tiles
	for i := range tiles {
		if !tiles[i].Available() {
			log.Warn("basis unavailable",
				logging.String("basis", string(tiles[i].Basis)),
				logging.String("reason", tiles[i].Unavailable["capitalized_value"]),
			)
		}
	}

	selected := req.SelectedBasis
	if selected == "" {
		selected = tiles[0].Basis
	}
	for i := range tiles {
		if tiles[i].Basis == selected {
			report.Headline = &tiles[i]
			return
		}
	}
	report.BasesError = fmt.Sprintf("selected basis %q not supplied", selected)
}

func (r *Runner) selectedInput(req Request) BasisInput {
	selected := req.SelectedBasis
	if selected == "" {
		return req.Bases[0]
	}
	for _, in := range req.Bases {
		if in.Basis == selected {
			return in
		}
	}
	return req.Bases[0]
}

// buildAnnual aggregates the discounted series when the DCF succeeded, so the
// pv rows are populated, and the raw series otherwise.
func (r *Runner) buildAnnual(report *Report, series *projection.Series) error {
	src := series
	if report.DCF != nil {
		src = report.DCF.Series
	}
	grid, err := aggregate.Aggregate(src, aggregate.Annual)
	if err != nil {
		return err
	}
	if src.Terminal == nil {
		report.Annual = grid
		return errors.New("series has no terminal projection; reference year omitted")
	}
	if err := aggregate.AppendTerminal(grid, src.Terminal, src.HoldYears()); err != nil {
		return err
	}
	report.Annual = grid
	return nil
}

func (r *Runner) logger() logging.Logger {
	if r.Logger == nil {
		return logging.NewNopLogger()
	}
	return r.Logger
}
