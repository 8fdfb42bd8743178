package valuation

import (
	"errors"
	"fmt"
	"math"

	"income_valuation/pkg/core/projection"
)

// Frequency is the discounting period of a DCF run.
type Frequency int

const (
	// MonthlyDiscounting discounts each month at DiscountRate/12.
	MonthlyDiscounting Frequency = iota
	// AnnualDiscounting discounts each fiscal year's cash flow at DiscountRate,
	// end of year.
	AnnualDiscounting
)

func (f Frequency) periodsPerYear() int {
	if f == AnnualDiscounting {
		return 1
	}
	return 12
}

func (f Frequency) String() string {
	if f == AnnualDiscounting {
		return "annual"
	}
	return "monthly"
}

// DCFInput encapsulates all inputs required for a discounted cash flow valuation.
type DCFInput struct {
	Series          *projection.Series
	// DiscountRate is an annual nominal rate. Monthly discounting compounds at
	// DiscountRate/12, so pv_factor(k) = 1/(1+DiscountRate/12)^k; annual
	// discounting uses 1/(1+DiscountRate)^fiscal_year.
	DiscountRate    float64
	TerminalCapRate float64
	SellingCostsPct float64
	PurchasePrice   *float64 // initial basis for IRR and equity multiple
	Property        projection.PropertySummary
	Frequency       Frequency
	IRR             IRROptions
}

// ExitAnalysis is the terminal reversion build-up.
type ExitAnalysis struct {
	TerminalNOI     float64  `json:"terminal_noi"`
	TerminalCapRate float64  `json:"terminal_cap_rate"`
	ExitValue       *float64 `json:"exit_value"`
	SellingCosts    *float64 `json:"selling_costs"`
	NetReversion    *float64 `json:"net_reversion"`
	PVReversion     *float64 `json:"pv_reversion"`
}

// Metrics are the headline DCF outputs. Nil values are unavailable; the
// reason is recorded in Unavailable.
type Metrics struct {
	PresentValue   *float64          `json:"present_value"`
	PVOperating    float64           `json:"pv_operating"`
	IRR            *float64          `json:"irr"`
	IRRStatus      IRRStatus         `json:"irr_status"`
	EquityMultiple *float64          `json:"equity_multiple"`
	PricePerUnit   *float64          `json:"price_per_unit"`
	PricePerArea   *float64          `json:"price_per_area"`
	Unavailable    map[string]string `json:"unavailable,omitempty"`
}

func (m *Metrics) markUnavailable(metric, reason string) {
	if m.Unavailable == nil {
		m.Unavailable = make(map[string]string)
	}
	m.Unavailable[metric] = reason
}

// DCFResult holds the valuation outputs and the discounted copy of the series.
type DCFResult struct {
	DiscountRate float64            `json:"discount_rate"`
	Frequency    string             `json:"frequency"`
	Metrics      Metrics            `json:"metrics"`
	Exit         ExitAnalysis       `json:"exit"`
	Series       *projection.Series `json:"series"`
}

// RunDCF discounts the hold-period cash flows plus the net reversion embedded
// in the final month. The input series is never mutated.
func RunDCF(input DCFInput) (*DCFResult, error) {
	if input.Series == nil {
		return nil, fmt.Errorf("run dcf: %w", projection.ErrEmptySeries)
	}
	if err := input.Series.Validate(); err != nil {
		return nil, fmt.Errorf("run dcf: %w", err)
	}
	if input.Series.Terminal == nil {
		return nil, errors.New("run dcf: series has no terminal projection")
	}
	r := input.DiscountRate
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return nil, fmt.Errorf("run dcf: %w: discount rate %v", ErrNonPositiveRate, r)
	}
	if input.SellingCostsPct < 0 || input.SellingCostsPct >= 1 {
		return nil, fmt.Errorf("run dcf: selling costs %v outside [0, 1)", input.SellingCostsPct)
	}

	series := input.Series.Clone()
	res := &DCFResult{
		DiscountRate: r,
		Frequency:    input.Frequency.String(),
		Series:       series,
	}

	// 1. Exit: forward (terminal-year) NOI capitalized at the exit cap rate.
	exit, reversionErr := buildExit(series.Terminal.NOI(), input.TerminalCapRate, input.SellingCostsPct)
	res.Exit = exit
	last := series.Last()
	last.NetReversion = 0
	if exit.NetReversion != nil {
		last.NetReversion = *exit.NetReversion
	}

	// 2. Discount every month; the reversion rides inside the final month.
	ppy := input.Frequency.periodsPerYear()
	periodic := r / float64(ppy)
	var pvTotal, pvOperating float64
	for i := range series.Months {
		m := &series.Months[i]
		k := i + 1
		if input.Frequency == AnnualDiscounting {
			k = m.FiscalYear
		}
		m.PVFactor = 1 / math.Pow(1+periodic, float64(k))
		m.PVCashFlow = m.TotalCashFlow() * m.PVFactor
		pvTotal += m.PVCashFlow
		pvOperating += m.NOI() * m.PVFactor
	}
	res.Metrics.PVOperating = pvOperating

	if reversionErr != nil {
		// Without a reversion the hold-period PV would silently undercount.
		res.Metrics.markUnavailable("present_value", reversionErr.Error())
		res.Metrics.markUnavailable("irr", "net reversion unavailable")
		res.Metrics.markUnavailable("equity_multiple", "net reversion unavailable")
		res.Metrics.markUnavailable("price_per_unit", "present value unavailable")
		res.Metrics.markUnavailable("price_per_area", "present value unavailable")
		res.Metrics.IRRStatus = IRRUnavailable
		return res, nil
	}
	pvRev := last.NetReversion * last.PVFactor
	res.Exit.PVReversion = &pvRev
	res.Metrics.PresentValue = &pvTotal

	// 3. Per-unit / per-area
	if v, ok := perUnit(pvTotal, input.Property); ok {
		res.Metrics.PricePerUnit = &v
	} else {
		res.Metrics.markUnavailable("price_per_unit", "unit count is zero")
	}
	if v, ok := perArea(pvTotal, input.Property); ok {
		res.Metrics.PricePerArea = &v
	} else {
		res.Metrics.markUnavailable("price_per_area", "total area is zero")
	}

	// 4. IRR and equity multiple on undiscounted flows, net of the initial basis.
	flows := cashFlows(series, input.Frequency)
	if input.PurchasePrice != nil {
		flows[0] = -*input.PurchasePrice
	}
	irr, status := SolveIRR(flows, input.IRR)
	res.Metrics.IRRStatus = status
	if status == IRRSolved {
		annual := irr * float64(ppy)
		res.Metrics.IRR = &annual
	} else {
		res.Metrics.markUnavailable("irr", string(status))
	}

	if input.PurchasePrice != nil && *input.PurchasePrice > 0 {
		var inflows float64
		for _, cf := range flows[1:] {
			inflows += cf
		}
		em := inflows / *input.PurchasePrice
		res.Metrics.EquityMultiple = &em
	} else {
		res.Metrics.markUnavailable("equity_multiple", "no purchase price")
	}

	return res, nil
}

// buildExit computes exit value, selling costs and net reversion. A degenerate
// cap rate leaves them nil and returns the reason.
func buildExit(terminalNOI, capRate, sellingPct float64) (ExitAnalysis, error) {
	exit := ExitAnalysis{TerminalNOI: terminalNOI, TerminalCapRate: capRate}
	rate := capRate
	value, err := capitalize(terminalNOI, &rate)
	if err != nil {
		return exit, fmt.Errorf("exit value: %w", err)
	}
	selling := value * sellingPct
	net := value - selling
	exit.ExitValue = &value
	exit.SellingCosts = &selling
	exit.NetReversion = &net
	return exit, nil
}

// cashFlows returns [t0, t1..tn] undiscounted total cash flows on the
// discounting grid; t0 is left at zero for the caller.
func cashFlows(series *projection.Series, freq Frequency) []float64 {
	if freq == AnnualDiscounting {
		years := series.Last().FiscalYear
		flows := make([]float64, years+1)
		for _, m := range series.Months {
			flows[m.FiscalYear] += m.TotalCashFlow()
		}
		return flows
	}
	flows := make([]float64, len(series.Months)+1)
	for i, m := range series.Months {
		flows[i+1] = m.TotalCashFlow()
	}
	return flows
}
