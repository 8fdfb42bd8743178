package aggregate

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"income_valuation/pkg/core/projection"
)

// =============================================================================
// LINE CATALOGUE
// =============================================================================

// view is one bucket's aggregated figures. Derived lines are recomputed from
// the aggregated components, never summed from the source months.
type view struct {
	st        projection.Statement
	reversion float64
	pvFactor  float64
	pvCash    float64
	hasCash   bool // false for the terminal reference year
}

type line struct {
	key      string
	label    string
	section  string
	rule     Rule
	cash     bool // cash-flow/reversion/PV lines: no value for the terminal year
	optional func(st projection.Statement) *float64
	value    func(v view) float64
}

type sectionDef struct{ key, label string }

var sectionDefs = []sectionDef{
	{"revenue", "Revenue"},
	{"expenses", "Operating Expenses"},
	{"noi", "Net Operating Income"},
	{"reversion", "Reversion"},
	{"cash_flow", "Total Cash Flow"},
	{"present_value", "Present Value Analysis"},
}

var lines = []line{
	{key: "gross_potential_rent", label: "Gross Potential Rent", section: "revenue",
		value: func(v view) float64 { return v.st.GrossPotentialRent }},
	{key: "renovation_rent_premium", label: "Renovation Rent Premium", section: "revenue",
		optional: func(st projection.Statement) *float64 { return st.RenovationRentPremium }},
	{key: "vacancy_loss", label: "Vacancy Loss", section: "revenue",
		value: func(v view) float64 { return v.st.VacancyLoss }},
	{key: "renovation_vacancy_loss", label: "Renovation Vacancy Loss", section: "revenue",
		optional: func(st projection.Statement) *float64 { return st.RenovationVacancyLoss }},
	{key: "credit_loss", label: "Credit Loss", section: "revenue",
		value: func(v view) float64 { return v.st.CreditLoss }},
	{key: "other_income", label: "Other Income", section: "revenue",
		value: func(v view) float64 { return v.st.OtherIncome }},
	{key: "effective_gross_income", label: "Effective Gross Income", section: "revenue",
		value: func(v view) float64 { return v.st.EffectiveGrossIncome() }},

	{key: "base_operating_expenses", label: "Operating Expenses", section: "expenses",
		value: func(v view) float64 { return v.st.BaseOperatingExpenses }},
	{key: "management_fee", label: "Management Fee", section: "expenses",
		value: func(v view) float64 { return v.st.ManagementFee }},
	{key: "replacement_reserves", label: "Replacement Reserves", section: "expenses",
		value: func(v view) float64 { return v.st.ReplacementReserves }},
	{key: "renovation_capex", label: "Renovation Capex", section: "expenses",
		optional: func(st projection.Statement) *float64 { return st.RenovationCapex }},
	{key: "relocation_cost", label: "Relocation Cost", section: "expenses",
		optional: func(st projection.Statement) *float64 { return st.RelocationCost }},
	{key: "total_operating_expenses", label: "Total Operating Expenses", section: "expenses",
		value: func(v view) float64 { return v.st.TotalOperatingExpenses() }},

	{key: "noi", label: "Net Operating Income", section: "noi",
		value: func(v view) float64 { return v.st.NOI() }},

	{key: "net_reversion", label: "Net Reversion", section: "reversion", cash: true,
		value: func(v view) float64 { return v.reversion }},

	{key: "total_cash_flow", label: "Total Cash Flow", section: "cash_flow", cash: true,
		value: func(v view) float64 { return v.st.NOI() + v.reversion }},

	{key: "pv_factor", label: "PV Factor", section: "present_value", cash: true, rule: Average,
		value: func(v view) float64 { return v.pvFactor }},
	{key: "pv_cash_flow", label: "PV of Cash Flow", section: "present_value", cash: true,
		value: func(v view) float64 { return v.pvCash }},
}

// valueOf resolves a line against a view; nil means "no value".
func (ln line) valueOf(v view) *float64 {
	if ln.cash && !v.hasCash {
		return nil
	}
	if ln.optional != nil {
		return ln.optional(v.st)
	}
	x := ln.value(v)
	return &x
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate collapses a monthly series to the target scale. Monthly is the
// identity transform into the row/period shape; Overall is a single "Total"
// bucket with the total column disabled.
func Aggregate(series *projection.Series, scale Scale) (*Grid, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	buckets, err := bucketize(series, scale)
	if err != nil {
		return nil, err
	}

	active := activeLines(series)
	grid, rows := newGrid(scale, active)

	for _, b := range buckets {
		grid.Periods = append(grid.Periods, b.period)
		v := b.acc.view()
		for _, ln := range active {
			rows[ln.key].Values[b.period.ID] = ln.valueOf(v)
		}
	}

	// Totals come from the source months, never from the columns, so that
	// reference columns appended later cannot move them.
	if grid.ShowTotalColumn {
		all := newAccumulator()
		for _, m := range series.Months {
			all.add(m)
		}
		v := all.view()
		for _, ln := range active {
			rows[ln.key].Total = ln.valueOf(v)
		}
	}

	return grid, nil
}

type bucket struct {
	period Period
	acc    *accumulator
}

func bucketize(series *projection.Series, scale Scale) ([]*bucket, error) {
	anchor := series.Anchor()
	index := make(map[string]*bucket)
	var out []*bucket

	for _, m := range series.Months {
		var id, label string
		switch scale {
		case Monthly:
			id, label = m.PeriodID, m.Month.Format("Jan 2006")
		case Quarterly:
			// Calendar quarter of the month, independent of the fiscal anchor.
			q := projection.QuarterOf(m.Month)
			id = fmt.Sprintf("%d-Q%d", m.Month.Year(), q)
			label = fmt.Sprintf("Q%d %d", q, m.Month.Year())
		case Annual:
			// Fiscal year N is the 12 months from anchor+(N-1) years, labelled by the
			// calendar year it ends in.
			id = fmt.Sprintf("FY%d", m.FiscalYear)
			label = strconv.Itoa(projection.FiscalYearEnd(anchor, m.FiscalYear).Year())
		case Overall:
			id, label = "total", "Total"
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedScale, scale)
		}

		b, ok := index[id]
		if !ok {
			b = &bucket{period: Period{ID: id, Label: label}, acc: newAccumulator()}
			index[id] = b
			out = append(out, b)
		}
		b.period.SourceIDs = append(b.period.SourceIDs, m.PeriodID)
		b.acc.add(m)
	}
	return out, nil
}

// activeLines drops value-add rows when no record in the series carries them.
func activeLines(series *projection.Series) []line {
	present := func(ln line) bool {
		if ln.optional == nil {
			return true
		}
		for _, m := range series.Months {
			if ln.optional(m.Statement) != nil {
				return true
			}
		}
		return series.Terminal != nil && ln.optional(series.Terminal.Statement) != nil
	}

	out := make([]line, 0, len(lines))
	for _, ln := range lines {
		if present(ln) {
			out = append(out, ln)
		}
	}
	return out
}

func newGrid(scale Scale, active []line) (*Grid, map[string]*Row) {
	grid := &Grid{Scale: scale, ShowTotalColumn: scale != Overall}
	rows := make(map[string]*Row, len(active))
	for _, sd := range sectionDefs {
		sec := &Section{Key: sd.key, Label: sd.label}
		for _, ln := range active {
			if ln.section != sd.key {
				continue
			}
			row := &Row{Key: ln.key, Label: ln.label, Rule: ln.rule, Values: make(map[string]*float64)}
			rows[ln.key] = row
			sec.Rows = append(sec.Rows, row)
		}
		grid.Sections = append(grid.Sections, sec)
	}
	return grid, rows
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// accumulator sums flow lines in decimal so a bucket equals the sum of its
// months regardless of summation order.
type accumulator struct {
	gpr, vacancy, credit, other decimal.Decimal
	base, mgmt, reserves        decimal.Decimal
	renoVacancy, renoPremium    optionalSum
	renoCapex, relocation       optionalSum
	reversion, pvCash, pvFactor decimal.Decimal
	n                           int64
}

type optionalSum struct {
	sum     decimal.Decimal
	present bool
}

func (o *optionalSum) add(v *float64) {
	if v == nil {
		return
	}
	o.sum = o.sum.Add(decimal.NewFromFloat(*v))
	o.present = true
}

func (o optionalSum) value() *float64 {
	if !o.present {
		return nil
	}
	v := o.sum.InexactFloat64()
	return &v
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

func (a *accumulator) add(m projection.MonthlyProjection) {
	a.addStatement(m.Statement)
	a.reversion = a.reversion.Add(decimal.NewFromFloat(m.NetReversion))
	a.pvCash = a.pvCash.Add(decimal.NewFromFloat(m.PVCashFlow))
	a.pvFactor = a.pvFactor.Add(decimal.NewFromFloat(m.PVFactor))
	a.n++
}

func (a *accumulator) addStatement(st projection.Statement) {
	a.gpr = a.gpr.Add(decimal.NewFromFloat(st.GrossPotentialRent))
	a.vacancy = a.vacancy.Add(decimal.NewFromFloat(st.VacancyLoss))
	a.credit = a.credit.Add(decimal.NewFromFloat(st.CreditLoss))
	a.other = a.other.Add(decimal.NewFromFloat(st.OtherIncome))
	a.base = a.base.Add(decimal.NewFromFloat(st.BaseOperatingExpenses))
	a.mgmt = a.mgmt.Add(decimal.NewFromFloat(st.ManagementFee))
	a.reserves = a.reserves.Add(decimal.NewFromFloat(st.ReplacementReserves))
	a.renoVacancy.add(st.RenovationVacancyLoss)
	a.renoPremium.add(st.RenovationRentPremium)
	a.renoCapex.add(st.RenovationCapex)
	a.relocation.add(st.RelocationCost)
}

func (a *accumulator) statement() projection.Statement {
	return projection.Statement{
		GrossPotentialRent:    a.gpr.InexactFloat64(),
		VacancyLoss:           a.vacancy.InexactFloat64(),
		CreditLoss:            a.credit.InexactFloat64(),
		OtherIncome:           a.other.InexactFloat64(),
		RenovationVacancyLoss: a.renoVacancy.value(),
		RenovationRentPremium: a.renoPremium.value(),
		BaseOperatingExpenses: a.base.InexactFloat64(),
		ManagementFee:         a.mgmt.InexactFloat64(),
		ReplacementReserves:   a.reserves.InexactFloat64(),
		RenovationCapex:       a.renoCapex.value(),
		RelocationCost:        a.relocation.value(),
	}
}

func (a *accumulator) view() view {
	v := view{
		st:        a.statement(),
		reversion: a.reversion.InexactFloat64(),
		pvCash:    a.pvCash.InexactFloat64(),
		hasCash:   true,
	}
	if a.n > 0 {
		v.pvFactor = a.pvFactor.Div(decimal.NewFromInt(a.n)).InexactFloat64()
	}
	return v
}
