package projection

import (
	"errors"
	"fmt"
	"time"

	"income_valuation/pkg/core/assumption"
)

// BaseYear is the Year-1 starting point the Projector grows forward. Amounts are monthly.
type BaseYear struct {
	MonthlyGrossPotentialRent float64            `json:"monthly_gross_potential_rent"`
	MonthlyOtherIncome        float64            `json:"monthly_other_income"`
	MonthlyOperatingExpenses  float64            `json:"monthly_operating_expenses"`
	UnitCount                 int                `json:"unit_count"`
	Renovation                *RenovationProgram `json:"renovation,omitempty"`

	// Optional year-by-year growth overriding the flat assumption rates.
	// Element 0 is the growth from year 1 to year 2; the last rate repeats.
	IncomeGrowthSchedule  []float64 `json:"income_growth_schedule,omitempty"`
	ExpenseGrowthSchedule []float64 `json:"expense_growth_schedule,omitempty"`
}

// RenovationProgram describes a value-add unit renovation schedule.
type RenovationProgram struct {
	StartMonth        int     `json:"start_month"` // 1-based hold month of the first renovation
	UnitsPerMonth     int     `json:"units_per_month"`
	TotalUnits        int     `json:"total_units"`
	DowntimeMonths    int     `json:"downtime_months"`
	PremiumPerUnit    float64 `json:"premium_per_unit"` // monthly rent lift once complete
	CapexPerUnit      float64 `json:"capex_per_unit"`
	RelocationPerUnit float64 `json:"relocation_per_unit"`
}

// Projector builds a monthly projection series from a base year and assumptions.
// It stands in for the upstream projection producer; the aggregation and
// valuation engines never depend on it.
type Projector struct {
	Assumptions   assumption.Assumptions
	IncomeGrowth  Escalation
	ExpenseGrowth Escalation
}

// NewProjector creates a projector with annual escalations taken from the assumptions.
func NewProjector(a assumption.Assumptions) *Projector {
	return &Projector{
		Assumptions:   a,
		IncomeGrowth:  AnnualEscalation{Rate: a.IncomeGrowth},
		ExpenseGrowth: AnnualEscalation{Rate: a.ExpenseGrowth},
	}
}

// Project returns the hold-period months plus the terminal year. Discounting
// fields and net reversion are left at zero for the DCF engine to fill.
func (p *Projector) Project(base BaseYear) (*Series, error) {
	a := p.Assumptions
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.StartDate.IsZero() {
		return nil, errors.New("projector requires a start date")
	}
	if base.UnitCount <= 0 && (a.ReservesPerUnit > 0 || base.Renovation != nil) {
		return nil, errors.New("unit_count is required for reserves and renovation")
	}
	if r := base.Renovation; r != nil {
		if r.StartMonth < 1 || r.UnitsPerMonth < 1 || r.TotalUnits < 0 || r.DowntimeMonths < 0 {
			return nil, fmt.Errorf("invalid renovation program: %+v", *r)
		}
		if r.TotalUnits > base.UnitCount {
			return nil, fmt.Errorf("renovation covers %d units but property has %d", r.TotalUnits, base.UnitCount)
		}
	}

	q, err := p.withSchedules(base)
	if err != nil {
		return nil, err
	}

	holdMonths := a.HoldMonths()
	start := MonthStart(a.StartDate)

	series := &Series{
		StartDate:       start,
		HoldPeriodYears: a.HoldPeriodYears,
		Months:          make([]MonthlyProjection, 0, holdMonths),
	}
	for k := 1; k <= holdMonths; k++ {
		series.Months = append(series.Months, q.projectMonth(base, start, k))
	}

	// Terminal year: the 12 months that follow the hold period, summed.
	terminal := &TerminalProjection{FiscalYear: series.HoldYears() + 1}
	for k := holdMonths + 1; k <= holdMonths+12; k++ {
		m := q.projectMonth(base, start, k)
		terminal.Statement = addStatements(terminal.Statement, m.Statement)
	}
	series.Terminal = terminal

	return series, nil
}

// withSchedules returns a copy of p whose escalations follow the base year's
// growth schedules where one is given.
func (p *Projector) withSchedules(base BaseYear) (*Projector, error) {
	q := *p
	if len(base.IncomeGrowthSchedule) > 0 {
		e := ScheduleEscalation{Rates: base.IncomeGrowthSchedule}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("income growth schedule: %w", err)
		}
		q.IncomeGrowth = e
	}
	if len(base.ExpenseGrowthSchedule) > 0 {
		e := ScheduleEscalation{Rates: base.ExpenseGrowthSchedule}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("expense growth schedule: %w", err)
		}
		q.ExpenseGrowth = e
	}
	return &q, nil
}

// projectMonth computes month k (1-based) from the base year.
func (p *Projector) projectMonth(base BaseYear, start time.Time, k int) MonthlyProjection {
	a := p.Assumptions
	month := start.AddDate(0, k-1, 0)
	fy := FiscalYearOf(k)
	incF := p.IncomeGrowth.Factor(fy)
	expF := p.ExpenseGrowth.Factor(fy)

	// 1. Revenue
	gpr := base.MonthlyGrossPotentialRent * incF
	vacancy := gpr * a.VacancyRate

	var st Statement
	if r := base.Renovation; r != nil {
		offline, completed, started := r.unitsAt(k)
		rentPerUnit := gpr / float64(base.UnitCount)

		premium := float64(completed) * r.PremiumPerUnit * incF
		renoVacancy := float64(offline) * rentPerUnit
		gpr += premium
		vacancy += renoVacancy

		capex := float64(started) * r.CapexPerUnit * expF
		relocation := float64(started) * r.RelocationPerUnit * expF
		st.RenovationRentPremium = Float64(premium)
		st.RenovationVacancyLoss = Float64(renoVacancy)
		st.RenovationCapex = Float64(capex)
		st.RelocationCost = Float64(relocation)
	}

	st.GrossPotentialRent = gpr
	st.VacancyLoss = vacancy
	st.CreditLoss = (gpr - vacancy) * a.CreditLossRate
	st.OtherIncome = base.MonthlyOtherIncome * incF

	// 2. Expenses
	st.BaseOperatingExpenses = base.MonthlyOperatingExpenses * expF
	st.ManagementFee = st.EffectiveGrossIncome() * a.ManagementFeePct
	st.ReplacementReserves = a.ReservesPerUnit * float64(base.UnitCount) / 12 * expF

	return MonthlyProjection{
		PeriodID:        PeriodID(k),
		PeriodIndex:     k,
		Month:           month,
		FiscalYear:      fy,
		CalendarQuarter: QuarterOf(month),
		Statement:       st,
	}
}

// unitsAt returns, for hold month k: units offline for renovation, units
// finished and earning the premium, and units starting renovation this month.
func (r *RenovationProgram) unitsAt(k int) (offline, completed, started int) {
	startedBy := func(m int) int {
		if m < r.StartMonth {
			return 0
		}
		n := (m - r.StartMonth + 1) * r.UnitsPerMonth
		if n > r.TotalUnits {
			n = r.TotalUnits
		}
		return n
	}
	started = startedBy(k) - startedBy(k-1)
	completed = startedBy(k - r.DowntimeMonths)
	offline = startedBy(k) - completed
	return offline, completed, started
}

func addStatements(a, b Statement) Statement {
	a.GrossPotentialRent += b.GrossPotentialRent
	a.VacancyLoss += b.VacancyLoss
	a.CreditLoss += b.CreditLoss
	a.OtherIncome += b.OtherIncome
	a.BaseOperatingExpenses += b.BaseOperatingExpenses
	a.ManagementFee += b.ManagementFee
	a.ReplacementReserves += b.ReplacementReserves
	a.RenovationVacancyLoss = addOptional(a.RenovationVacancyLoss, b.RenovationVacancyLoss)
	a.RenovationRentPremium = addOptional(a.RenovationRentPremium, b.RenovationRentPremium)
	a.RenovationCapex = addOptional(a.RenovationCapex, b.RenovationCapex)
	a.RelocationCost = addOptional(a.RelocationCost, b.RelocationCost)
	return a
}

func addOptional(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	return Float64(deref(a) + deref(b))
}
