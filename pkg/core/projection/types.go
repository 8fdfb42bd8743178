// Package projection holds the monthly cash-flow projection series consumed by the
// aggregation and valuation engines. Records are plain data; every derived line
// (EGI, total operating expenses, NOI, total cash flow) is recomputed from its
// components on demand and never stored.
package projection

import (
	"time"
)

// Statement is the revenue and expense shape shared by hold-period months,
// the terminal reference year and Year-1 basis records.
type Statement struct {
	// Revenue
	GrossPotentialRent float64 `json:"gross_potential_rent"`
	VacancyLoss        float64 `json:"vacancy_loss"`
	CreditLoss         float64 `json:"credit_loss"`
	OtherIncome        float64 `json:"other_income"`

	// Value-add overlay detail. Already embedded in GrossPotentialRent and
	// VacancyLoss by the producer; carried for reporting only.
	RenovationVacancyLoss *float64 `json:"renovation_vacancy_loss,omitempty"`
	RenovationRentPremium *float64 `json:"renovation_rent_premium,omitempty"`

	// Expenses
	BaseOperatingExpenses float64  `json:"base_operating_expenses"`
	ManagementFee         float64  `json:"management_fee"`
	ReplacementReserves   float64  `json:"replacement_reserves"`
	RenovationCapex       *float64 `json:"renovation_capex,omitempty"`
	RelocationCost        *float64 `json:"relocation_cost,omitempty"`
}

// EffectiveGrossIncome = GPR - vacancy - credit loss + other income.
func (s Statement) EffectiveGrossIncome() float64 {
	return s.GrossPotentialRent - s.VacancyLoss - s.CreditLoss + s.OtherIncome
}

// TotalOperatingExpenses sums every expense line, renovation items included when present.
func (s Statement) TotalOperatingExpenses() float64 {
	total := s.BaseOperatingExpenses + s.ManagementFee + s.ReplacementReserves
	total += deref(s.RenovationCapex)
	total += deref(s.RelocationCost)
	return total
}

// NOI = EGI - total operating expenses.
func (s Statement) NOI() float64 {
	return s.EffectiveGrossIncome() - s.TotalOperatingExpenses()
}

// HasRenovation reports whether any value-add overlay line is populated.
func (s Statement) HasRenovation() bool {
	return s.RenovationVacancyLoss != nil || s.RenovationRentPremium != nil ||
		s.RenovationCapex != nil || s.RelocationCost != nil
}

// MonthlyProjection is one calendar month of the hold period.
type MonthlyProjection struct {
	PeriodID        string    `json:"period_id"`
	PeriodIndex     int       `json:"period_index"` // 1-based
	Month           time.Time `json:"month"`        // first day of the calendar month
	FiscalYear      int       `json:"fiscal_year"`  // ceil(PeriodIndex/12)
	CalendarQuarter int       `json:"calendar_quarter"`

	Statement

	// NetReversion is zero except on the final hold-period month.
	NetReversion float64 `json:"net_reversion"`

	// Discounting artifacts, tied to one discount rate.
	PVFactor   float64 `json:"pv_factor"`
	PVCashFlow float64 `json:"pv_cash_flow"`
}

// TotalCashFlow = NOI + net reversion.
func (m MonthlyProjection) TotalCashFlow() float64 {
	return m.NOI() + m.NetReversion
}

// TerminalProjection is the year after the hold period. It only ever supplies
// the forward NOI used for the exit value; it carries no cash flow, reversion
// or discounting fields.
type TerminalProjection struct {
	FiscalYear int `json:"fiscal_year"`
	Statement
}

// PropertySummary carries the physical denominators for per-unit and per-area metrics.
type PropertySummary struct {
	Name      string  `json:"name"`
	UnitCount int     `json:"unit_count"`
	TotalArea float64 `json:"total_area"`
}

// Series is the full input to the engines: the ordered hold-period months plus
// the terminal reference year.
type Series struct {
	StartDate       time.Time           `json:"start_date"`
	HoldPeriodYears float64             `json:"hold_period_years"`
	Months          []MonthlyProjection `json:"months"`
	Terminal        *TerminalProjection `json:"terminal,omitempty"`
}

// Last returns the final hold-period month. The series must not be empty.
func (s *Series) Last() *MonthlyProjection {
	return &s.Months[len(s.Months)-1]
}

// Clone returns a deep copy so that engines never mutate caller input.
func (s *Series) Clone() *Series {
	out := &Series{
		StartDate:       s.StartDate,
		HoldPeriodYears: s.HoldPeriodYears,
		Months:          make([]MonthlyProjection, len(s.Months)),
	}
	copy(out.Months, s.Months)
	for i := range out.Months {
		out.Months[i].Statement = out.Months[i].Statement.clone()
	}
	if s.Terminal != nil {
		t := *s.Terminal
		t.Statement = t.Statement.clone()
		out.Terminal = &t
	}
	return out
}

func (s Statement) clone() Statement {
	s.RenovationVacancyLoss = copyPtr(s.RenovationVacancyLoss)
	s.RenovationRentPremium = copyPtr(s.RenovationRentPremium)
	s.RenovationCapex = copyPtr(s.RenovationCapex)
	s.RelocationCost = copyPtr(s.RelocationCost)
	return s
}
