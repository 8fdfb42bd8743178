package projection

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrEmptySeries is returned when a series has no hold-period months.
	ErrEmptySeries = errors.New("projection series is empty")
	// ErrMalformedSeries wraps every structural problem found by Validate.
	ErrMalformedSeries = errors.New("projection series is malformed")
)

// Validate rejects series the engines cannot value. A valuation of zero is
// indistinguishable from "no data", so empty input is an error, never a zero result.
func (s *Series) Validate() error {
	if s == nil || len(s.Months) == 0 {
		return ErrEmptySeries
	}

	seen := make(map[string]struct{}, len(s.Months))
	for i, m := range s.Months {
		// 1. Identity
		want := i + 1
		if m.PeriodIndex != want {
			return fmt.Errorf("%w: month %d has period_index %d", ErrMalformedSeries, want, m.PeriodIndex)
		}
		if m.PeriodID == "" {
			return fmt.Errorf("%w: month %d has no period_id", ErrMalformedSeries, want)
		}
		if _, dup := seen[m.PeriodID]; dup {
			return fmt.Errorf("%w: duplicate period_id %q", ErrMalformedSeries, m.PeriodID)
		}
		seen[m.PeriodID] = struct{}{}

		// 2. Calendar
		if m.Month.IsZero() {
			return fmt.Errorf("%w: month %d has no calendar month", ErrMalformedSeries, want)
		}
		if i > 0 {
			prev := MonthStart(s.Months[i-1].Month)
			if !MonthStart(m.Month).Equal(prev.AddDate(0, 1, 0)) {
				return fmt.Errorf("%w: month %d (%s) does not follow %s", ErrMalformedSeries,
					want, m.Month.Format("2006-01"), prev.Format("2006-01"))
			}
		}
		if m.FiscalYear != FiscalYearOf(m.PeriodIndex) {
			return fmt.Errorf("%w: month %d has fiscal_year %d, expected %d", ErrMalformedSeries,
				want, m.FiscalYear, FiscalYearOf(m.PeriodIndex))
		}
		if m.CalendarQuarter != QuarterOf(m.Month) {
			return fmt.Errorf("%w: month %d has calendar_quarter %d, expected %d", ErrMalformedSeries,
				want, m.CalendarQuarter, QuarterOf(m.Month))
		}

		// 3. Values
		if err := checkFinite(m.Statement); err != nil {
			return fmt.Errorf("%w: month %d: %v", ErrMalformedSeries, want, err)
		}
		if err := checkFields(
			field{"net_reversion", m.NetReversion},
			field{"pv_factor", m.PVFactor},
			field{"pv_cash_flow", m.PVCashFlow},
		); err != nil {
			return fmt.Errorf("%w: month %d: %v", ErrMalformedSeries, want, err)
		}
		if m.NetReversion != 0 && i != len(s.Months)-1 {
			return fmt.Errorf("%w: net_reversion on month %d, only the final month may carry it", ErrMalformedSeries, want)
		}
	}

	if !s.StartDate.IsZero() && !MonthStart(s.StartDate).Equal(MonthStart(s.Months[0].Month)) {
		return fmt.Errorf("%w: start date %s does not match first month %s", ErrMalformedSeries,
			s.StartDate.Format("2006-01"), s.Months[0].Month.Format("2006-01"))
	}
	if s.Terminal != nil {
		if err := checkFinite(s.Terminal.Statement); err != nil {
			return fmt.Errorf("%w: terminal: %v", ErrMalformedSeries, err)
		}
	}
	return nil
}

// Anchor returns the fiscal-year anchor: the explicit start date, else the first month.
func (s *Series) Anchor() time.Time {
	if !s.StartDate.IsZero() {
		return MonthStart(s.StartDate)
	}
	return MonthStart(s.Months[0].Month)
}

// HoldYears returns the whole number of fiscal years the hold period touches.
func (s *Series) HoldYears() int {
	if s.HoldPeriodYears > 0 {
		return int(math.Ceil(s.HoldPeriodYears))
	}
	return FiscalYearOf(len(s.Months))
}

type field struct {
	name string
	v    float64
}

func checkFinite(st Statement) error {
	return checkFields(
		field{"gross_potential_rent", st.GrossPotentialRent},
		field{"vacancy_loss", st.VacancyLoss},
		field{"credit_loss", st.CreditLoss},
		field{"other_income", st.OtherIncome},
		field{"renovation_vacancy_loss", deref(st.RenovationVacancyLoss)},
		field{"renovation_rent_premium", deref(st.RenovationRentPremium)},
		field{"base_operating_expenses", st.BaseOperatingExpenses},
		field{"management_fee", st.ManagementFee},
		field{"replacement_reserves", st.ReplacementReserves},
		field{"renovation_capex", deref(st.RenovationCapex)},
		field{"relocation_cost", deref(st.RelocationCost)},
	)
}

func checkFields(fields ...field) error {
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is not finite", f.name)
		}
	}
	return nil
}
