// Package projectiontest builds projection series for tests.
package projectiontest

import (
	"time"

	"income_valuation/pkg/core/projection"
)

// Date returns the first day of the given month in UTC.
func Date(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// Flat returns a series of n identical months starting at start, with the
// terminal year set to twelve times the monthly statement.
func Flat(start time.Time, n int, st projection.Statement) *projection.Series {
	s := &projection.Series{
		StartDate:       start,
		HoldPeriodYears: float64(n) / 12,
		Months:          make([]projection.MonthlyProjection, 0, n),
	}
	for k := 1; k <= n; k++ {
		month := start.AddDate(0, k-1, 0)
		s.Months = append(s.Months, projection.MonthlyProjection{
			PeriodID:        projection.PeriodID(k),
			PeriodIndex:     k,
			Month:           month,
			FiscalYear:      projection.FiscalYearOf(k),
			CalendarQuarter: projection.QuarterOf(month),
			Statement:       st,
		})
	}
	s.Terminal = &projection.TerminalProjection{
		FiscalYear: s.HoldYears() + 1,
		Statement:  Scale(st, 12),
	}
	return s
}

// Ramp returns a series whose month k has every line of st multiplied by k.
// Useful for catching bucketing mistakes that flat data would hide.
func Ramp(start time.Time, n int, st projection.Statement) *projection.Series {
	s := Flat(start, n, st)
	for i := range s.Months {
		s.Months[i].Statement = Scale(st, float64(i+1))
	}
	return s
}

// Scale multiplies every populated line of st by f.
func Scale(st projection.Statement, f float64) projection.Statement {
	out := st
	out.GrossPotentialRent *= f
	out.VacancyLoss *= f
	out.CreditLoss *= f
	out.OtherIncome *= f
	out.BaseOperatingExpenses *= f
	out.ManagementFee *= f
	out.ReplacementReserves *= f
	out.RenovationVacancyLoss = scalePtr(st.RenovationVacancyLoss, f)
	out.RenovationRentPremium = scalePtr(st.RenovationRentPremium, f)
	out.RenovationCapex = scalePtr(st.RenovationCapex, f)
	out.RelocationCost = scalePtr(st.RelocationCost, f)
	return out
}

// Property is a 100-unit, 80,000 sq ft summary.
func Property() projection.PropertySummary {
	return projection.PropertySummary{Name: "Test Apartments", UnitCount: 100, TotalArea: 80000}
}

func scalePtr(v *float64, f float64) *float64 {
	if v == nil {
		return nil
	}
	return projection.Float64(*v * f)
}
