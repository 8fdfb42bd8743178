package projection

import (
	"fmt"
	"time"
)

func deref(v *float64) float64 {
	if v != nil {
		return *v
	}
	return 0
}

func copyPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// PeriodID builds the deterministic, lexically sortable id of a 1-based month index.
func PeriodID(index int) string {
	return fmt.Sprintf("M%03d", index)
}

// FiscalYearOf returns ceil(index/12) for a 1-based month index.
func FiscalYearOf(index int) int {
	return (index + 11) / 12
}

// QuarterOf returns the calendar quarter (1-4) of t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// MonthStart truncates t to the first day of its month (UTC).
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// FiscalYearEnd returns the last month of fiscal year n for a series anchored at start.
func FiscalYearEnd(start time.Time, n int) time.Time {
	return MonthStart(start).AddDate(0, 12*n-1, 0)
}
