package aggregate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"income_valuation/pkg/core/projection"
)

// TerminalPeriodID is the id of the appended reference column.
const TerminalPeriodID = "terminal"

// AppendTerminal adds a "Year N+1" reference column to an annual or quarterly
// grid. Only revenue, expense and NOI rows receive a value; cash-flow, reversion
// and PV rows show no value. Row totals are fixed before the column is added and
// never include it.
func AppendTerminal(grid *Grid, terminal *projection.TerminalProjection, holdYears int) error {
	if grid == nil {
		return errors.New("append terminal: nil grid")
	}
	if terminal == nil {
		return errors.New("append terminal: no terminal projection")
	}
	if grid.Scale != Annual && grid.Scale != Quarterly {
		return fmt.Errorf("append terminal: %w: %s", ErrUnsupportedScale, grid.Scale)
	}
	if holdYears < 1 {
		return fmt.Errorf("append terminal: hold period of %d years", holdYears)
	}
	if _, exists := grid.Period(TerminalPeriodID); exists {
		return errors.New("append terminal: grid already has a terminal column")
	}

	// 1. Cache totals over the hold-period columns only.
	hold := grid.HoldPeriods()
	for _, sec := range grid.Sections {
		for _, row := range sec.Rows {
			if row.Total == nil {
				row.Total = columnTotal(row, hold)
			}
		}
	}

	// 2. Terminal values, derived lines recomputed from the terminal's own components.
	v := view{st: terminal.Statement}
	byKey := make(map[string]line, len(lines))
	for _, ln := range lines {
		byKey[ln.key] = ln
	}
	for _, sec := range grid.Sections {
		for _, row := range sec.Rows {
			if ln, ok := byKey[row.Key]; ok {
				row.Values[TerminalPeriodID] = ln.valueOf(v)
			}
		}
	}

	grid.Periods = append(grid.Periods, Period{
		ID:          TerminalPeriodID,
		Label:       fmt.Sprintf("Year %d", holdYears+1),
		IsReference: true,
	})
	return nil
}

// columnTotal folds a row across the given periods using its rule. Returns nil
// when no period has a value.
func columnTotal(row *Row, periods []Period) *float64 {
	sum := decimal.Zero
	var n int64
	for _, p := range periods {
		if v, ok := row.Value(p.ID); ok {
			sum = sum.Add(decimal.NewFromFloat(v))
			n++
		}
	}
	if n == 0 {
		return nil
	}
	if row.Rule == Average {
		sum = sum.Div(decimal.NewFromInt(n))
	}
	t := sum.InexactFloat64()
	return &t
}
