package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"income_valuation/pkg/core/projection/projectiontest"
)

func TestAppendTerminal_TotalsExcludeTerminal(t *testing.T) {
	series := projectiontest.Ramp(projectiontest.Date(2026, time.March), 36, sampleStatement())
	series.Months[35].NetReversion = 900_000

	for _, scale := range []Scale{Annual, Quarterly} {
		plain, err := Aggregate(series, scale)
		require.NoError(t, err)
		withTerminal, err := Aggregate(series, scale)
		require.NoError(t, err)
		require.NoError(t, AppendTerminal(withTerminal, series.Terminal, 3))

		for _, sec := range plain.Sections {
			for _, row := range sec.Rows {
				other := withTerminal.Row(row.Key)
				require.NotNil(t, other)
				require.NotNil(t, row.Total, row.Key)
				assert.Equal(t, *row.Total, *other.Total, "%s %s", scale, row.Key)
			}
		}
	}
}

func TestAppendTerminal_ColumnShape(t *testing.T) {
	series := projectiontest.Flat(projectiontest.Date(2026, time.January), 60, sampleStatement())
	grid, err := Aggregate(series, Annual)
	require.NoError(t, err)
	require.NoError(t, AppendTerminal(grid, series.Terminal, 5))

	last := grid.Periods[len(grid.Periods)-1]
	assert.Equal(t, TerminalPeriodID, last.ID)
	assert.Equal(t, "Year 6", last.Label)
	assert.True(t, last.IsReference)
	assert.Len(t, grid.HoldPeriods(), 5)

	noi, ok := grid.Row("noi").Value(TerminalPeriodID)
	require.True(t, ok)
	assert.InDelta(t, series.Terminal.NOI(), noi, 1e-9)

	for _, key := range []string{"net_reversion", "total_cash_flow", "pv_factor", "pv_cash_flow"} {
		_, ok := grid.Row(key).Value(TerminalPeriodID)
		assert.False(t, ok, "%s must have no terminal value", key)
	}
}

func TestAppendTerminal_EGIRecomputedFromComponents(t *testing.T) {
	series := projectiontest.Flat(projectiontest.Date(2026, time.January), 12, sampleStatement())
	series.Terminal.GrossPotentialRent = 130_000
	series.Terminal.VacancyLoss = 7_000
	series.Terminal.CreditLoss = 1_000
	series.Terminal.OtherIncome = 2_000

	grid, err := Aggregate(series, Annual)
	require.NoError(t, err)
	require.NoError(t, AppendTerminal(grid, series.Terminal, 1))

	egi, _ := grid.Row("effective_gross_income").Value(TerminalPeriodID)
	assert.Equal(t, 124_000.0, egi)
}

func TestAppendTerminal_Rejections(t *testing.T) {
	series := projectiontest.Flat(projectiontest.Date(2026, time.January), 24, sampleStatement())

	for _, scale := range []Scale{Monthly, Overall} {
		grid, err := Aggregate(series, scale)
		require.NoError(t, err)
		assert.ErrorIs(t, AppendTerminal(grid, series.Terminal, 2), ErrUnsupportedScale)
	}

	grid, err := Aggregate(series, Annual)
	require.NoError(t, err)
	assert.Error(t, AppendTerminal(grid, nil, 2))
	require.NoError(t, AppendTerminal(grid, series.Terminal, 2))
	assert.Error(t, AppendTerminal(grid, series.Terminal, 2), "second append")
}
