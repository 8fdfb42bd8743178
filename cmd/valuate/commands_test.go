package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"income_valuation/pkg/core/aggregate"
	"income_valuation/pkg/core/assumption"
	"income_valuation/pkg/core/projection"
	"income_valuation/pkg/core/projection/projectiontest"
	"income_valuation/pkg/core/valuation"
)

func testAssumptions() assumption.Assumptions {
	return assumption.Assumptions{
		StartDate:        projectiontest.Date(2026, time.January),
		HoldPeriodYears:  3,
		DiscountRate:     0.07,
		TerminalCapRate:  0.06,
		SellingCostsPct:  0.02,
		IncomeGrowth:     0.03,
		ExpenseGrowth:    0.025,
		VacancyRate:      0.05,
		CreditLossRate:   0.01,
		ManagementFeePct: 0.03,
		ReservesPerUnit:  250,
	}
}

func writeDoc(t *testing.T, doc inputDoc) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func seriesDoc(t *testing.T) string {
	st := projection.Statement{GrossPotentialRent: 100_000, VacancyLoss: 5_000, BaseOperatingExpenses: 35_000}
	return writeDoc(t, inputDoc{
		Property:    projectiontest.Property(),
		Assumptions: testAssumptions(),
		Series:      projectiontest.Flat(projectiontest.Date(2026, time.January), 36, st),
		Bases: []valuation.BasisInput{
			{Basis: valuation.BasisCurrent, Year1: projectiontest.Scale(st, 12)},
			{Basis: valuation.BasisStabilized, Year1: projection.Statement{GrossPotentialRent: 1_300_000, VacancyLoss: 65_000, BaseOperatingExpenses: 420_000}},
		},
		CapRates: map[valuation.Basis]float64{valuation.BasisCurrent: 0.055, valuation.BasisStabilized: 0.05},
	})
}

func execute(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--env-file", "", "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.Bytes(), err
}

func TestAggregateCommand(t *testing.T) {
	out, err := execute(t, "aggregate", "-i", seriesDoc(t), "--scale", "annual", "--terminal")
	require.NoError(t, err)

	var grid aggregate.Grid
	require.NoError(t, json.Unmarshal(out, &grid))
	require.Len(t, grid.Periods, 4)
	assert.Equal(t, aggregate.Annual, grid.Scale)
	assert.Equal(t, "Year 4", grid.Periods[3].Label)

	noi, ok := grid.Row("noi").Value("FY1")
	require.True(t, ok)
	assert.InDelta(t, 720_000.0, noi, 1e-6)
}

func TestAggregateCommand_BadScale(t *testing.T) {
	_, err := execute(t, "aggregate", "-i", seriesDoc(t), "--scale", "weekly")
	assert.ErrorIs(t, err, aggregate.ErrUnsupportedScale)
}

func TestBasesCommand(t *testing.T) {
	out, err := execute(t, "bases", "-i", seriesDoc(t))
	require.NoError(t, err)

	var tiles []valuation.ValueTile
	require.NoError(t, json.Unmarshal(out, &tiles))
	require.Len(t, tiles, 2)
	assert.InDelta(t, 720_000/0.055, *tiles[0].CapitalizedValue, 1e-6)
	assert.InDelta(t, 815_000/0.05, *tiles[1].CapitalizedValue, 1e-6)
}

func TestDCFCommand(t *testing.T) {
	out, err := execute(t, "dcf", "-i", seriesDoc(t))
	require.NoError(t, err)

	var res valuation.DCFResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.NotNil(t, res.Metrics.PresentValue)
	assert.Greater(t, *res.Metrics.PresentValue, 0.0)
	assert.Nil(t, res.Series)
	assert.Equal(t, "monthly", res.Frequency)
}

func TestSensitivityCommand(t *testing.T) {
	out, err := execute(t, "sensitivity", "-i", seriesDoc(t), "--steps", "3")
	require.NoError(t, err)

	var grid valuation.SensitivityGrid
	require.NoError(t, json.Unmarshal(out, &grid))
	require.Len(t, grid.Rows, 3)
	assert.True(t, grid.Cell(1, 1).IsBase)
	assert.InDeltaSlice(t, []float64{0.065, 0.07, 0.075}, grid.DiscountRates, 1e-12)
}

func TestRunCommand_FromBaseYear(t *testing.T) {
	path := writeDoc(t, inputDoc{
		Property:    projectiontest.Property(),
		Assumptions: testAssumptions(),
		BaseYear: &projection.BaseYear{
			MonthlyGrossPotentialRent: 150_000,
			MonthlyOtherIncome:        4_000,
			MonthlyOperatingExpenses:  50_000,
		},
	})

	out, err := execute(t, "run", "-i", path)
	require.NoError(t, err)

	var report valuation.Report
	require.NoError(t, json.Unmarshal(out, &report))
	require.NotNil(t, report.DCF)
	require.Len(t, report.DCF.Series.Months, 36)
	require.NotNil(t, report.Annual)
	assert.Len(t, report.Annual.Periods, 4)
	assert.Empty(t, report.Tiles)
	assert.Len(t, report.Sensitivity.Rows, 5)
}

func TestCommands_InputErrors(t *testing.T) {
	_, err := execute(t, "dcf")
	assert.ErrorContains(t, err, "--input")

	empty := writeDoc(t, inputDoc{Assumptions: testAssumptions()})
	_, err = execute(t, "dcf", "-i", empty)
	assert.ErrorContains(t, err, "series or base_year")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"property": {"name": "x"}, "assumptons": {}}`), 0o644))
	_, err = execute(t, "dcf", "-i", bad)
	assert.Error(t, err)
}
