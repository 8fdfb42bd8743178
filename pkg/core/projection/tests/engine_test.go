package projection_test

import (
	"math"
	"testing"
	"time"

	"income_valuation/pkg/core/assumption"
	"income_valuation/pkg/core/projection"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func getF(v *float64) float64 {
	if v != nil {
		return *v
	}
	return 0
}

func testAssumptions() assumption.Assumptions {
	return assumption.Assumptions{
		StartDate:        time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		HoldPeriodYears:  2,
		DiscountRate:     0.07,
		TerminalCapRate:  0.06,
		IncomeGrowth:     0.03,
		ExpenseGrowth:    0.02,
		VacancyRate:      0.05,
		CreditLossRate:   0.01,
		ManagementFeePct: 0.03,
		ReservesPerUnit:  240,
	}
}

func testBase() projection.BaseYear {
	return projection.BaseYear{
		MonthlyGrossPotentialRent: 100000,
		MonthlyOtherIncome:        2000,
		MonthlyOperatingExpenses:  30000,
		UnitCount:                 100,
	}
}

func TestProject_FirstMonth(t *testing.T) {
	series, err := projection.NewProjector(testAssumptions()).Project(testBase())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := series.Validate(); err != nil {
		t.Fatalf("projected series does not validate: %v", err)
	}
	if len(series.Months) != 24 {
		t.Fatalf("expected 24 months, got %d", len(series.Months))
	}

	m := series.Months[0]
	if !m.Month.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month not anchored to first of month: %v", m.Month)
	}
	// GPR 100,000 - vacancy 5,000 - credit 950 + other 2,000
	if !approx(m.EffectiveGrossIncome(), 96050) {
		t.Errorf("EGI: expected 96050, got %.2f", m.EffectiveGrossIncome())
	}
	if !approx(m.ManagementFee, 2881.5) {
		t.Errorf("management fee: expected 2881.50, got %.2f", m.ManagementFee)
	}
	if !approx(m.ReplacementReserves, 2000) {
		t.Errorf("reserves: expected 2000, got %.2f", m.ReplacementReserves)
	}
	if m.HasRenovation() {
		t.Error("no renovation program, no renovation lines")
	}
}

func TestProject_GrowthStepsAtFiscalYear(t *testing.T) {
	series, err := projection.NewProjector(testAssumptions()).Project(testBase())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !approx(series.Months[11].GrossPotentialRent, 100000) {
		t.Errorf("month 12 should not be escalated, got %.2f", series.Months[11].GrossPotentialRent)
	}
	if !approx(series.Months[12].GrossPotentialRent, 103000) {
		t.Errorf("month 13 GPR: expected 103000, got %.2f", series.Months[12].GrossPotentialRent)
	}
	if !approx(series.Months[12].BaseOperatingExpenses, 30600) {
		t.Errorf("month 13 opex: expected 30600, got %.2f", series.Months[12].BaseOperatingExpenses)
	}
}

func TestProject_TerminalIsYearAfterHold(t *testing.T) {
	series, err := projection.NewProjector(testAssumptions()).Project(testBase())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Terminal == nil {
		t.Fatal("terminal projection missing")
	}
	if series.Terminal.FiscalYear != 3 {
		t.Errorf("terminal fiscal year: expected 3, got %d", series.Terminal.FiscalYear)
	}
	expected := 12 * 100000 * 1.03 * 1.03
	if !approx(series.Terminal.GrossPotentialRent, expected) {
		t.Errorf("terminal GPR: expected %.2f, got %.2f", expected, series.Terminal.GrossPotentialRent)
	}
}

func TestProject_RenovationSchedule(t *testing.T) {
	base := testBase()
	base.Renovation = &projection.RenovationProgram{
		StartMonth:        3,
		UnitsPerMonth:     10,
		TotalUnits:        20,
		DowntimeMonths:    2,
		PremiumPerUnit:    100,
		CapexPerUnit:      5000,
		RelocationPerUnit: 500,
	}
	series, err := projection.NewProjector(testAssumptions()).Project(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		month      int
		renoVac    float64
		premium    float64
		capex      float64
		relocation float64
	}{
		{2, 0, 0, 0, 0},
		{3, 10000, 0, 50000, 5000},
		{4, 20000, 0, 50000, 5000},
		{5, 10000, 1000, 0, 0},
		{6, 0, 2000, 0, 0},
	}
	for _, tt := range tests {
		m := series.Months[tt.month-1]
		if !approx(getF(m.RenovationVacancyLoss), tt.renoVac) {
			t.Errorf("month %d renovation vacancy: expected %.0f, got %.2f", tt.month, tt.renoVac, getF(m.RenovationVacancyLoss))
		}
		if !approx(getF(m.RenovationRentPremium), tt.premium) {
			t.Errorf("month %d premium: expected %.0f, got %.2f", tt.month, tt.premium, getF(m.RenovationRentPremium))
		}
		if !approx(getF(m.RenovationCapex), tt.capex) {
			t.Errorf("month %d capex: expected %.0f, got %.2f", tt.month, tt.capex, getF(m.RenovationCapex))
		}
		if !approx(getF(m.RelocationCost), tt.relocation) {
			t.Errorf("month %d relocation: expected %.0f, got %.2f", tt.month, tt.relocation, getF(m.RelocationCost))
		}
	}

	// Overlay is already inside GPR and vacancy.
	m6 := series.Months[5]
	if !approx(m6.GrossPotentialRent, 102000) {
		t.Errorf("month 6 GPR should include the premium, got %.2f", m6.GrossPotentialRent)
	}
	m3 := series.Months[2]
	if !approx(m3.VacancyLoss, 15000) {
		t.Errorf("month 3 vacancy should include renovation downtime, got %.2f", m3.VacancyLoss)
	}
}

func TestProject_Errors(t *testing.T) {
	a := testAssumptions()
	a.StartDate = time.Time{}
	if _, err := projection.NewProjector(a).Project(testBase()); err == nil {
		t.Error("expected error without start date")
	}

	a = testAssumptions()
	a.VacancyRate = 1.5
	if _, err := projection.NewProjector(a).Project(testBase()); err == nil {
		t.Error("expected error for invalid assumptions")
	}

	base := testBase()
	base.Renovation = &projection.RenovationProgram{StartMonth: 1, UnitsPerMonth: 10, TotalUnits: 500}
	if _, err := projection.NewProjector(testAssumptions()).Project(base); err == nil {
		t.Error("expected error when renovation exceeds unit count")
	}

	base = testBase()
	base.UnitCount = 0
	if _, err := projection.NewProjector(testAssumptions()).Project(base); err == nil {
		t.Error("expected error: reserves need a unit count")
	}
}

func TestProject_GrowthSchedule(t *testing.T) {
	base := testBase()
	base.IncomeGrowthSchedule = []float64{0.10}

	series, err := projection.NewProjector(testAssumptions()).Project(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !approx(series.Months[12].GrossPotentialRent, 110000) {
		t.Errorf("month 13 GPR: expected 110000, got %.2f", series.Months[12].GrossPotentialRent)
	}
	// expenses keep the flat assumption rate
	if !approx(series.Months[12].BaseOperatingExpenses, 30600) {
		t.Errorf("month 13 opex: expected 30600, got %.2f", series.Months[12].BaseOperatingExpenses)
	}
	// last rate repeats into the terminal year
	if !approx(series.Terminal.GrossPotentialRent, 12*100000*1.1*1.1) {
		t.Errorf("terminal GPR: expected %.2f, got %.2f", 12*100000*1.1*1.1, series.Terminal.GrossPotentialRent)
	}
}

func TestProject_InvalidGrowthSchedule(t *testing.T) {
	base := testBase()
	base.ExpenseGrowthSchedule = []float64{0.02, -1}
	if _, err := projection.NewProjector(testAssumptions()).Project(base); err == nil {
		t.Error("expected error for a -100% growth step")
	}
}
