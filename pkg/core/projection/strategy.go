package projection

import (
	"fmt"
	"math"
)

// Escalation turns a fiscal year into a cumulative growth factor relative to year 1.
// Growth steps at fiscal-year boundaries; months within a year share one factor.
type Escalation interface {
	Name() string
	Factor(fiscalYear int) float64
}

// AnnualEscalation compounds a constant annual rate.
// Factor(n) = (1 + Rate)^(n-1)
type AnnualEscalation struct {
	Rate float64 `json:"rate"`
}

func (e AnnualEscalation) Name() string { return "Annual" }

func (e AnnualEscalation) Factor(fiscalYear int) float64 {
	if fiscalYear <= 1 {
		return 1
	}
	return math.Pow(1+e.Rate, float64(fiscalYear-1))
}

// ScheduleEscalation applies an explicit rate per year transition; Rates[0] is
// the growth from year 1 to year 2. The last rate repeats past the schedule.
type ScheduleEscalation struct {
	Rates []float64 `json:"rates"`
}

func (e ScheduleEscalation) Name() string { return "Schedule" }

func (e ScheduleEscalation) Factor(fiscalYear int) float64 {
	f := 1.0
	for y := 1; y < fiscalYear; y++ {
		f *= 1 + e.rate(y-1)
	}
	return f
}

func (e ScheduleEscalation) rate(i int) float64 {
	if len(e.Rates) == 0 {
		return 0
	}
	if i >= len(e.Rates) {
		return e.Rates[len(e.Rates)-1]
	}
	return e.Rates[i]
}

// Validate rejects schedules that would drive a factor to zero or below.
func (e ScheduleEscalation) Validate() error {
	for i, r := range e.Rates {
		if r <= -1 {
			return fmt.Errorf("escalation rate %d is %v, must be greater than -100%%", i+1, r)
		}
	}
	return nil
}
