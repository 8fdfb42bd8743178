package valuation

import (
	"errors"
	"math"
)

var (
	// ErrZeroRate marks a metric left unavailable by a zero or missing rate.
	ErrZeroRate = errors.New("rate is zero or missing")
	// ErrNonPositiveRate marks a rate below zero, or a sensitivity cell whose
	// substituted rate is not positive.
	ErrNonPositiveRate = errors.New("rate is not positive")
)

// IRRStatus distinguishes a solved IRR from the shapes that have none.
type IRRStatus string

const (
	IRRSolved        IRRStatus = "solved"
	IRRNoSignChange  IRRStatus = "no_sign_change"
	IRRNoConvergence IRRStatus = "no_convergence"
	// IRRUnavailable means the flows could not be built, e.g. no net reversion.
	IRRUnavailable   IRRStatus = "unavailable"
)

// IRROptions tunes the root finder.
type IRROptions struct {
	Tolerance     float64 `yaml:"tolerance" json:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
}

// DefaultIRROptions is used when no options are configured.
var DefaultIRROptions = IRROptions{Tolerance: 1e-10, MaxIterations: 300}

// bracket points scanned, in order, for the first sign change of NPV.
var irrBrackets = []float64{-0.9999, -0.9, -0.5, -0.25, -0.1, 0, 0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 100}

// NPV discounts flows at a periodic rate; flows[0] is undiscounted (t = 0).
func NPV(rate float64, flows []float64) float64 {
	npv := 0.0
	df := 1.0
	for t, cf := range flows {
		if t > 0 {
			df /= 1 + rate
		}
		npv += cf * df
	}
	return npv
}

// SolveIRR finds the periodic rate where NPV(flows) = 0. A cash-flow series
// without both an inflow and an outflow has no real IRR and reports
// IRRNoSignChange instead of guessing.
func SolveIRR(flows []float64, opts IRROptions) (float64, IRRStatus) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultIRROptions.Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultIRROptions.MaxIterations
	}

	// 1. Sign change
	var pos, neg bool
	for _, cf := range flows {
		if cf > 0 {
			pos = true
		} else if cf < 0 {
			neg = true
		}
	}
	if !pos || !neg {
		return 0, IRRNoSignChange
	}

	// 2. Bracket
	lo, hi := math.NaN(), math.NaN()
	prevRate := irrBrackets[0]
	prevNPV := NPV(prevRate, flows)
	for _, r := range irrBrackets[1:] {
		v := NPV(r, flows)
		if prevNPV == 0 {
			return prevRate, IRRSolved
		}
		if !math.IsNaN(v) && !math.IsInf(v, 0) && !math.IsInf(prevNPV, 0) && (v < 0) != (prevNPV < 0) {
			lo, hi = prevRate, r
			break
		}
		prevRate, prevNPV = r, v
	}
	if math.IsNaN(lo) {
		if prevNPV == 0 {
			return prevRate, IRRSolved
		}
		return 0, IRRNoConvergence
	}

	// 3. Bisection; deterministic for identical inputs.
	fLo := NPV(lo, flows)
	for i := 0; i < opts.MaxIterations; i++ {
		mid := lo + (hi-lo)/2
		fMid := NPV(mid, flows)
		if fMid == 0 || (hi-lo)/2 < opts.Tolerance {
			return mid, IRRSolved
		}
		if (fMid < 0) == (fLo < 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return 0, IRRNoConvergence
}
