package valuation

import (
	"errors"
	"fmt"
	"math"

	"income_valuation/pkg/core/projection"
)

// Basis names an underwriting scenario for Year-1 NOI.
type Basis string

const (
	BasisCurrent    Basis = "current"    // in-place rents, physical vacancy
	BasisMarket     Basis = "market"     // market rents, physical vacancy
	BasisStabilized Basis = "stabilized" // market rents, stabilized vacancy
)

// BasisInput is one basis' own Year-1 statement. Bases never share a statement,
// so a change to one basis' vacancy cannot leak into another.
type BasisInput struct {
	Basis Basis                `json:"basis"`
	Label string               `json:"label,omitempty"`
	Year1 projection.Statement `json:"year1"`
}

// ValueTile is the capitalized valuation of one basis. Nil metrics are
// unavailable; Unavailable says why, keyed by metric name.
type ValueTile struct {
	Basis            Basis             `json:"basis"`
	Label            string            `json:"label,omitempty"`
	EGI              float64           `json:"egi"`
	NOI              float64           `json:"noi"`
	CapRate          *float64          `json:"cap_rate"`
	CapitalizedValue *float64          `json:"capitalized_value"`
	PricePerUnit     *float64          `json:"price_per_unit"`
	PricePerArea     *float64          `json:"price_per_area"`
	Unavailable      map[string]string `json:"unavailable,omitempty"`
}

// Available reports whether the capitalized value resolved.
func (t ValueTile) Available() bool { return t.CapitalizedValue != nil }

func (t *ValueTile) markUnavailable(metric, reason string) {
	if t.Unavailable == nil {
		t.Unavailable = make(map[string]string)
	}
	t.Unavailable[metric] = reason
}

// ValuateBases capitalizes each basis' Year-1 NOI at its own cap rate. A zero,
// negative or missing cap rate leaves that basis unavailable without affecting
// the others. Only an empty or duplicated basis list is an error.
func ValuateBases(inputs []BasisInput, capRates map[Basis]float64, property projection.PropertySummary) ([]ValueTile, error) {
	if len(inputs) == 0 {
		return nil, errors.New("valuate bases: no bases supplied")
	}
	seen := make(map[Basis]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Basis == "" {
			return nil, errors.New("valuate bases: basis without a name")
		}
		if _, dup := seen[in.Basis]; dup {
			return nil, fmt.Errorf("valuate bases: duplicate basis %q", in.Basis)
		}
		seen[in.Basis] = struct{}{}
	}

	tiles := make([]ValueTile, 0, len(inputs))
	for _, in := range inputs {
		rate, ok := capRates[in.Basis]
		var ratePtr *float64
		if ok {
			ratePtr = &rate
		}
		tiles = append(tiles, valuateBasis(in, ratePtr, property))
	}
	return tiles, nil
}

func valuateBasis(in BasisInput, capRate *float64, property projection.PropertySummary) ValueTile {
	st := in.Year1
	tile := ValueTile{
		Basis: in.Basis,
		Label: in.Label,
		EGI:   st.EffectiveGrossIncome(),
		NOI:   st.NOI(),
	}
	if capRate != nil {
		r := *capRate
		tile.CapRate = &r
	}

	value, err := capitalize(tile.NOI, capRate)
	if err != nil {
		tile.markUnavailable("capitalized_value", err.Error())
		tile.markUnavailable("price_per_unit", "capitalized value unavailable")
		tile.markUnavailable("price_per_area", "capitalized value unavailable")
		return tile
	}
	tile.CapitalizedValue = &value

	if ppu, ok := perUnit(value, property); ok {
		tile.PricePerUnit = &ppu
	} else {
		tile.markUnavailable("price_per_unit", "unit count is zero")
	}
	if ppa, ok := perArea(value, property); ok {
		tile.PricePerArea = &ppa
	} else {
		tile.markUnavailable("price_per_area", "total area is zero")
	}
	return tile
}

// capitalize returns noi / rate, refusing degenerate rates.
func capitalize(noi float64, rate *float64) (float64, error) {
	switch {
	case rate == nil:
		return 0, fmt.Errorf("%w: cap rate missing", ErrZeroRate)
	case math.IsNaN(*rate) || math.IsInf(*rate, 0):
		return 0, fmt.Errorf("%w: cap rate is not finite", ErrNonPositiveRate)
	case *rate == 0:
		return 0, fmt.Errorf("%w: cap rate is zero", ErrZeroRate)
	case *rate < 0:
		return 0, fmt.Errorf("%w: cap rate %v", ErrNonPositiveRate, *rate)
	}
	return noi / *rate, nil
}

func perUnit(value float64, p projection.PropertySummary) (float64, bool) {
	if p.UnitCount <= 0 {
		return 0, false
	}
	return value / float64(p.UnitCount), true
}

func perArea(value float64, p projection.PropertySummary) (float64, bool) {
	if p.TotalArea <= 0 || math.IsNaN(p.TotalArea) {
		return 0, false
	}
	return value / p.TotalArea, true
}
