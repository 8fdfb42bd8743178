package main

import (
	"errors"

	"income_valuation/pkg/core/assumption"
	"income_valuation/pkg/core/logging"
	"income_valuation/pkg/core/projection"
	"income_valuation/pkg/core/utils"
	"income_valuation/pkg/core/valuation"
)

// inputDoc is the document every subcommand reads. Either Series or BaseYear
// must be present; a base year is projected forward with the assumptions.
type inputDoc struct {
	Property      projection.PropertySummary  `json:"property"`
	Assumptions   assumption.Assumptions      `json:"assumptions"`
	Series        *projection.Series          `json:"series,omitempty"`
	BaseYear      *projection.BaseYear        `json:"base_year,omitempty"`
	Bases         []valuation.BasisInput      `json:"bases,omitempty"`
	CapRates      map[valuation.Basis]float64 `json:"cap_rates,omitempty"`
	SelectedBasis valuation.Basis             `json:"selected_basis,omitempty"`
}

func (a *app) loadInput(data []byte) (*inputDoc, error) {
	var doc inputDoc
	format, err := utils.Decode(data, &doc, a.opts.Lenient)
	if err != nil {
		return nil, err
	}
	if format != utils.FormatJSON {
		a.logger.Info("input decoded leniently", logging.String("format", string(format)))
	}
	if doc.Assumptions.DiscountRateStep == 0 {
		doc.Assumptions.DiscountRateStep = a.cfg.Engine.Sensitivity.DiscountRateStep
	}
	if doc.Assumptions.CapRateStep == 0 {
		doc.Assumptions.CapRateStep = a.cfg.Engine.Sensitivity.CapRateStep
	}
	doc.Assumptions = doc.Assumptions.WithDefaults()
	return &doc, nil
}

// series returns the supplied series, or projects one from the base year.
func (a *app) series(doc *inputDoc) (*projection.Series, error) {
	if doc.Series != nil {
		return doc.Series, nil
	}
	if doc.BaseYear == nil {
		return nil, errors.New("input needs either series or base_year")
	}
	if doc.BaseYear.UnitCount == 0 {
		doc.BaseYear.UnitCount = doc.Property.UnitCount
	}
	s, err := projection.NewProjector(doc.Assumptions).Project(*doc.BaseYear)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("series projected from base year", logging.Int("months", len(s.Months)))
	return s, nil
}

func (a *app) dcfInput(doc *inputDoc, series *projection.Series) valuation.DCFInput {
	opts := a.cfg.Engine.RunnerOptions()
	return valuation.DCFInput{
		Series:          series,
		DiscountRate:    doc.Assumptions.DiscountRate,
		TerminalCapRate: doc.Assumptions.TerminalCapRate,
		SellingCostsPct: doc.Assumptions.SellingCostsPct,
		PurchasePrice:   doc.Assumptions.PurchasePrice,
		Property:        doc.Property,
		Frequency:       opts.Frequency,
		IRR:             opts.IRR,
	}
}
