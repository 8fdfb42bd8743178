package aggregate

// Period is one output column.
type Period struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	SourceIDs []string `json:"source_ids,omitempty"`
	// IsReference marks illustrative columns (the terminal year) that never
	// contribute to totals.
	IsReference bool `json:"is_reference,omitempty"`
}

// Row is one line item: a value per period id plus the explicit total.
// A missing or nil value means "no value" for that column.
type Row struct {
	Key    string              `json:"key"`
	Label  string              `json:"label"`
	Rule   Rule                `json:"rule"`
	Values map[string]*float64 `json:"values"`
	Total  *float64            `json:"total,omitempty"`
}

// Value returns the row's value for a period and whether it is present.
func (r *Row) Value(periodID string) (float64, bool) {
	v, ok := r.Values[periodID]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Section groups related rows (revenue, expenses, NOI ...).
type Section struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Rows  []*Row `json:"rows"`
}

// Grid is the aggregated view of a series.
type Grid struct {
	Scale           Scale      `json:"scale"`
	Periods         []Period   `json:"periods"`
	Sections        []*Section `json:"sections"`
	ShowTotalColumn bool       `json:"show_total_column"`
}

// Row finds a row by key across all sections.
func (g *Grid) Row(key string) *Row {
	for _, s := range g.Sections {
		for _, r := range s.Rows {
			if r.Key == key {
				return r
			}
		}
	}
	return nil
}

// Section finds a section by key.
func (g *Grid) Section(key string) *Section {
	for _, s := range g.Sections {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// Period finds a period by id.
func (g *Grid) Period(id string) (Period, bool) {
	for _, p := range g.Periods {
		if p.ID == id {
			return p, true
		}
	}
	return Period{}, false
}

// HoldPeriods returns the non-reference periods.
func (g *Grid) HoldPeriods() []Period {
	out := make([]Period, 0, len(g.Periods))
	for _, p := range g.Periods {
		if !p.IsReference {
			out = append(out, p)
		}
	}
	return out
}
