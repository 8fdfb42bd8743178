// Package aggregate re-expresses a monthly projection series at quarterly,
// fiscal-annual or whole-hold granularity and appends the terminal reference year.
//
// Bucketing is deliberately asymmetric: quarters follow the calendar, fiscal
// years follow the analysis start date.
package aggregate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedScale is returned for scales an operation does not apply to.
var ErrUnsupportedScale = errors.New("unsupported scale")

// Scale is the target granularity of an aggregation.
type Scale int

const (
	Monthly Scale = iota
	Quarterly
	Annual
	Overall
)

func (s Scale) String() string {
	switch s {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Annual:
		return "annual"
	case Overall:
		return "overall"
	default:
		return fmt.Sprintf("scale(%d)", int(s))
	}
}

// MarshalText encodes the scale by name.
func (s Scale) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts any name ParseScale does.
func (s *Scale) UnmarshalText(b []byte) error {
	v, err := ParseScale(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseScale accepts the scale name or a common synonym.
func ParseScale(v string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "annual", "annually", "yearly", "year", "fiscal":
		return Annual, nil
	case "overall", "total":
		return Overall, nil
	default:
		return Monthly, fmt.Errorf("%w: %q", ErrUnsupportedScale, v)
	}
}

// Rule is how source values combine inside a bucket.
type Rule int

const (
	// Sum is the rule for flows: money amounts and counts.
	Sum Rule = iota
	// Average is the rule for ratios such as the PV factor.
	Average
)

func (r Rule) String() string {
	if r == Average {
		return "average"
	}
	return "sum"
}

// MarshalText encodes the rule by name.
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes "sum" or "average".
func (r *Rule) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "sum":
		*r = Sum
	case "average":
		*r = Average
	default:
		return fmt.Errorf("unknown rule %q", string(b))
	}
	return nil
}
