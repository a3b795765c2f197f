// Package statement holds the quarterly statement records shared by every
// stage of the FFO engine, and the merger that aligns the three provider
// fragments into one series.
package statement

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Field names use the data provider's spelling, including its typo in the
// investing cash flow key.
const (
	FieldNetIncome                = "netIncome"
	FieldDepreciationAmortization = "depreciationAndAmortization"
	FieldInvestingCashFlow        = "netCashUsedForInvestingActivites"
	FieldRevenue                  = "revenue"
	FieldTotalAssets              = "totalAssets"
)

// TrackedMetrics are the line items the trend estimator and projector carry forward.
var TrackedMetrics = []string{
	FieldNetIncome,
	FieldDepreciationAmortization,
	FieldInvestingCashFlow,
	FieldRevenue,
	FieldTotalAssets,
}

// DateLayout is the provider's period-end date format.
const DateLayout = "2006-01-02"

// ParseDate parses a period-end date and normalizes it to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period date %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Record is one fiscal quarter of line items.
type Record struct {
	Date      time.Time          `json:"date"`
	Fields    map[string]float64 `json:"fields"`
	Meta      map[string]string  `json:"meta,omitempty"`
	Projected bool               `json:"projected"`
}

// Value returns the named line item and whether it is present and finite.
func (r Record) Value(field string) (float64, bool) {
	v, ok := r.Fields[field]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Require returns the named line item or ErrMissingField.
func (r Record) Require(field string) (float64, error) {
	v, ok := r.Value(field)
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", ErrMissingField, field, r.Date.Format(DateLayout))
	}
	return v, nil
}

// Series is a run of records, strictly ascending by date.
type Series []Record

// Validate checks ordering and date uniqueness.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return fmt.Errorf("%w: %s follows %s", ErrUnordered,
				s[i].Date.Format(DateLayout), s[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

// Sorted returns a copy ordered by ascending date.
func (s Series) Sorted() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// IndexOf locates the unique record dated on date's calendar day.
func (s Series) IndexOf(date time.Time) (int, error) {
	target := Day(date)
	idx := -1
	for i, r := range s {
		if Day(r.Date).Equal(target) {
			if idx >= 0 {
				return -1, fmt.Errorf("%w: %s is ambiguous", ErrPeriodNotFound, target.Format(DateLayout))
			}
			idx = i
		}
	}
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrPeriodNotFound, target.Format(DateLayout))
	}
	return idx, nil
}

// Column extracts one field across the series; absent values are NaN.
func (s Series) Column(field string) []float64 {
	col := make([]float64, len(s))
	for i, r := range s {
		if v, ok := r.Value(field); ok {
			col[i] = v
		} else {
			col[i] = math.NaN()
		}
	}
	return col
}

// Has reports whether any record carries field.
func (s Series) Has(field string) bool {
	for _, r := range s {
		if _, ok := r.Value(field); ok {
			return true
		}
	}
	return false
}

// Dates lists the record dates in series order.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, r := range s {
		out[i] = r.Date
	}
	return out
}

// LastActual returns the index of the last record that is not projected.
func (s Series) LastActual() (int, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Projected {
			return i, true
		}
	}
	return -1, false
}

// Actual returns the prefix of the series up to and including the last actual record.
func (s Series) Actual() Series {
	i, ok := s.LastActual()
	if !ok {
		return nil
	}
	return s[:i+1]
}

// Projected returns only the synthetic records.
func (s Series) Projected() Series {
	var out Series
	for _, r := range s {
		if r.Projected {
			out = append(out, r)
		}
	}
	return out
}

// FieldNames returns the union of numeric field names, sorted.
func (s Series) FieldNames() []string {
	seen := map[string]struct{}{}
	for _, r := range s {
		for k := range r.Fields {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// MetaNames returns the union of non-numeric field names, sorted.
func (s Series) MetaNames() []string {
	seen := map[string]struct{}{}
	for _, r := range s {
		for k := range r.Meta {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// SelectablePeriods lists actual period dates newest first, skipping periods
// with fewer than minTrailing quarters of history behind them (inclusive).
func (s Series) SelectablePeriods(minTrailing int) []time.Time {
	var out []time.Time
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Projected || i+1 < minTrailing {
			continue
		}
		out = append(out, s[i].Date)
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
