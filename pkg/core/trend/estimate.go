// Package trend normalizes tracked line items as a share of a scale metric
// and derives per-period growth rates from how those shares move.
package trend

import (
	"fmt"
	"reit_valuation/pkg/core/calc"
	"reit_valuation/pkg/core/statement"
	"strings"
	"time"
)

// Mode selects how line items are aggregated before normalization.
type Mode string

const (
	// ModeTTM sums trailing four quarters, normalizes, then smooths with a four-quarter mean.
	ModeTTM Mode = "ttm"
	// ModeRaw normalizes single-quarter values and measures year-over-year change.
	ModeRaw Mode = "raw"
)

// ParseMode accepts "ttm" or "raw", case-insensitively; empty means ModeTTM.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTTM:
		return ModeTTM, nil
	case ModeRaw:
		return ModeRaw, nil
	}
	return "", fmt.Errorf("unknown trend mode %q (want ttm or raw)", s)
}

// GrowthModel maps a metric to its per-period fractional growth rate.
type GrowthModel map[string]float64

// Estimate holds each tracked metric as a percentage of the scale metric,
// aligned to the dates of the series it was computed from.
type Estimate struct {
	Mode        Mode                 `json:"mode"`
	ScaleMetric string               `json:"scale_metric"`
	Metrics     []string             `json:"metrics"`
	Dates       []time.Time          `json:"dates"`
	Shares      map[string][]float64 `json:"-"`

	base []float64
}

// Compute builds the share table for the actual periods of s.
func Compute(s statement.Series, scaleMetric string, mode Mode) (*Estimate, error) {
	s = s.Actual()
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: no actual periods", statement.ErrInsufficientHistory)
	}
	if scaleMetric == "" {
		scaleMetric = statement.FieldTotalAssets
	}

	metrics := append([]string{}, statement.TrackedMetrics...)
	if !contains(metrics, scaleMetric) {
		metrics = append(metrics, scaleMetric)
	}
	for _, m := range metrics {
		if !s.Has(m) {
			return nil, fmt.Errorf("%w: %s absent from every period", statement.ErrMissingField, m)
		}
	}

	base := s.Column(scaleMetric)
	if mode == ModeTTM {
		base = calc.RollingSum(base, calc.QuartersPerYear)
	}

	est := &Estimate{
		Mode:        mode,
		ScaleMetric: scaleMetric,
		Metrics:     metrics,
		Dates:       s.Dates(),
		Shares:      make(map[string][]float64, len(metrics)),
		base:        base,
	}
	columns := make(map[string][]float64, len(metrics))
	for _, m := range metrics {
		col := s.Column(m)
		if mode == ModeTTM {
			col = calc.RollingSum(col, calc.QuartersPerYear)
		}
		columns[m] = col
	}
	for m, share := range calc.CommonSizeTable(columns, base) {
		if mode == ModeTTM {
			share = calc.RollingMean(share, calc.QuartersPerYear)
		}
		est.Shares[m] = share
	}
	return est, nil
}

// LastShare returns metric's share at the last actual period.
func (e *Estimate) LastShare(metric string) (float64, error) {
	share, ok := e.Shares[metric]
	if !ok || len(share) == 0 {
		return 0, fmt.Errorf("%w: no share column for %s", statement.ErrMissingField, metric)
	}
	last := len(share) - 1
	if calc.IsDefined(share[last]) {
		return share[last], nil
	}

	span := 1
	if e.Mode == ModeTTM {
		span = calc.QuartersPerYear
	}
	for i := last; i >= 0 && i > last-span; i-- {
		if e.base[i] == 0 {
			return 0, fmt.Errorf("%w: %s is zero near %s", statement.ErrDivisionUndefined,
				e.ScaleMetric, e.Dates[i].Format(statement.DateLayout))
		}
	}
	return 0, fmt.Errorf("%w: %s share undefined at %s", statement.ErrInsufficientHistory,
		metric, e.Dates[last].Format(statement.DateLayout))
}

// Growth derives per-period growth for every metric except the scale metric.
// TTM mode smooths quarter-over-quarter change with a four-quarter mean;
// raw mode takes year-over-year change and spreads it over four quarters.
// Metrics without a defined rate are left out.
func (e *Estimate) Growth() GrowthModel {
	model := GrowthModel{}
	for _, m := range e.Metrics {
		if m == e.ScaleMetric {
			continue
		}
		var g []float64
		switch e.Mode {
		case ModeRaw:
			g = calc.PctChange(e.Shares[m], calc.QuartersPerYear)
		default:
			g = calc.RollingMean(calc.PctChange(e.Shares[m], 1), calc.QuartersPerYear)
		}
		rate, _, ok := calc.LastValid(g)
		if !ok {
			continue
		}
		if e.Mode == ModeRaw {
			rate /= calc.QuartersPerYear
		}
		model[m] = rate
	}
	return model
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
