// Package projection extends a statement series with synthetic quarters by
// compounding each tracked metric's share of the scale metric.
package projection

import (
	"fmt"
	"math"
)

// GrowthStrategy compounds a metric's share of the scale metric at a fixed
// per-period rate.
// Formula: Share(t+i) = Share(t) * (1 + Rate)^i
type GrowthStrategy struct {
	Metric    string     `json:"metric"`
	Rate      float64    `json:"rate"` // per quarter, e.g. 0.05 for 5%
	Source    RateSource `json:"source"`
	LastShare float64    `json:"last_share"`
}

// Name identifies the strategy in reports.
func (s GrowthStrategy) Name() string { return "CompoundGrowth" }

// Factor is the per-period multiplier.
func (s GrowthStrategy) Factor() float64 { return 1 + s.Rate }

// AnnualizedPct restates Rate the way overrides are entered.
func (s GrowthStrategy) AnnualizedPct() float64 { return s.Rate * 4 * 100 }

// ShareAt returns the projected share after step periods.
func (s GrowthStrategy) ShareAt(step int) float64 {
	return math.Pow(s.Factor(), float64(step)) * s.LastShare
}

// Calculate converts the share after step periods into a line-item value.
func (s GrowthStrategy) Calculate(step int, scaleValue float64) (float64, error) {
	if step < 1 {
		return 0, fmt.Errorf("GrowthStrategy step must be positive, got %d", step)
	}
	return s.ShareAt(step) * scaleValue / 100, nil
}

// overrideRate converts an annualized percentage to a per-period fraction.
func overrideRate(pct float64) float64 {
	return pct / 100 / 4
}
