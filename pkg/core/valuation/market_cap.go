package valuation

import (
	"errors"
	"fmt"
	"reit_valuation/pkg/core/statement"
	"sort"
	"time"
)

// ErrNoMarketCap is returned when there is no observation to select from.
var ErrNoMarketCap = errors.New("no market capitalization data")

// Observation is one dated market capitalization reading.
type Observation struct {
	Date      time.Time `json:"date"`
	MarketCap float64   `json:"marketCap"`
}

// MarketCapSeries holds observations in any order; selection sorts a copy.
type MarketCapSeries []Observation

// Sorted returns a copy ordered by ascending date, preserving input order on ties.
func (m MarketCapSeries) Sorted() MarketCapSeries {
	out := make(MarketCapSeries, len(m))
	copy(out, m)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SelectMarketCap picks the observation to value a period against. For the
// latest period it is the most recent observation; otherwise the observation
// nearest to date, with ties going to the earlier one.
func SelectMarketCap(caps MarketCapSeries, date time.Time, latestPeriod bool) (Observation, error) {
	if len(caps) == 0 {
		return Observation{}, ErrNoMarketCap
	}
	sorted := caps.Sorted()

	if latestPeriod {
		last := sorted[len(sorted)-1]
		// first observation carrying the max date
		for _, o := range sorted {
			if o.Date.Equal(last.Date) {
				return o, nil
			}
		}
	}

	best := sorted[0]
	bestDist := absDuration(best.Date.Sub(date))
	for _, o := range sorted[1:] {
		if d := absDuration(o.Date.Sub(date)); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best, nil
}

// PriceToFFO divides market capitalization by FFO.
func PriceToFFO(marketCap, ffo float64) (float64, error) {
	if ffo == 0 {
		return 0, fmt.Errorf("%w: FFO is zero", statement.ErrDivisionUndefined)
	}
	return marketCap / ffo, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
