package valuation

import (
	"reit_valuation/pkg/core/statement"
	"time"
)

// Valuation relates a period's FFO to the market capitalization chosen for it.
type Valuation struct {
	Date          time.Time `json:"date"`
	FFO           float64   `json:"ffo"`
	MarketCap     float64   `json:"market_cap"`
	MarketCapDate time.Time `json:"market_cap_date"`
	PriceToFFO    float64   `json:"price_to_ffo"`
	LatestPeriod  bool      `json:"latest_period"`
}

// Combine selects the market cap for date and computes Price/FFO.
// date counts as the latest period when it is the last actual record of series.
func Combine(series statement.Series, caps MarketCapSeries, date time.Time, ffo float64) (Valuation, error) {
	latest := false
	if i, ok := series.LastActual(); ok {
		latest = statement.Day(series[i].Date).Equal(statement.Day(date))
	}

	obs, err := SelectMarketCap(caps, date, latest)
	if err != nil {
		return Valuation{}, err
	}
	ratio, err := PriceToFFO(obs.MarketCap, ffo)
	if err != nil {
		return Valuation{}, err
	}
	return Valuation{
		Date:          date,
		FFO:           ffo,
		MarketCap:     obs.MarketCap,
		MarketCapDate: obs.Date,
		PriceToFFO:    ratio,
		LatestPeriod:  latest,
	}, nil
}
