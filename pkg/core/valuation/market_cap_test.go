package valuation

import (
	"reit_valuation/pkg/core/statement"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestSelectMarketCap(t *testing.T) {
	caps := MarketCapSeries{
		{Date: jan(10), MarketCap: 200},
		{Date: jan(1), MarketCap: 100},
	}

	tests := []struct {
		name   string
		caps   MarketCapSeries
		date   time.Time
		latest bool
		want   float64
	}{
		{"nearest", caps, jan(7), false, 200},
		{"nearest earlier", caps, jan(3), false, 100},
		{"tie goes to earlier", caps, jan(5).Add(12 * time.Hour), false, 100},
		{"latest ignores distance", caps, jan(1), true, 200},
		{"after the last observation", caps, jan(31), false, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectMarketCap(tt.caps, tt.date, tt.latest)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.MarketCap)
		})
	}

	t.Run("input order untouched", func(t *testing.T) {
		assert.Equal(t, jan(10), caps[0].Date)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := SelectMarketCap(nil, jan(1), false)
		assert.ErrorIs(t, err, ErrNoMarketCap)
	})
}

func TestPriceToFFO(t *testing.T) {
	r, err := PriceToFFO(440, 44)
	require.NoError(t, err)
	assert.Equal(t, 10.0, r)

	_, err = PriceToFFO(440, 0)
	assert.ErrorIs(t, err, statement.ErrDivisionUndefined)
}

func TestCombine(t *testing.T) {
	series := statement.Series{
		{Date: jan(1)},
		{Date: jan(10)},
		{Date: jan(20), Projected: true},
	}
	caps := MarketCapSeries{
		{Date: jan(2), MarketCap: 300},
		{Date: jan(9), MarketCap: 440},
		{Date: jan(15), MarketCap: 880},
	}

	t.Run("latest actual period uses most recent cap", func(t *testing.T) {
		v, err := Combine(series, caps, jan(10), 44)
		require.NoError(t, err)
		assert.True(t, v.LatestPeriod)
		assert.Equal(t, 880.0, v.MarketCap)
		assert.Equal(t, 20.0, v.PriceToFFO)
	})

	t.Run("historical period uses nearest cap", func(t *testing.T) {
		v, err := Combine(series, caps, jan(1), 30)
		require.NoError(t, err)
		assert.False(t, v.LatestPeriod)
		assert.Equal(t, jan(2), v.MarketCapDate)
		assert.Equal(t, 10.0, v.PriceToFFO)
	})

	t.Run("zero ffo", func(t *testing.T) {
		_, err := Combine(series, caps, jan(1), 0)
		assert.ErrorIs(t, err, statement.ErrDivisionUndefined)
	})
}
