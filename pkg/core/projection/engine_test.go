package projection

import (
	"math"
	"reit_valuation/pkg/core/statement"
	"reit_valuation/pkg/core/trend"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatHistory(n int) statement.Series {
	start := time.Date(2022, 3, 31, 0, 0, 0, 0, time.UTC)
	s := make(statement.Series, n)
	for i := range s {
		s[i] = statement.Record{
			Date: AddMonths(start, 3*i),
			Fields: map[string]float64{
				statement.FieldNetIncome:                10,
				statement.FieldDepreciationAmortization: 2,
				statement.FieldInvestingCashFlow:        -1,
				statement.FieldRevenue:                  50,
				statement.FieldTotalAssets:              1000,
			},
			Meta: map[string]string{"symbol": "O", "period": "Q"},
		}
	}
	return s
}

func derived(rate float64) trend.GrowthModel {
	return trend.GrowthModel{
		statement.FieldNetIncome:                rate,
		statement.FieldDepreciationAmortization: rate,
		statement.FieldInvestingCashFlow:        rate,
		statement.FieldRevenue:                  rate,
	}
}

func TestProjectHorizonZeroIsIdentity(t *testing.T) {
	s := flatHistory(5)
	est, err := trend.Compute(s, statement.FieldTotalAssets, trend.ModeRaw)
	require.NoError(t, err)

	out, plan, err := NewProjector().Project(s, est, derived(0.05), Options{Horizon: 0})
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.Equal(t, s, out)
}

func TestProjectCompounds(t *testing.T) {
	s := flatHistory(5)
	est, err := trend.Compute(s, statement.FieldTotalAssets, trend.ModeRaw)
	require.NoError(t, err)

	out, plan, err := NewProjector().Project(s, est, derived(0.05), Options{Horizon: 4})
	require.NoError(t, err)
	require.Len(t, out, 9)
	require.Len(t, plan, 4)

	wantDates := []string{"2023-06-30", "2023-09-30", "2023-12-31", "2024-03-31"}
	for i := 1; i <= 4; i++ {
		rec := out[4+i]
		assert.True(t, rec.Projected)
		assert.Equal(t, wantDates[i-1], rec.Date.Format(statement.DateLayout))
		// 1% of assets compounded at 5% a quarter
		assert.InDelta(t, 10*math.Pow(1.05, float64(i)), rec.Fields[statement.FieldNetIncome], 1e-9)
		assert.Equal(t, 1000.0, rec.Fields[statement.FieldTotalAssets], "scale metric held constant")
		assert.Equal(t, "O", rec.Meta["symbol"])
	}

	t.Run("input untouched", func(t *testing.T) {
		assert.Len(t, s, 5)
		for _, r := range s {
			assert.False(t, r.Projected)
		}
	})

	t.Run("truncating recovers the input", func(t *testing.T) {
		assert.Equal(t, s, out[:len(out)-4])
	})

	t.Run("shorter horizon is a prefix", func(t *testing.T) {
		one, _, err := NewProjector().Project(s, est, derived(0.05), Options{Horizon: 1})
		require.NoError(t, err)
		assert.Equal(t, out[:6], one)
	})
}

func TestPlanOverridePrecedence(t *testing.T) {
	s := flatHistory(5)
	est, err := trend.Compute(s, statement.FieldTotalAssets, trend.ModeRaw)
	require.NoError(t, err)
	p := NewProjector()

	find := func(plan []GrowthStrategy, metric string) GrowthStrategy {
		for _, gs := range plan {
			if gs.Metric == metric {
				return gs
			}
		}
		t.Fatalf("no strategy for %s", metric)
		return GrowthStrategy{}
	}

	tests := []struct {
		name       string
		opts       Options
		wantFactor float64
		wantSource RateSource
	}{
		{"derived only", Options{Horizon: 1}, 1.05, SourceDerived},
		{"override ignored without allow input", Options{Horizon: 1, Overrides: Overrides{statement.FieldNetIncome: 40}}, 1.05, SourceDerived},
		{"override of 20% a year", Options{Horizon: 1, AllowInput: true, Overrides: Overrides{statement.FieldNetIncome: 20}}, 1.05, SourceOverride},
		{"override of 40% a year", Options{Horizon: 1, AllowInput: true, Overrides: Overrides{statement.FieldNetIncome: 40}}, 1.10, SourceOverride},
		{"override at the floor", Options{Horizon: 1, AllowInput: true, Overrides: Overrides{statement.FieldNetIncome: -100}}, 0.75, SourceOverride},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.Plan(est, derived(0.05), tt.opts)
			require.NoError(t, err)
			gs := find(plan, statement.FieldNetIncome)
			assert.InDelta(t, tt.wantFactor, gs.Factor(), 1e-12)
			assert.Equal(t, tt.wantSource, gs.Source)
		})
	}
}

func TestProjectErrors(t *testing.T) {
	s := flatHistory(5)
	est, err := trend.Compute(s, statement.FieldTotalAssets, trend.ModeRaw)
	require.NoError(t, err)
	p := NewProjector()

	t.Run("override below floor", func(t *testing.T) {
		_, _, err := p.Project(s, est, derived(0), Options{Horizon: 1, AllowInput: true, Overrides: Overrides{statement.FieldRevenue: -150}})
		assert.Error(t, err)
	})

	t.Run("negative horizon", func(t *testing.T) {
		_, _, err := p.Project(s, est, derived(0), Options{Horizon: -1})
		assert.Error(t, err)
	})

	t.Run("missing growth rate", func(t *testing.T) {
		g := derived(0)
		delete(g, statement.FieldRevenue)
		_, _, err := p.Project(s, est, g, Options{Horizon: 1})
		assert.ErrorIs(t, err, statement.ErrInsufficientHistory)

		_, _, err = p.Project(s, est, g, Options{Horizon: 1, AllowInput: true, Overrides: Overrides{statement.FieldRevenue: 3}})
		assert.NoError(t, err)
	})

	t.Run("zero scale at the last period", func(t *testing.T) {
		z := flatHistory(5)
		z[4].Fields[statement.FieldTotalAssets] = 0
		zest, err := trend.Compute(z, statement.FieldTotalAssets, trend.ModeRaw)
		require.NoError(t, err)
		_, _, err = p.Project(z, zest, derived(0), Options{Horizon: 1})
		assert.ErrorIs(t, err, statement.ErrDivisionUndefined)
	})
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"2023-03-31", 3, "2023-06-30"},
		{"2023-06-30", 3, "2023-09-30"},
		{"2023-11-30", 3, "2024-02-29"},
		{"2023-11-30", 6, "2024-05-30"},
		{"2023-12-31", 12, "2024-12-31"},
		{"2024-01-15", -1, "2023-12-15"},
	}
	for _, tt := range tests {
		in, err := statement.ParseDate(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, AddMonths(in, tt.n).Format(statement.DateLayout), "%s + %d", tt.in, tt.n)
	}
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides(`
		# annualized growth, percent
		netIncome: 8
		revenue: -2.5
	`)
	require.NoError(t, err)
	assert.Equal(t, Overrides{"netIncome": 8, "revenue": -2.5}, o)

	_, err = ParseOverrides(`{netIncome: -120}`)
	assert.Error(t, err)

	_, err = ParseOverrides(`{netIncome: "lots"}`)
	assert.Error(t, err)
}
