package statement

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesIndexOf(t *testing.T) {
	s := Series{
		rec("2023-03-31", nil),
		rec("2023-06-30", nil),
	}

	idx, err := s.IndexOf(day("2023-06-30"))
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = s.IndexOf(day("2023-05-31"))
	assert.ErrorIs(t, err, ErrPeriodNotFound)

	dup := Series{rec("2023-03-31", nil), rec("2023-03-31", nil)}
	_, err = dup.IndexOf(day("2023-03-31"))
	assert.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestSeriesValidate(t *testing.T) {
	ok := Series{rec("2023-03-31", nil), rec("2023-06-30", nil)}
	assert.NoError(t, ok.Validate())

	bad := Series{rec("2023-06-30", nil), rec("2023-03-31", nil)}
	assert.ErrorIs(t, bad.Validate(), ErrUnordered)
	assert.NoError(t, bad.Sorted().Validate())

	dup := Series{rec("2023-03-31", nil), rec("2023-03-31", nil)}
	assert.ErrorIs(t, dup.Validate(), ErrUnordered)
}

func TestSeriesColumn(t *testing.T) {
	s := Series{
		rec("2023-03-31", map[string]float64{FieldNetIncome: 1}),
		rec("2023-06-30", map[string]float64{}),
		rec("2023-09-30", map[string]float64{FieldNetIncome: math.Inf(1)}),
	}
	col := s.Column(FieldNetIncome)
	require.Len(t, col, 3)
	assert.Equal(t, 1.0, col[0])
	assert.True(t, math.IsNaN(col[1]))
	assert.True(t, math.IsNaN(col[2]))

	_, err := s[1].Require(FieldNetIncome)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestSelectablePeriods(t *testing.T) {
	s := Series{
		rec("2022-03-31", nil),
		rec("2022-06-30", nil),
		rec("2022-09-30", nil),
		rec("2022-12-31", nil),
		rec("2023-03-31", nil),
		{Date: day("2023-06-30"), Projected: true},
	}

	got := s.SelectablePeriods(4)
	assert.Equal(t, []string{"2023-03-31", "2022-12-31"}, formatDates(got))
	assert.Len(t, s.SelectablePeriods(1), 5)

	last, ok := s.LastActual()
	require.True(t, ok)
	assert.Equal(t, 4, last)
	assert.Len(t, s.Actual(), 5)
	assert.Len(t, s.Projected(), 1)
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(DateLayout)
	}
	return out
}
