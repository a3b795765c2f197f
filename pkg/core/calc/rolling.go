package calc

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// QuartersPerYear is the trailing window for TTM sums and smoothing.
const QuartersPerYear = 4

// Undefined marks a value that a window or ratio could not produce.
var Undefined = math.NaN()

// IsDefined reports whether v is a usable number.
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// window returns xs[i-n+1 : i+1] if the window fits and every value is defined.
func window(xs []float64, i, n int) ([]float64, bool) {
	if n <= 0 || i+1 < n {
		return nil, false
	}
	w := xs[i-n+1 : i+1]
	for _, v := range w {
		if !IsDefined(v) {
			return nil, false
		}
	}
	return w, true
}

// RollingSum sums each trailing window of n values. The first n-1 positions,
// and any window containing an undefined value, are undefined.
func RollingSum(xs []float64, n int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		w, ok := window(xs, i, n)
		if !ok {
			out[i] = Undefined
			continue
		}
		out[i] = floats.Sum(w)
	}
	return out
}

// RollingMean averages each trailing window of n values, with the same
// undefined positions as RollingSum.
func RollingMean(xs []float64, n int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		w, ok := window(xs, i, n)
		if !ok {
			out[i] = Undefined
			continue
		}
		out[i] = stat.Mean(w, nil)
	}
	return out
}

// PctChange is the fractional change from lag positions earlier:
// (x[i] - x[i-lag]) / x[i-lag]. A zero base is undefined.
func PctChange(xs []float64, lag int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if lag <= 0 || i < lag {
			out[i] = Undefined
			continue
		}
		base, cur := xs[i-lag], xs[i]
		if !IsDefined(base) || !IsDefined(cur) || base == 0 {
			out[i] = Undefined
			continue
		}
		out[i] = (cur - base) / base
	}
	return out
}

// Ratio divides num by den element-wise and multiplies by scale.
// Positions where den is zero or either side is undefined are undefined.
func Ratio(num, den []float64, scale float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		if i >= len(den) || !IsDefined(num[i]) || !IsDefined(den[i]) || den[i] == 0 {
			out[i] = Undefined
			continue
		}
		out[i] = num[i] / den[i] * scale
	}
	return out
}

// LastValid returns the value and index of the last defined entry.
func LastValid(xs []float64) (float64, int, bool) {
	for i := len(xs) - 1; i >= 0; i-- {
		if IsDefined(xs[i]) {
			return xs[i], i, true
		}
	}
	return 0, -1, false
}
