// Package ffo computes Funds From Operations per quarter, over the trailing
// twelve months, and for the final period of a projected series.
package ffo

import (
	"fmt"
	"reit_valuation/pkg/core/calc"
	"reit_valuation/pkg/core/statement"
	"time"
)

// Inputs are the line items summed into FFO.
var Inputs = []string{
	statement.FieldNetIncome,
	statement.FieldDepreciationAmortization,
	statement.FieldInvestingCashFlow,
}

// Basis says how a Result was aggregated.
type Basis string

const (
	BasisTTM          Basis = "ttm"
	BasisSinglePeriod Basis = "single_period"
)

// Result is an FFO figure for one period.
type Result struct {
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Basis     Basis     `json:"basis"`
	Projected bool      `json:"projected"`
}

// PeriodFFO = net income + D&A + net cash used for investing activities.
func PeriodFFO(r statement.Record) (float64, error) {
	var total float64
	for _, f := range Inputs {
		v, err := r.Require(f)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// Column returns per-period FFO for the whole series; periods missing an input are undefined.
func Column(s statement.Series) []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		v, err := PeriodFFO(r)
		if err != nil {
			out[i] = calc.Undefined
			continue
		}
		out[i] = v
	}
	return out
}

// TrailingColumn returns the trailing four-quarter FFO sum at every index.
func TrailingColumn(s statement.Series) []float64 {
	return calc.RollingSum(Column(s), calc.QuartersPerYear)
}

// TTM sums FFO over the period dated date and the three periods before it.
func TTM(s statement.Series, date time.Time) (Result, error) {
	idx, err := s.IndexOf(date)
	if err != nil {
		return Result{}, err
	}
	return ttmAt(s, idx)
}

// Single returns FFO for the period dated date alone.
func Single(s statement.Series, date time.Time) (Result, error) {
	idx, err := s.IndexOf(date)
	if err != nil {
		return Result{}, err
	}
	return singleAt(s, idx)
}

// Forward targets the final period of an extended series. It uses the
// trailing four-quarter sum when enough periods exist, else that period's FFO.
func Forward(s statement.Series) (Result, error) {
	if len(s) == 0 {
		return Result{}, fmt.Errorf("%w: empty series", statement.ErrInsufficientHistory)
	}
	last := len(s) - 1
	if last+1 >= calc.QuartersPerYear {
		return ttmAt(s, last)
	}
	return singleAt(s, last)
}

func ttmAt(s statement.Series, idx int) (Result, error) {
	rec := s[idx]
	if idx+1 < calc.QuartersPerYear {
		return Result{}, fmt.Errorf("%w: %s has %d quarters of history, need %d",
			statement.ErrInsufficientHistory, rec.Date.Format(statement.DateLayout), idx+1, calc.QuartersPerYear)
	}
	var total float64
	for i := idx - calc.QuartersPerYear + 1; i <= idx; i++ {
		v, err := PeriodFFO(s[i])
		if err != nil {
			return Result{}, err
		}
		total += v
	}
	return Result{Date: rec.Date, Value: total, Basis: BasisTTM, Projected: rec.Projected}, nil
}

func singleAt(s statement.Series, idx int) (Result, error) {
	rec := s[idx]
	v, err := PeriodFFO(rec)
	if err != nil {
		return Result{}, err
	}
	return Result{Date: rec.Date, Value: v, Basis: BasisSinglePeriod, Projected: rec.Projected}, nil
}
