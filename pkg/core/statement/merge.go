package statement

import (
	"fmt"
	"reit_valuation/pkg/core/calc"
	"sort"
	"strings"
	"time"
)

// Fragment names, in merge precedence order.
const (
	FragmentIncome   = "income"
	FragmentCashFlow = "cash_flow"
	FragmentBalance  = "balance"
)

// MergeOptions controls how date disagreements between fragments are handled.
type MergeOptions struct {
	// Strict fails the merge when any period is missing from a fragment.
	Strict bool
}

// Mismatch describes one period that appeared in some fragments but not all.
type Mismatch struct {
	Date        time.Time `json:"date"`
	MissingFrom []string  `json:"missing_from"`
}

// Conflict is a field reported by two fragments for the same period with
// different values. The higher precedence fragment's value is kept.
type Conflict struct {
	Date    time.Time `json:"date"`
	Field   string    `json:"field"`
	Kept    string    `json:"kept"`
	Ignored string    `json:"ignored"`
	Gap     float64   `json:"gap"`
}

// MergeReport records what the inner join kept and dropped.
type MergeReport struct {
	Kept       int        `json:"kept"`
	Fragments  []string   `json:"fragments"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	Conflicts  []Conflict `json:"conflicts,omitempty"`
}

// Dropped reports whether the join discarded any period.
func (r MergeReport) Dropped() bool { return len(r.Mismatches) > 0 }

func (r MergeReport) String() string {
	if !r.Dropped() {
		return fmt.Sprintf("kept %d periods from %s", r.Kept, strings.Join(r.Fragments, "+"))
	}
	parts := make([]string, len(r.Mismatches))
	for i, m := range r.Mismatches {
		parts[i] = fmt.Sprintf("%s (missing from %s)", m.Date.Format(DateLayout), strings.Join(m.MissingFrom, ","))
	}
	return fmt.Sprintf("kept %d periods, dropped %s", r.Kept, strings.Join(parts, "; "))
}

type fragment struct {
	name   string
	byDate map[time.Time]Record
}

// Merge inner-joins the income, cash flow and balance fragments on period date.
// The merged record carries the union of fields; when a field appears in more
// than one fragment the income statement wins, then cash flow, then balance.
// An empty balance fragment is skipped so income and cash flow alone still merge.
func Merge(income, cashFlow, balance Series, opts MergeOptions) (Series, MergeReport, error) {
	var report MergeReport

	inputs := []struct {
		name     string
		s        Series
		optional bool
	}{
		{FragmentIncome, income, false},
		{FragmentCashFlow, cashFlow, false},
		{FragmentBalance, balance, true},
	}

	var frags []fragment
	for _, in := range inputs {
		if len(in.s) == 0 {
			if in.optional {
				continue
			}
			return nil, report, fmt.Errorf("%w: %s fragment is empty", ErrMergeKeyMismatch, in.name)
		}
		f, err := index(in.name, in.s)
		if err != nil {
			return nil, report, err
		}
		frags = append(frags, f)
		report.Fragments = append(report.Fragments, in.name)
	}

	all := map[time.Time]struct{}{}
	for _, f := range frags {
		for d := range f.byDate {
			all[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(all))
	for d := range all {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	merged := make(Series, 0, len(dates))
	for _, d := range dates {
		var missing []string
		for _, f := range frags {
			if _, ok := f.byDate[d]; !ok {
				missing = append(missing, f.name)
			}
		}
		if len(missing) > 0 {
			report.Mismatches = append(report.Mismatches, Mismatch{Date: d, MissingFrom: missing})
			continue
		}

		rec := Record{Date: d, Fields: map[string]float64{}, Meta: map[string]string{}}
		owner := map[string]string{}
		// lowest precedence first so later writes win
		for i := len(frags) - 1; i >= 0; i-- {
			src := frags[i].byDate[d]
			for k, v := range src.Fields {
				if prev, seen := rec.Fields[k]; seen {
					if check := calc.CheckTieOut(k, v, prev); !check.IsBalanced {
						report.Conflicts = append(report.Conflicts, Conflict{
							Date: d, Field: k, Kept: frags[i].name, Ignored: owner[k], Gap: check.Gap,
						})
					}
				}
				rec.Fields[k] = v
				owner[k] = frags[i].name
			}
			for k, v := range src.Meta {
				rec.Meta[k] = v
			}
		}
		merged = append(merged, rec)
	}
	report.Kept = len(merged)

	if opts.Strict && report.Dropped() {
		return nil, report, fmt.Errorf("%w: %s", ErrMergeKeyMismatch, report)
	}
	return merged, report, nil
}

func index(name string, s Series) (fragment, error) {
	f := fragment{name: name, byDate: make(map[time.Time]Record, len(s))}
	for _, r := range s {
		d := Day(r.Date)
		if _, dup := f.byDate[d]; dup {
			return f, fmt.Errorf("%w: %s fragment has duplicate period %s", ErrMergeKeyMismatch, name, d.Format(DateLayout))
		}
		f.byDate[d] = r
	}
	return f, nil
}
