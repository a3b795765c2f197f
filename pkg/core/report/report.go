// Package report renders pipeline results as Markdown and HTML.
package report

import (
	"fmt"
	"reit_valuation/pkg/core/pipeline"
	"reit_valuation/pkg/core/statement"
	"reit_valuation/pkg/core/utils"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money formats a currency amount rounded to whole units with thousands separators.
func Money(v float64) string {
	n := decimal.NewFromFloat(v).Round(0).IntPart()
	if n < 0 {
		return "-$" + humanize.Comma(-n)
	}
	return "$" + humanize.Comma(n)
}

// Multiple formats a ratio with two decimals, e.g. "10.00x".
func Multiple(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "x"
}

// Percent formats a fraction as a percentage with two decimals.
func Percent(fraction float64) string {
	return decimal.NewFromFloat(fraction).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

func figure(o pipeline.Output, format func(float64) string) string {
	if o.OK() {
		return format(*o.Value)
	}
	return "n/a (" + o.Unavailable + ")"
}

// Markdown renders res as a Markdown document.
func Markdown(res *pipeline.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s FFO valuation\n\n", res.Ticker)
	fmt.Fprintf(&b, "Period **%s**", res.Date.Format(statement.DateLayout))
	if res.LatestPeriod {
		b.WriteString(" (latest)")
	}
	fmt.Fprintf(&b, ", %d quarters of history, trend mode `%s`, scaled by `%s`.\n\n", res.Periods, res.Mode, res.ScaleMetric)

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| TTM FFO | %s |\n", figure(res.TTMFFO, Money))
	if res.Valuation != nil {
		fmt.Fprintf(&b, "| Market cap | %s (%s) |\n", Money(res.Valuation.MarketCap), res.Valuation.MarketCapDate.Format(statement.DateLayout))
	}
	fmt.Fprintf(&b, "| Price/FFO | %s |\n", figure(res.PriceToFFO, Multiple))
	fmt.Fprintf(&b, "| Forward FFO | %s |\n", figure(res.ForwardFFO, Money))
	if res.Forward != nil {
		fmt.Fprintf(&b, "| Forward basis | %s at %s |\n", res.Forward.Basis, res.Forward.Date.Format(statement.DateLayout))
	}

	if len(res.Assumptions) > 0 {
		b.WriteString("\n## Growth assumptions\n\n")
		b.WriteString("| Metric | Share of scale | Per quarter | Annualized | Source |\n|---|---|---|---|---|\n")
		for _, a := range res.Assumptions {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				a.Metric, Percent(a.LastShare/100), Percent(a.Rate), Percent(a.AnnualizedPct()/100), a.Source)
		}
	}

	if len(res.Projected) > 0 {
		b.WriteString("\n## Projected quarters\n\n")
		b.WriteString("| Date | Net income | D&A | Investing | FFO |\n|---|---|---|---|---|\n")
		for _, r := range res.Projected {
			ffoValue := r.Fields[statement.FieldNetIncome] + r.Fields[statement.FieldDepreciationAmortization] + r.Fields[statement.FieldInvestingCashFlow]
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				r.Date.Format(statement.DateLayout),
				Money(r.Fields[statement.FieldNetIncome]),
				Money(r.Fields[statement.FieldDepreciationAmortization]),
				Money(r.Fields[statement.FieldInvestingCashFlow]),
				Money(ffoValue))
		}
	}

	if res.Merge.Dropped() {
		fmt.Fprintf(&b, "\n> Merge: %s\n", res.Merge)
	}
	return b.String()
}

// HTML renders res as an HTML fragment.
func HTML(res *pipeline.Result) (string, error) {
	return utils.RenderMarkdown(Markdown(res))
}
