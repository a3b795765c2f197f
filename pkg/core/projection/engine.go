package projection

import (
	"fmt"
	"reit_valuation/pkg/core/statement"
	"reit_valuation/pkg/core/trend"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Projector appends synthetic quarters to a statement series.
type Projector struct {
	validate *validator.Validate
}

// NewProjector creates a projector with its own option validator.
func NewProjector() *Projector {
	return &Projector{validate: validator.New()}
}

// Validate checks horizon bounds and the override floor.
func (p *Projector) Validate(opts Options) error {
	if err := p.validate.Struct(opts); err != nil {
		return fmt.Errorf("invalid projection options: %w", err)
	}
	return nil
}

// Plan resolves a growth strategy for every tracked metric except the scale
// metric, which is held at its last actual value. An enabled override beats
// the derived rate; a metric with neither fails with ErrInsufficientHistory.
func (p *Projector) Plan(est *trend.Estimate, growth trend.GrowthModel, opts Options) ([]GrowthStrategy, error) {
	if err := p.Validate(opts); err != nil {
		return nil, err
	}

	plan := make([]GrowthStrategy, 0, len(est.Metrics))
	for _, m := range est.Metrics {
		if m == est.ScaleMetric {
			continue
		}
		share, err := est.LastShare(m)
		if err != nil {
			return nil, err
		}
		gs := GrowthStrategy{Metric: m, LastShare: share}
		if pct, ok := opts.Overrides[m]; ok && opts.AllowInput {
			gs.Rate = overrideRate(pct)
			gs.Source = SourceOverride
		} else if rate, ok := growth[m]; ok {
			gs.Rate = rate
			gs.Source = SourceDerived
		} else {
			return nil, fmt.Errorf("%w: no growth rate for %s and no override", statement.ErrInsufficientHistory, m)
		}
		plan = append(plan, gs)
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].Metric < plan[j].Metric })
	return plan, nil
}

// Project returns series followed by opts.Horizon synthetic quarters. The
// input series is never modified; a zero horizon returns it as is.
// Projected dates step three months from the last record, clamped to month end.
func (p *Projector) Project(series statement.Series, est *trend.Estimate, growth trend.GrowthModel, opts Options) (statement.Series, []GrowthStrategy, error) {
	if err := p.Validate(opts); err != nil {
		return nil, nil, err
	}
	if opts.Horizon == 0 {
		return series, nil, nil
	}
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("%w: nothing to project from", statement.ErrInsufficientHistory)
	}

	plan, err := p.Plan(est, growth, opts)
	if err != nil {
		return nil, nil, err
	}

	lastActual, ok := series.LastActual()
	if !ok {
		return nil, nil, fmt.Errorf("%w: no actual periods", statement.ErrInsufficientHistory)
	}
	scale, err := series[lastActual].Require(est.ScaleMetric)
	if err != nil {
		return nil, nil, err
	}
	base := series[len(series)-1]

	synthetic := make(statement.Series, opts.Horizon)
	for i := 1; i <= opts.Horizon; i++ {
		fields := make(map[string]float64, len(plan)+1)
		for _, gs := range plan {
			v, err := gs.Calculate(i, scale)
			if err != nil {
				return nil, nil, err
			}
			fields[gs.Metric] = v
		}
		fields[est.ScaleMetric] = scale

		synthetic[i-1] = statement.Record{
			Date:      AddMonths(base.Date, 3*i),
			Fields:    fields,
			Meta:      projectedMeta(base, i),
			Projected: true,
		}
	}

	out := make(statement.Series, 0, len(series)+len(synthetic))
	out = append(out, series...)
	out = append(out, synthetic...)
	return out, plan, nil
}

func projectedMeta(base statement.Record, step int) map[string]string {
	meta := map[string]string{"period": fmt.Sprintf("P+%d", step)}
	if sym, ok := base.Meta["symbol"]; ok {
		meta["symbol"] = sym
	}
	return meta
}
