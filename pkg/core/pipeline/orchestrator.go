package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"reit_valuation/pkg/core/events"
	"reit_valuation/pkg/core/ffo"
	"reit_valuation/pkg/core/ingest"
	"reit_valuation/pkg/core/projection"
	"reit_valuation/pkg/core/statement"
	"reit_valuation/pkg/core/store"
	"reit_valuation/pkg/core/trend"
	"reit_valuation/pkg/core/valuation"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher announces finished runs.
type Publisher interface {
	PublishValuation(ctx context.Context, ev events.ValuationEvent) error
}

// Exporter writes a run's series somewhere outside the process.
type Exporter interface {
	Export(ticker string, runID uuid.UUID, s statement.Series) (string, error)
}

// Orchestrator manages the end-to-end data flow:
// fetch -> merge -> TTM FFO -> Price/FFO -> trend -> projection -> forward FFO -> sinks.
type Orchestrator struct {
	source    ingest.Source
	repo      store.RunRepository
	publisher Publisher
	exporter  Exporter
	projector *projection.Projector
	validate  *validator.Validate
	defaults  Defaults
	log       zerolog.Logger
}

// NewOrchestrator creates an orchestrator over source. Persistence, events
// and export stay off until their setters are called.
func NewOrchestrator(source ingest.Source, defaults Defaults, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		source:    source,
		projector: projection.NewProjector(),
		validate:  validator.New(),
		defaults:  defaults,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// SetRepository enables run persistence.
func (o *Orchestrator) SetRepository(repo store.RunRepository) { o.repo = repo }

// SetPublisher enables event publishing.
func (o *Orchestrator) SetPublisher(p Publisher) { o.publisher = p }

// SetExporter enables spreadsheet export of every run.
func (o *Orchestrator) SetExporter(e Exporter) { o.exporter = e }

// Periods lists the dates a caller can value, newest first. Periods without
// four quarters of history are left out since they have no TTM FFO.
func (o *Orchestrator) Periods(ctx context.Context, ticker string) ([]time.Time, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}
	series, _, err := o.load(ctx, ticker, o.defaults.StrictMerge)
	if err != nil {
		return nil, err
	}
	return series.SelectablePeriods(4), nil
}

// Run executes one valuation. Data-source and merge failures abort the run;
// a figure that cannot be computed is reported as unavailable instead.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := o.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	mode, err := trend.ParseMode(firstNonEmpty(req.Mode, string(o.defaults.Mode)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	horizon := o.defaults.Horizon
	if req.Horizon != nil {
		horizon = *req.Horizon
	}
	strict := o.defaults.StrictMerge
	if req.StrictMerge != nil {
		strict = *req.StrictMerge
	}
	ticker := normalizeTicker(req.Ticker)
	log := o.log.With().Str("ticker", ticker).Logger()
	start := time.Now()

	series, report, err := o.load(ctx, ticker, strict)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no periods for %s", statement.ErrInsufficientHistory, ticker)
	}

	date := series[len(series)-1].Date
	if req.Date != "" {
		if date, err = statement.ParseDate(req.Date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	idx, err := series.IndexOf(date)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:        uuid.New(),
		Ticker:       ticker,
		Date:         series[idx].Date,
		LatestPeriod: idx == len(series)-1,
		ScaleMetric:  firstNonEmpty(req.ScaleMetric, o.defaults.ScaleMetric, statement.FieldTotalAssets),
		Mode:         mode,
		Horizon:      horizon,
		Periods:      len(series),
		Merge:        report,
		Series:       series,
	}

	// TTM FFO and Price/FFO
	caps, err := o.source.MarketCap(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch market cap: %w", err)
	}
	ttm, err := ffo.TTM(series, res.Date)
	if err != nil {
		res.TTMFFO = unavailable(err)
		res.PriceToFFO = unavailable(fmt.Errorf("TTM FFO unavailable: %w", err))
	} else {
		res.TTMFFO = available(ttm.Value)
		v, err := valuation.Combine(series, caps, res.Date, ttm.Value)
		if err != nil {
			res.PriceToFFO = unavailable(err)
		} else {
			res.Valuation = &v
			res.PriceToFFO = available(v.PriceToFFO)
		}
	}

	// Forward FFO
	opts := projection.Options{Horizon: horizon, AllowInput: req.AllowInput, Overrides: req.Overrides}
	if err := o.forward(res, opts); err != nil {
		res.ForwardFFO = unavailable(err)
	}

	log.Info().
		Str("run_id", res.RunID.String()).
		Str("date", res.Date.Format(statement.DateLayout)).
		Str("mode", string(mode)).
		Int("horizon", horizon).
		Bool("ttm_ffo", res.TTMFFO.OK()).
		Bool("price_to_ffo", res.PriceToFFO.OK()).
		Bool("forward_ffo", res.ForwardFFO.OK()).
		Dur("elapsed", time.Since(start)).
		Msg("Valuation complete")

	o.sinks(ctx, log, res)
	return res, nil
}

func (o *Orchestrator) load(ctx context.Context, ticker string, strict bool) (statement.Series, statement.MergeReport, error) {
	frags, err := o.source.Statements(ctx, ticker)
	if err != nil {
		return nil, statement.MergeReport{}, fmt.Errorf("fetch statements: %w", err)
	}
	series, report, err := statement.Merge(frags.Income, frags.CashFlow, frags.Balance, statement.MergeOptions{Strict: strict})
	if err != nil {
		return nil, report, fmt.Errorf("merge statements for %s: %w", ticker, err)
	}
	if report.Dropped() {
		o.log.Warn().Str("ticker", ticker).Str("report", report.String()).Msg("Merge dropped periods")
	}
	for _, c := range report.Conflicts {
		o.log.Debug().Str("ticker", ticker).Str("field", c.Field).Time("date", c.Date).
			Str("kept", c.Kept).Float64("gap", c.Gap).Msg("Statements disagree on shared field")
	}
	return series, report, nil
}

func (o *Orchestrator) forward(res *Result, opts projection.Options) error {
	est, err := trend.Compute(res.Series, res.ScaleMetric, res.Mode)
	if err != nil {
		return err
	}
	extended, plan, err := o.projector.Project(res.Series, est, est.Growth(), opts)
	if err != nil {
		return err
	}
	fwd, err := ffo.Forward(extended)
	if err != nil {
		return err
	}
	res.Series = extended
	res.Projected = extended.Projected()
	res.Assumptions = plan
	res.Forward = &fwd
	res.ForwardFFO = available(fwd.Value)
	return nil
}

// sinks are best effort: a failure is logged and the run still succeeds.
func (o *Orchestrator) sinks(ctx context.Context, log zerolog.Logger, res *Result) {
	if o.exporter != nil {
		path, err := o.exporter.Export(res.Ticker, res.RunID, res.Series)
		if err != nil {
			log.Warn().Err(err).Msg("Export failed")
		} else {
			res.ExportPath = path
		}
	}

	if o.repo != nil {
		payload, err := json.Marshal(res)
		if err == nil {
			err = o.repo.Save(ctx, &store.RunRecord{
				ID:         res.RunID,
				Ticker:     res.Ticker,
				PeriodDate: res.Date,
				Mode:       string(res.Mode),
				Horizon:    res.Horizon,
				TTMFFO:     res.TTMFFO.Value,
				PriceToFFO: res.PriceToFFO.Value,
				ForwardFFO: res.ForwardFFO.Value,
				Result:     payload,
			})
		}
		if err != nil {
			log.Warn().Err(err).Msg("Persisting run failed")
		}
	}

	if o.publisher != nil {
		err := o.publisher.PublishValuation(ctx, events.ValuationEvent{
			RunID:      res.RunID.String(),
			Ticker:     res.Ticker,
			PeriodDate: res.Date.Format(statement.DateLayout),
			Mode:       string(res.Mode),
			Horizon:    res.Horizon,
			TTMFFO:     res.TTMFFO.Value,
			PriceToFFO: res.PriceToFFO.Value,
			ForwardFFO: res.ForwardFFO.Value,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Publishing run failed")
		}
	}
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
