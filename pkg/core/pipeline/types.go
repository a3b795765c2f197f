package pipeline

import (
	"errors"
	"reit_valuation/pkg/core/ffo"
	"reit_valuation/pkg/core/projection"
	"reit_valuation/pkg/core/statement"
	"reit_valuation/pkg/core/trend"
	"reit_valuation/pkg/core/valuation"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// Request is one valuation run's user parameters. Zero values fall back to
// the orchestrator's Defaults.
type Request struct {
	Ticker      string               `json:"ticker" validate:"required,max=12"`
	Date        string               `json:"date,omitempty"` // YYYY-MM-DD; empty selects the latest period
	ScaleMetric string               `json:"scale_metric,omitempty"`
	Mode        string               `json:"mode,omitempty" validate:"omitempty,oneof=ttm raw TTM RAW"`
	Horizon     *int                 `json:"horizon,omitempty" validate:"omitempty,gte=0,lte=40"`
	AllowInput  bool                 `json:"allow_input"`
	Overrides   projection.Overrides `json:"overrides,omitempty" validate:"omitempty,dive,gte=-100"`
	StrictMerge *bool                `json:"strict_merge,omitempty"`
}

// Defaults fill in request fields the caller left empty.
type Defaults struct {
	ScaleMetric string
	Mode        trend.Mode
	Horizon     int
	StrictMerge bool
}

// DefaultDefaults scales by total assets, averages trailing twelve months and projects one quarter.
func DefaultDefaults() Defaults {
	return Defaults{
		ScaleMetric: statement.FieldTotalAssets,
		Mode:        trend.ModeTTM,
		Horizon:     1,
	}
}

// Output is a figure the run either produced or explains the absence of.
type Output struct {
	Value       *float64 `json:"value,omitempty"`
	Unavailable string   `json:"unavailable,omitempty"`

	err error
}

func available(v float64) Output { return Output{Value: &v} }

func unavailable(err error) Output { return Output{Unavailable: err.Error(), err: err} }

// OK reports whether the figure was produced.
func (o Output) OK() bool { return o.Value != nil }

// Err returns why the figure is missing, or nil.
func (o Output) Err() error { return o.err }

// Result is everything a run produced.
type Result struct {
	RunID        uuid.UUID             `json:"run_id"`
	Ticker       string                `json:"ticker"`
	Date         time.Time             `json:"date"`
	LatestPeriod bool                  `json:"latest_period"`
	ScaleMetric  string                `json:"scale_metric"`
	Mode         trend.Mode            `json:"mode"`
	Horizon      int                   `json:"horizon"`
	Periods      int                   `json:"periods"`
	Merge        statement.MergeReport `json:"merge"`

	TTMFFO     Output `json:"ttm_ffo"`
	PriceToFFO Output `json:"price_to_ffo"`
	ForwardFFO Output `json:"forward_ffo"`

	Valuation   *valuation.Valuation        `json:"valuation,omitempty"`
	Forward     *ffo.Result                 `json:"forward,omitempty"`
	Assumptions []projection.GrowthStrategy `json:"assumptions,omitempty"`
	Projected   statement.Series            `json:"projected,omitempty"`
	ExportPath  string                      `json:"export_path,omitempty"`

	// Series is the merged history plus any projected quarters.
	Series statement.Series `json:"-"`
}
