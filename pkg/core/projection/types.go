package projection

// Overrides maps a metric name to a user-entered annualized growth rate in
// percent. 20 means 20% a year, applied as 5% per quarter.
type Overrides map[string]float64

// MinOverridePct is the lowest accepted override: a metric cannot shrink by more than all of itself.
const MinOverridePct = -100.0

// Options controls one projection run.
type Options struct {
	// Horizon is the number of synthetic quarters to append. 1 projects the
	// next quarter, 4 the next fiscal year.
	Horizon int `json:"horizon" validate:"gte=0,lte=40"`

	// AllowInput gates Overrides. When false, Overrides are ignored.
	AllowInput bool `json:"allow_input"`

	Overrides Overrides `json:"overrides,omitempty" validate:"omitempty,dive,gte=-100"`
}

// RateSource says where a growth factor came from.
type RateSource string

const (
	SourceDerived  RateSource = "derived"
	SourceOverride RateSource = "override"
	SourceHeld     RateSource = "held_constant"
)
