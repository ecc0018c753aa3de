package drift

import (
	"time"
)

// Severity classifies long-run budget drift.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so "worst of" aggregation picks the maximum.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarn:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// ExitCode maps drift severity to the engine-wide exit code convention.
func (s Severity) ExitCode() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarn:
		return 1
	default:
		return 0
	}
}

// Pattern is the shape of the drift as classified by a pattern detector.
type Pattern string

const (
	PatternStable         Pattern = "STABLE"
	PatternGradualDecline Pattern = "GRADUAL_DECLINE"
	PatternStepChangeDown Pattern = "STEP_CHANGE_DOWN"
	PatternVolatile       Pattern = "VOLATILE"
)

// Point is one budget-ratio observation. Ratio is the remaining budget
// fraction in [0,1].
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Ratio     float64   `json:"ratio"`
}

// Regression holds the ordinary-least-squares fit over a ratio series.
type Regression struct {
	SlopePerSecond float64 `json:"slope_per_second"`
	Intercept      float64 `json:"intercept"`
	RSquared       float64 `json:"r_squared"`
}

// Projection extrapolates the fit forward. DaysUntilExhaustion is nil
// when the budget is not declining or exhaustion is further than a year
// out ("stable").
type Projection struct {
	DaysUntilExhaustion *float64 `json:"days_until_exhaustion,omitempty"`
	Projected30Day      float64  `json:"projected_30_day"`
	Projected60Day      float64  `json:"projected_60_day"`
	Projected90Day      float64  `json:"projected_90_day"`
}

// Result is the full drift analysis for one series.
type Result struct {
	SlopePerDay  float64    `json:"slope_per_day"`
	SlopePerWeek float64    `json:"slope_per_week"`
	RSquared     float64    `json:"r_squared"`
	Projection   Projection `json:"projection"`
	Pattern      Pattern    `json:"pattern"`
	Severity     Severity   `json:"severity"`
	ExitCode     int        `json:"exit_code"`
}

// Config tunes severity classification and the pattern detector.
// Slope thresholds are in budget-ratio per week and expected negative.
type Config struct {
	StepChangeThreshold    float64
	WarnSlopePerWeek       float64
	CriticalSlopePerWeek   float64
	WarnExhaustionDays     float64
	CriticalExhaustionDays float64
}

// DefaultConfig returns the stock drift thresholds.
func DefaultConfig() Config {
	return Config{
		StepChangeThreshold:    0.05,
		WarnSlopePerWeek:       -0.05,
		CriticalSlopePerWeek:   -0.10,
		WarnExhaustionDays:     90,
		CriticalExhaustionDays: 30,
	}
}

// DefaultWindowForTier returns the analysis window a tier defaults to.
func DefaultWindowForTier(tier string) time.Duration {
	switch tier {
	case "critical":
		return 30 * 24 * time.Hour
	case "low":
		return 90 * 24 * time.Hour
	default:
		return 60 * 24 * time.Hour
	}
}
