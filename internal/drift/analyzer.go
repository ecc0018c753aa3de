package drift

import (
	"github.com/halcyonops/halcyon/internal/budget"
)

const (
	secondsPerDay  = 86400.0
	secondsPerWeek = 7 * secondsPerDay
)

// Analyzer detects long-run budget drift via linear regression over a
// budget-ratio time series.
type Analyzer struct {
	cfg      Config
	detector PatternDetector
}

// NewAnalyzer creates an analyzer. A nil detector selects the default
// split detector with the configured step-change threshold.
func NewAnalyzer(cfg Config, detector PatternDetector) *Analyzer {
	if detector == nil {
		detector = NewSplitDetector(cfg.StepChangeThreshold)
	}
	return &Analyzer{cfg: cfg, detector: detector}
}

// Analyze fits the series and classifies drift. Fewer than two points
// is an InsufficientDataError.
func (a *Analyzer) Analyze(points []Point) (*Result, error) {
	if len(points) < 2 {
		return nil, &budget.InsufficientDataError{
			Subject: "drift analysis",
			Needed:  2,
			Got:     len(points),
		}
	}

	reg := fitOLS(points)
	current := points[len(points)-1].Ratio

	result := &Result{
		SlopePerDay:  reg.SlopePerSecond * secondsPerDay,
		SlopePerWeek: reg.SlopePerSecond * secondsPerWeek,
		RSquared:     reg.RSquared,
		Projection:   a.project(reg, current),
		Pattern:      a.detector.Detect(points, reg),
	}
	result.Severity = a.classify(result)
	result.ExitCode = result.Severity.ExitCode()

	return result, nil
}

// project extrapolates the fit. Exhaustion is only projected for a
// declining budget, and only inside a one-year horizon; anything
// further out is reported as stable (nil).
func (a *Analyzer) project(reg Regression, current float64) Projection {
	proj := Projection{
		Projected30Day: projectedRatio(current, reg.SlopePerSecond, 30),
		Projected60Day: projectedRatio(current, reg.SlopePerSecond, 60),
		Projected90Day: projectedRatio(current, reg.SlopePerSecond, 90),
	}

	if reg.SlopePerSecond < 0 {
		days := current / (-reg.SlopePerSecond) / secondsPerDay
		if days <= 365 {
			proj.DaysUntilExhaustion = &days
		}
	}

	return proj
}

func projectedRatio(current, slopePerSecond float64, days float64) float64 {
	projected := current + slopePerSecond*days*secondsPerDay
	if projected < 0 {
		return 0
	}
	return projected
}

// classify applies the severity priority chain; the first matching
// clause wins.
func (a *Analyzer) classify(r *Result) Severity {
	days := r.Projection.DaysUntilExhaustion

	switch {
	case days != nil && *days <= a.cfg.CriticalExhaustionDays:
		return SeverityCritical
	case r.Pattern == PatternStepChangeDown:
		return SeverityCritical
	case r.SlopePerWeek <= a.cfg.CriticalSlopePerWeek:
		return SeverityCritical
	case days != nil && *days <= a.cfg.WarnExhaustionDays:
		return SeverityWarn
	case r.SlopePerWeek <= a.cfg.WarnSlopePerWeek:
		return SeverityWarn
	case r.SlopePerWeek < 0:
		return SeverityInfo
	default:
		return SeverityNone
	}
}
