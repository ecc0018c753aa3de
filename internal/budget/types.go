package budget

import (
	"fmt"
	"math"
	"time"
)

// Status summarizes how much of the budget a period has consumed.
type Status string

const (
	StatusHealthy   Status = "HEALTHY"
	StatusWarning   Status = "WARNING"
	StatusCritical  Status = "CRITICAL"
	StatusExhausted Status = "EXHAUSTED"
)

// StatusForConsumption maps percent consumed to a budget status.
// Thresholds: <50 HEALTHY, <80 WARNING, <100 CRITICAL, >=100 EXHAUSTED.
func StatusForConsumption(percentConsumed float64) Status {
	switch {
	case percentConsumed >= 100:
		return StatusExhausted
	case percentConsumed >= 80:
		return StatusCritical
	case percentConsumed >= 50:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// ErrorBudget is the computed budget for one (slo, period). Re-evaluating
// the same period upserts the existing record rather than duplicating it.
type ErrorBudget struct {
	ID          string    `json:"id"`
	SLOID       string    `json:"slo_id"`
	Service     string    `json:"service"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalBudgetMinutes float64 `json:"total_budget_minutes"`
	BurnedMinutes      float64 `json:"burned_minutes"`
	RemainingMinutes   float64 `json:"remaining_minutes"`

	// Optional burn attribution sub-totals.
	IncidentBurnMinutes   float64 `json:"incident_burn_minutes,omitempty"`
	DeploymentBurnMinutes float64 `json:"deployment_burn_minutes,omitempty"`
	BreachBurnMinutes     float64 `json:"breach_burn_minutes,omitempty"`

	Status Status `json:"status"`

	// BurnRate is budget-minutes consumed per minute of wall time.
	// NaN means the rate could not be established.
	BurnRate float64 `json:"burn_rate"`
}

// SustainableRate returns the burn rate that would exactly exhaust the
// budget at period end: the total budget spread evenly over the window,
// in budget-minutes per wall-clock minute. Zero for a degenerate period
// or budget.
func (b *ErrorBudget) SustainableRate() float64 {
	window := b.PeriodEnd.Sub(b.PeriodStart).Minutes()
	if window <= 0 || b.TotalBudgetMinutes <= 0 {
		return 0
	}
	return b.TotalBudgetMinutes / window
}

// BurnRateMultiple expresses BurnRate as a multiple of the sustainable
// baseline rate. NaN when no baseline exists or the rate itself is NaN.
func (b *ErrorBudget) BurnRateMultiple() float64 {
	base := b.SustainableRate()
	if base <= 0 {
		return math.NaN()
	}
	return b.BurnRate / base
}

// PercentConsumed returns how much of the total budget has burned, in percent.
func (b *ErrorBudget) PercentConsumed() float64 {
	if b.TotalBudgetMinutes <= 0 {
		return 0
	}
	return b.BurnedMinutes / b.TotalBudgetMinutes * 100
}

// PercentRemaining returns the unburned share of the budget, in percent.
func (b *ErrorBudget) PercentRemaining() float64 {
	if b.TotalBudgetMinutes <= 0 {
		return 0
	}
	return b.RemainingMinutes / b.TotalBudgetMinutes * 100
}

// Measurement is one SLI sample. Value is the measured compliance ratio
// in [0,1]; NaN means the source had no data for the interval.
type Measurement struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// InsufficientDataError signals that too few data points were supplied
// to compute anything meaningful. Not retryable; the caller should wait
// for more data.
type InsufficientDataError struct {
	Subject string
	Needed  int
	Got     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d data points, got %d", e.Subject, e.Needed, e.Got)
}
