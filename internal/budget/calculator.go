package budget

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonops/halcyon/internal/slo"
)

// Calculator turns an ordered SLI measurement series into an ErrorBudget
// for a period. It is pure: persistence is the caller's concern.
type Calculator struct{}

// NewCalculator creates a new budget calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute builds the error budget for s over [periodStart, periodEnd]
// from the supplied measurements.
//
// Each measurement is assumed to cover an equal slice of the period:
// measurement_duration = period / len(measurements). A sample's error
// contribution is (1 - value) * measurement_duration_minutes. NaN sample
// values propagate into BurnedMinutes; they are never coerced to zero.
func (c *Calculator) Compute(s *slo.SLO, periodStart, periodEnd time.Time, measurements []Measurement) (*ErrorBudget, error) {
	if s == nil {
		return nil, fmt.Errorf("nil SLO")
	}
	if len(measurements) < 1 {
		return nil, &InsufficientDataError{
			Subject: fmt.Sprintf("slo %s", s.ID),
			Needed:  1,
			Got:     0,
		}
	}
	if !periodEnd.After(periodStart) {
		return nil, fmt.Errorf("period end %s is not after start %s", periodEnd, periodStart)
	}

	windowMinutes := periodEnd.Sub(periodStart).Minutes()
	totalBudget := windowMinutes * (1 - s.NormalizedTarget())

	sampleMinutes := windowMinutes / float64(len(measurements))
	var burned float64
	for _, m := range measurements {
		burned += (1 - m.Value) * sampleMinutes
	}
	if burned < 0 {
		burned = 0
	}

	remaining := totalBudget - burned
	if remaining < 0 {
		remaining = 0
	}

	b := &ErrorBudget{
		ID:                 uuid.NewString(),
		SLOID:              s.ID,
		Service:            s.Service,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		TotalBudgetMinutes: totalBudget,
		BurnedMinutes:      burned,
		RemainingMinutes:   remaining,
		BurnRate:           burned / windowMinutes,
	}
	b.Status = StatusForConsumption(b.PercentConsumed())

	return b, nil
}
