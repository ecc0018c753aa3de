package budget

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/halcyonops/halcyon/internal/slo"
)

func testSLO(target float64) *slo.SLO {
	return &slo.SLO{
		ID:      "checkout-availability",
		Service: "checkout",
		Target:  target,
		Window:  slo.TimeWindow{Duration: "30d", Type: slo.WindowRolling},
	}
}

func series(n int, value float64, start time.Time, step time.Duration) []Measurement {
	out := make([]Measurement, n)
	for i := range out {
		out[i] = Measurement{Timestamp: start.Add(time.Duration(i) * step), Value: value}
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputePerfectCompliance(t *testing.T) {
	calc := NewCalculator()
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(-30 * 24 * time.Hour)

	b, err := calc.Compute(testSLO(0.999), start, end, series(100, 1.0, start, time.Hour))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// 30d at 99.9%: 43200 * 0.001 = 43.2 budget minutes.
	if !almostEqual(b.TotalBudgetMinutes, 43.2) {
		t.Errorf("TotalBudgetMinutes = %v, want 43.2", b.TotalBudgetMinutes)
	}
	if b.BurnedMinutes != 0 {
		t.Errorf("BurnedMinutes = %v, want 0", b.BurnedMinutes)
	}
	if !almostEqual(b.RemainingMinutes, 43.2) {
		t.Errorf("RemainingMinutes = %v, want 43.2", b.RemainingMinutes)
	}
	if b.Status != StatusHealthy {
		t.Errorf("Status = %v, want HEALTHY", b.Status)
	}
	if b.BurnRate != 0 {
		t.Errorf("BurnRate = %v, want 0", b.BurnRate)
	}
}

func TestComputeConstantErrorRate(t *testing.T) {
	calc := NewCalculator()
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(-30 * 24 * time.Hour)

	// Constant 99% SLI against a 99.9% target burns the budget ten
	// times over: (1-0.99) * 43200 = 432 burned vs 43.2 total.
	b, err := calc.Compute(testSLO(0.999), start, end, series(720, 0.99, start, time.Hour))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if !almostEqual(b.BurnedMinutes, 432) {
		t.Errorf("BurnedMinutes = %v, want 432", b.BurnedMinutes)
	}
	if b.RemainingMinutes != 0 {
		t.Errorf("RemainingMinutes = %v, want 0 (clamped)", b.RemainingMinutes)
	}
	if b.Status != StatusExhausted {
		t.Errorf("Status = %v, want EXHAUSTED", b.Status)
	}
	if !almostEqual(b.BurnRate, 0.01) {
		t.Errorf("BurnRate = %v, want 0.01", b.BurnRate)
	}
}

func TestComputePercentageTarget(t *testing.T) {
	calc := NewCalculator()
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(-30 * 24 * time.Hour)

	// 99.9 as a percentage must mean the same as 0.999.
	asPct, err := calc.Compute(testSLO(99.9), start, end, series(10, 0.9995, start, time.Hour))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	asFrac, err := calc.Compute(testSLO(0.999), start, end, series(10, 0.9995, start, time.Hour))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !almostEqual(asPct.TotalBudgetMinutes, asFrac.TotalBudgetMinutes) {
		t.Errorf("percentage target budget %v != fraction target budget %v",
			asPct.TotalBudgetMinutes, asFrac.TotalBudgetMinutes)
	}
}

func TestComputeInsufficientData(t *testing.T) {
	calc := NewCalculator()
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(-24 * time.Hour)

	_, err := calc.Compute(testSLO(0.99), start, end, nil)
	if err == nil {
		t.Fatal("expected error for empty measurements")
	}

	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %T: %v", err, err)
	}
	if insufficient.Got != 0 || insufficient.Needed != 1 {
		t.Errorf("unexpected error detail: %+v", insufficient)
	}
}

func TestComputeInvertedPeriod(t *testing.T) {
	calc := NewCalculator()
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := calc.Compute(testSLO(0.99), end, end, series(5, 1, end, time.Minute))
	if err == nil {
		t.Error("expected error for zero-length period")
	}
}

func TestComputeNaNPropagates(t *testing.T) {
	calc := NewCalculator()
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(-24 * time.Hour)

	measurements := series(10, 0.99, start, time.Hour)
	measurements[3].Value = math.NaN()

	b, err := calc.Compute(testSLO(0.99), start, end, measurements)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !math.IsNaN(b.BurnedMinutes) {
		t.Errorf("BurnedMinutes = %v, want NaN to propagate", b.BurnedMinutes)
	}
	if !math.IsNaN(b.BurnRate) {
		t.Errorf("BurnRate = %v, want NaN", b.BurnRate)
	}
}

func TestComputeOverPerfectSLIClamps(t *testing.T) {
	calc := NewCalculator()
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(-24 * time.Hour)

	// SLI slightly above 1 would push burned negative; it clamps to 0.
	b, err := calc.Compute(testSLO(0.99), start, end, series(10, 1.001, start, time.Hour))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if b.BurnedMinutes != 0 {
		t.Errorf("BurnedMinutes = %v, want 0", b.BurnedMinutes)
	}
}

func TestStatusForConsumption(t *testing.T) {
	tests := []struct {
		consumed float64
		expected Status
	}{
		{0, StatusHealthy},
		{49.99, StatusHealthy},
		{50, StatusWarning},
		{79.99, StatusWarning},
		{80, StatusCritical},
		{99.99, StatusCritical},
		{100, StatusExhausted},
		{250, StatusExhausted},
	}

	for _, tt := range tests {
		if got := StatusForConsumption(tt.consumed); got != tt.expected {
			t.Errorf("StatusForConsumption(%v) = %v, want %v", tt.consumed, got, tt.expected)
		}
	}
}

func TestPercentConsumedZeroBudget(t *testing.T) {
	b := &ErrorBudget{TotalBudgetMinutes: 0, BurnedMinutes: 10}
	if got := b.PercentConsumed(); got != 0 {
		t.Errorf("PercentConsumed with zero total = %v, want 0", got)
	}
	if got := b.PercentRemaining(); got != 0 {
		t.Errorf("PercentRemaining with zero total = %v, want 0", got)
	}
}
