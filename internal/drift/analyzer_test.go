package drift

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/halcyonops/halcyon/internal/budget"
)

// linearSeries produces daily points starting at startRatio, changing
// by perDay each day.
func linearSeries(n int, startRatio, perDay float64) []Point {
	origin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{
			Timestamp: origin.Add(time.Duration(i) * 24 * time.Hour),
			Ratio:     startRatio + perDay*float64(i),
		}
	}
	return points
}

func TestAnalyzeInsufficientData(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	for _, n := range []int{0, 1} {
		_, err := a.Analyze(linearSeries(n, 1, 0))
		if err == nil {
			t.Fatalf("expected error for %d points", n)
		}
		var insufficient *budget.InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Errorf("expected InsufficientDataError, got %T", err)
		}
	}
}

func TestAnalyzeDecliningSeries(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	// 1% of budget ratio lost per day.
	result, err := a.Analyze(linearSeries(30, 0.9, -0.01))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.SlopePerDay >= 0 {
		t.Errorf("SlopePerDay = %v, want negative", result.SlopePerDay)
	}
	if math.Abs(result.SlopePerDay-(-0.01)) > 1e-6 {
		t.Errorf("SlopePerDay = %v, want -0.01", result.SlopePerDay)
	}
	if math.Abs(result.SlopePerWeek-(-0.07)) > 1e-6 {
		t.Errorf("SlopePerWeek = %v, want -0.07", result.SlopePerWeek)
	}
	if result.RSquared < 0.999 {
		t.Errorf("RSquared = %v, want ~1 for a perfect line", result.RSquared)
	}

	// Last point is 0.9 - 0.29 = 0.61 of budget, declining 0.01/day:
	// 61 days to exhaustion.
	if result.Projection.DaysUntilExhaustion == nil {
		t.Fatal("expected an exhaustion projection for a declining series")
	}
	if days := *result.Projection.DaysUntilExhaustion; math.Abs(days-61) > 0.5 {
		t.Errorf("DaysUntilExhaustion = %v, want ~61", days)
	}

	if result.Pattern != PatternGradualDecline {
		t.Errorf("Pattern = %v, want GRADUAL_DECLINE", result.Pattern)
	}
}

func TestAnalyzeSteeperDeclineExhaustsSooner(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	gentle, err := a.Analyze(linearSeries(20, 0.95, -0.005))
	if err != nil {
		t.Fatalf("Analyze gentle: %v", err)
	}
	steep, err := a.Analyze(linearSeries(20, 0.95, -0.02))
	if err != nil {
		t.Fatalf("Analyze steep: %v", err)
	}

	if gentle.Projection.DaysUntilExhaustion == nil || steep.Projection.DaysUntilExhaustion == nil {
		t.Fatal("both series should project exhaustion")
	}
	if *steep.Projection.DaysUntilExhaustion >= *gentle.Projection.DaysUntilExhaustion {
		t.Errorf("steeper decline should exhaust sooner: steep=%v gentle=%v",
			*steep.Projection.DaysUntilExhaustion, *gentle.Projection.DaysUntilExhaustion)
	}
}

func TestAnalyzeStableSeries(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	result, err := a.Analyze(linearSeries(30, 0.95, 0))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Projection.DaysUntilExhaustion != nil {
		t.Errorf("flat series projected exhaustion in %v days", *result.Projection.DaysUntilExhaustion)
	}
	if result.Severity != SeverityNone {
		t.Errorf("Severity = %v, want NONE", result.Severity)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if result.Pattern != PatternStable {
		t.Errorf("Pattern = %v, want STABLE", result.Pattern)
	}
}

func TestAnalyzeDistantExhaustionIsStable(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	// Losing 0.0001/day from 0.9: 9000 days out, beyond the one-year
	// horizon, so no exhaustion date is reported.
	result, err := a.Analyze(linearSeries(30, 0.9, -0.0001))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Projection.DaysUntilExhaustion != nil {
		t.Errorf("exhaustion beyond a year should be nil, got %v days", *result.Projection.DaysUntilExhaustion)
	}
	// Still a (mild) negative trend.
	if result.Severity != SeverityInfo {
		t.Errorf("Severity = %v, want INFO", result.Severity)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
}

func TestAnalyzeSeverityChain(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	tests := []struct {
		name     string
		points   []Point
		want     Severity
		wantCode int
	}{
		{
			// 0.5 ratio falling 0.02/day: 25 days out, under the
			// 30-day critical horizon.
			name:     "imminent exhaustion is critical",
			points:   linearSeries(20, 0.88, -0.02),
			want:     SeverityCritical,
			wantCode: 2,
		},
		{
			// 0.0085/day ≈ 0.06/week: past warn slope, not critical,
			// and exhaustion beyond 90 days.
			name:     "warn slope",
			points:   linearSeries(10, 0.99, -0.0085),
			want:     SeverityWarn,
			wantCode: 1,
		},
		{
			// 0.02/day = 0.14/week from a full budget: critical slope
			// even though exhaustion is ~31 days out.
			name:     "critical slope",
			points:   linearSeries(10, 0.8, -0.02),
			want:     SeverityCritical,
			wantCode: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Analyze(tt.points)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if result.Severity != tt.want {
				t.Errorf("Severity = %v, want %v (slope/week=%v, days=%v)",
					result.Severity, tt.want, result.SlopePerWeek, result.Projection.DaysUntilExhaustion)
			}
			if result.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", result.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestProjectedRatioFloorsAtZero(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	result, err := a.Analyze(linearSeries(10, 0.2, -0.02))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Projection.Projected90Day != 0 {
		t.Errorf("Projected90Day = %v, want floor at 0", result.Projection.Projected90Day)
	}
}

func TestDefaultWindowForTier(t *testing.T) {
	tests := []struct {
		tier string
		want time.Duration
	}{
		{"critical", 30 * 24 * time.Hour},
		{"standard", 60 * 24 * time.Hour},
		{"low", 90 * 24 * time.Hour},
		{"unknown", 60 * 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := DefaultWindowForTier(tt.tier); got != tt.want {
			t.Errorf("DefaultWindowForTier(%s) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}
