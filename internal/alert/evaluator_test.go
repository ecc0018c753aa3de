package alert

import (
	"math"
	"testing"
	"time"

	"github.com/halcyonops/halcyon/internal/budget"
)

func budgetAt(consumedPct float64) *budget.ErrorBudget {
	total := 100.0
	burned := consumedPct
	// 100 budget-minutes over a 10000-minute window: the sustainable
	// baseline rate is 0.01 budget-minutes per minute.
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := &budget.ErrorBudget{
		SLOID:              "checkout-availability",
		Service:            "checkout",
		PeriodStart:        end.Add(-10000 * time.Minute),
		PeriodEnd:          end,
		TotalBudgetMinutes: total,
		BurnedMinutes:      burned,
		RemainingMinutes:   total - burned,
		BurnRate:           0.01,
	}
	b.Status = budget.StatusForConsumption(b.PercentConsumed())
	return b
}

func standardRules() []Rule {
	return []Rule{
		{ID: "warn-75", Service: "checkout", SLOID: "*", Kind: KindBudgetThreshold, Severity: SeverityWarning, Threshold: 0.75, Enabled: true},
		{ID: "crit-90", Service: "checkout", SLOID: "*", Kind: KindBudgetThreshold, Severity: SeverityCritical, Threshold: 0.90, Enabled: true},
	}
}

func TestEvaluateRulesBurnProgression(t *testing.T) {
	eval := NewEvaluator()
	now := time.Now()

	tests := []struct {
		name          string
		consumedPct   float64
		wantRuleIDs   []string
		wantWorst     Severity
		wantWorstCode int
	}{
		{"ten percent burn is quiet", 10, nil, "", 0},
		{"eighty percent fires warning only", 80, []string{"warn-75"}, SeverityWarning, 1},
		{"ninety five percent fires both", 95, []string{"warn-75", "crit-90"}, SeverityCritical, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := eval.EvaluateRules(standardRules(), budgetAt(tt.consumedPct), now)

			if len(events) != len(tt.wantRuleIDs) {
				t.Fatalf("got %d events, want %d", len(events), len(tt.wantRuleIDs))
			}
			for i, id := range tt.wantRuleIDs {
				if events[i].RuleID != id {
					t.Errorf("event[%d].RuleID = %s, want %s (rule order must be preserved)", i, events[i].RuleID, id)
				}
			}

			var worst Severity
			for _, ev := range events {
				worst = Worst(worst, ev.Severity)
			}
			if worst != tt.wantWorst {
				t.Errorf("worst severity = %q, want %q", worst, tt.wantWorst)
			}
		})
	}
}

func TestEvaluateRulesThresholdBoundary(t *testing.T) {
	eval := NewEvaluator()
	now := time.Now()

	// Exactly at threshold fires: the comparison is >=.
	events := eval.EvaluateRules(standardRules(), budgetAt(75), now)
	if len(events) != 1 || events[0].RuleID != "warn-75" {
		t.Errorf("at exactly 75%% consumed expected warn-75 to fire, got %v", events)
	}

	events = eval.EvaluateRules(standardRules(), budgetAt(74.999), now)
	if len(events) != 0 {
		t.Errorf("just under threshold should not fire, got %v", events)
	}
}

func TestEvaluateRulesDisabledSkipped(t *testing.T) {
	eval := NewEvaluator()
	rules := standardRules()
	rules[0].Enabled = false

	events := eval.EvaluateRules(rules, budgetAt(80), time.Now())
	if len(events) != 0 {
		t.Errorf("disabled rule fired: %v", events)
	}
}

func TestEvaluateRulesMatching(t *testing.T) {
	eval := NewEvaluator()
	now := time.Now()
	b := budgetAt(95)

	tests := []struct {
		name     string
		service  string
		sloID    string
		wantFire bool
	}{
		{"exact slo match", "checkout", "checkout-availability", true},
		{"wildcard slo", "checkout", "*", true},
		{"other slo", "checkout", "checkout-latency", false},
		{"other service", "payments", "*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := Rule{ID: "r", Service: tt.service, SLOID: tt.sloID,
				Kind: KindBudgetThreshold, Severity: SeverityWarning, Threshold: 0.5, Enabled: true}
			events := eval.EvaluateRules([]Rule{rule}, b, now)
			if fired := len(events) > 0; fired != tt.wantFire {
				t.Errorf("fired = %v, want %v", fired, tt.wantFire)
			}
		})
	}
}

func TestEvaluateRulesUnknownKindInert(t *testing.T) {
	eval := NewEvaluator()
	rule := Rule{ID: "odd", Service: "checkout", SLOID: "*",
		Kind: Kind("LUNAR_PHASE"), Severity: SeverityCritical, Threshold: 0, Enabled: true}

	events := eval.EvaluateRules([]Rule{rule}, budgetAt(99), time.Now())
	if len(events) != 0 {
		t.Errorf("unknown rule kind must be inert, got %v", events)
	}
}

func TestBurnRateRule(t *testing.T) {
	eval := NewEvaluator()
	now := time.Now()
	rule := Rule{ID: "burn-3x", Service: "checkout", SLOID: "*",
		Kind: KindBurnRate, Severity: SeverityCritical, Threshold: 3.0, Enabled: true}

	// budgetAt's sustainable baseline is 0.01 min/min, so the raw rate
	// is compared as a multiple of it.
	b := budgetAt(10)
	b.BurnRate = 0.035 // 3.5x sustainable
	events := eval.EvaluateRules([]Rule{rule}, b, now)
	if len(events) != 1 {
		t.Fatalf("burn rate above threshold should fire, got %v", events)
	}
	if got := events[0].Details["burn_rate_multiple"]; math.Abs(got-3.5) > 1e-9 {
		t.Errorf("burn_rate_multiple = %v, want 3.5", got)
	}

	b.BurnRate = 0.029 // 2.9x sustainable
	if events := eval.EvaluateRules([]Rule{rule}, b, now); len(events) != 0 {
		t.Errorf("burn rate below threshold fired: %v", events)
	}

	// A NaN burn rate means no established rate and must never fire.
	b.BurnRate = math.NaN()
	if events := eval.EvaluateRules([]Rule{rule}, b, now); len(events) != 0 {
		t.Errorf("NaN burn rate fired: %v", events)
	}

	// No period means no baseline to express a multiple against.
	b = budgetAt(10)
	b.PeriodStart, b.PeriodEnd = time.Time{}, time.Time{}
	b.BurnRate = 5.0
	if events := eval.EvaluateRules([]Rule{rule}, b, now); len(events) != 0 {
		t.Errorf("degenerate period fired: %v", events)
	}
}

func TestBurnRateRuleSustainedOverspend(t *testing.T) {
	eval := NewEvaluator()
	rules := DefaultRulesForTier("checkout", "critical")

	// 30d window at a 99.9% target with a constant 99% SLI burns ten
	// times the sustainable rate; the 3x rule must fire alongside the
	// threshold and exhaustion rules.
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour
	b := &budget.ErrorBudget{
		SLOID:              "checkout-availability",
		Service:            "checkout",
		PeriodStart:        end.Add(-window),
		PeriodEnd:          end,
		TotalBudgetMinutes: window.Minutes() * 0.001,
		BurnedMinutes:      window.Minutes() * 0.01,
		BurnRate:           0.01,
	}
	b.Status = budget.StatusForConsumption(b.PercentConsumed())

	events := eval.EvaluateRules(rules, b, end)
	fired := make(map[string]bool, len(events))
	for _, ev := range events {
		fired[ev.RuleID] = true
	}
	if !fired["checkout-auto-burn-rate"] {
		t.Errorf("10x sustained burn did not fire the 3x rule, fired: %v", fired)
	}
}

func TestBudgetExhaustionRule(t *testing.T) {
	eval := NewEvaluator()
	now := time.Now()
	rule := Rule{ID: "exhaustion-12h", Service: "checkout", SLOID: "*",
		Kind: KindBudgetExhaustion, Severity: SeverityCritical, Threshold: 12, Enabled: true}

	// 60 minutes remaining at 0.1 budget-min/min: 10 hours to empty.
	b := budgetAt(40)
	b.RemainingMinutes = 60
	b.BurnRate = 0.1
	events := eval.EvaluateRules([]Rule{rule}, b, now)
	if len(events) != 1 {
		t.Fatalf("projected 10h exhaustion should fire the 12h rule, got %v", events)
	}
	if got := events[0].Details["hours_until_exhaustion"]; math.Abs(got-10) > 1e-9 {
		t.Errorf("hours_until_exhaustion = %v, want 10", got)
	}

	// 120 minutes at 0.1: 20 hours out, beyond the threshold.
	b.RemainingMinutes = 120
	if events := eval.EvaluateRules([]Rule{rule}, b, now); len(events) != 0 {
		t.Errorf("20h projection fired a 12h rule: %v", events)
	}

	// Zero and negative burn rates never project an exhaustion.
	b.RemainingMinutes = 1
	b.BurnRate = 0
	if events := eval.EvaluateRules([]Rule{rule}, b, now); len(events) != 0 {
		t.Errorf("zero burn rate fired exhaustion: %v", events)
	}
	b.BurnRate = -0.5
	if events := eval.EvaluateRules([]Rule{rule}, b, now); len(events) != 0 {
		t.Errorf("negative burn rate fired exhaustion: %v", events)
	}
}

func TestSeverityOrdering(t *testing.T) {
	if Worst(SeverityInfo, SeverityWarning) != SeverityWarning {
		t.Error("WARNING should outrank INFO")
	}
	if Worst(SeverityCritical, SeverityWarning) != SeverityCritical {
		t.Error("CRITICAL should outrank WARNING")
	}
	if Worst("", SeverityInfo) != SeverityInfo {
		t.Error("any severity should outrank none")
	}
	if got := WorstOf([]Severity{SeverityInfo, SeverityCritical, SeverityWarning}); got != SeverityCritical {
		t.Errorf("WorstOf = %v, want CRITICAL", got)
	}
}
