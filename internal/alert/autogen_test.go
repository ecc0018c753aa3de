package alert

import "testing"

func TestDefaultRulesForTier(t *testing.T) {
	tests := []struct {
		tier      string
		wantKinds []Kind
		wantSevs  []Severity
	}{
		{
			tier:      "critical",
			wantKinds: []Kind{KindBudgetThreshold, KindBudgetThreshold, KindBurnRate, KindBudgetExhaustion},
			wantSevs:  []Severity{SeverityWarning, SeverityCritical, SeverityCritical, SeverityCritical},
		},
		{
			tier:      "standard",
			wantKinds: []Kind{KindBudgetThreshold, KindBudgetThreshold, KindBudgetExhaustion},
			wantSevs:  []Severity{SeverityWarning, SeverityCritical, SeverityWarning},
		},
		{
			tier:      "low",
			wantKinds: []Kind{KindBudgetThreshold},
			wantSevs:  []Severity{SeverityWarning},
		},
		{
			// Unknown tiers fall back to the standard set.
			tier:      "experimental",
			wantKinds: []Kind{KindBudgetThreshold, KindBudgetThreshold, KindBudgetExhaustion},
			wantSevs:  []Severity{SeverityWarning, SeverityCritical, SeverityWarning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			rules := DefaultRulesForTier("checkout", tt.tier)
			if len(rules) != len(tt.wantKinds) {
				t.Fatalf("got %d rules, want %d", len(rules), len(tt.wantKinds))
			}
			for i, rule := range rules {
				if rule.Kind != tt.wantKinds[i] {
					t.Errorf("rule[%d].Kind = %v, want %v", i, rule.Kind, tt.wantKinds[i])
				}
				if rule.Severity != tt.wantSevs[i] {
					t.Errorf("rule[%d].Severity = %v, want %v", i, rule.Severity, tt.wantSevs[i])
				}
				if !rule.Enabled {
					t.Errorf("rule[%d] not enabled", i)
				}
				if rule.SLOID != "*" {
					t.Errorf("rule[%d].SLOID = %q, want wildcard", i, rule.SLOID)
				}
				if rule.Service != "checkout" {
					t.Errorf("rule[%d].Service = %q", i, rule.Service)
				}
			}
		})
	}
}

func TestDefaultRulesCriticalThresholds(t *testing.T) {
	rules := DefaultRulesForTier("checkout", "critical")

	want := []float64{0.75, 0.90, 3.0, 12}
	for i, rule := range rules {
		if rule.Threshold != want[i] {
			t.Errorf("rule[%d].Threshold = %v, want %v", i, rule.Threshold, want[i])
		}
	}
}
