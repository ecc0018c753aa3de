package alert

import "fmt"

// DefaultRulesForTier synthesizes the standard rule set for a service
// tier when a manifest opts in to auto-generated alerting.
//
// Critical-tier services get the full set: budget warnings at 75% and
// 90% consumption, a 3x burn-rate alert, and a 12-hour exhaustion
// projection. Standard tier drops the burn-rate rule and relaxes the
// exhaustion window to 24 hours; low tier only gets a 90% budget
// warning.
func DefaultRulesForTier(service, tier string) []Rule {
	switch tier {
	case "critical":
		return []Rule{
			autoRule(service, "budget-warning", KindBudgetThreshold, SeverityWarning, 0.75),
			autoRule(service, "budget-critical", KindBudgetThreshold, SeverityCritical, 0.90),
			autoRule(service, "burn-rate", KindBurnRate, SeverityCritical, 3.0),
			autoRule(service, "exhaustion", KindBudgetExhaustion, SeverityCritical, 12),
		}
	case "low":
		return []Rule{
			autoRule(service, "budget-warning", KindBudgetThreshold, SeverityWarning, 0.90),
		}
	default:
		// Standard tier, and the fallback for unknown tiers.
		return []Rule{
			autoRule(service, "budget-warning", KindBudgetThreshold, SeverityWarning, 0.75),
			autoRule(service, "budget-critical", KindBudgetThreshold, SeverityCritical, 0.90),
			autoRule(service, "exhaustion", KindBudgetExhaustion, SeverityWarning, 24),
		}
	}
}

func autoRule(service, suffix string, kind Kind, sev Severity, threshold float64) Rule {
	return Rule{
		ID:        fmt.Sprintf("%s-auto-%s", service, suffix),
		Service:   service,
		SLOID:     "*",
		Kind:      kind,
		Severity:  sev,
		Threshold: threshold,
		Enabled:   true,
	}
}
