package gate

import "fmt"

// Default per-tier policies. Unknown tiers fall back to standard.
func defaultPolicyForTier(tier string) Policy {
	switch tier {
	case "critical":
		blocking := 10.0
		return Policy{Warning: 20, Blocking: &blocking}
	case "low":
		return Policy{Warning: 30}
	default:
		return Policy{Warning: 20}
	}
}

// Gate maps remaining budget plus a tier policy to a deployment decision.
type Gate struct{}

// NewGate creates a new deployment gate.
func NewGate() *Gate {
	return &Gate{}
}

// Check produces the gate decision for req. A nil policy selects the
// tier default. Decision order: exception bypass, condition-adjusted
// blocking, blocking, warning, approved.
func (g *Gate) Check(req CheckRequest, policy *Policy) GateResult {
	p := defaultPolicyForTier(req.Tier)
	if policy != nil {
		p = *policy
	}

	remaining := remainingPercent(req.BudgetTotalMinutes, req.BudgetConsumedMinutes)

	result := GateResult{
		Result:                 ResultApproved,
		BudgetRemainingPercent: remaining,
		WarningThreshold:       p.Warning,
		BlockingThreshold:      p.Blocking,
	}
	g.enrichBlastRadius(&result, req.Downstream)

	// Team exceptions bypass the budget entirely, but only on an exact
	// team match with allow "always". No team supplied, no bypass.
	if req.Team != "" {
		for _, ex := range p.Exceptions {
			if ex.Team == req.Team && ex.Allow == "always" {
				result.Recommendations = append(result.Recommendations,
					fmt.Sprintf("approved via team exception for %q", req.Team))
				return result
			}
		}
	}

	blocking := p.Blocking
	for _, cond := range p.Conditions {
		if req.Attributes[cond.Field] == cond.Equals {
			b := cond.Blocking
			blocking = &b
			result.BlockingThreshold = blocking
			break
		}
	}

	if blocking != nil && remaining <= *blocking {
		result.Result = ResultBlocked
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("deployment blocked: %.1f%% budget remaining is at or below the %.1f%% blocking threshold", remaining, *blocking))
		result.Recommendations = append(result.Recommendations,
			"hold non-essential deployments until the error budget recovers")
		return result
	}

	if remaining <= p.Warning {
		result.Result = ResultWarning
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("proceed with caution: %.1f%% budget remaining is at or below the %.1f%% warning threshold", remaining, p.Warning))
		return result
	}

	result.Recommendations = append(result.Recommendations,
		fmt.Sprintf("%.1f%% error budget remaining, safe to deploy", remaining))
	return result
}

// remainingPercent treats a zero total budget as fully remaining:
// no budget data is not a reason to block a deployment.
func remainingPercent(total, consumed float64) float64 {
	if total <= 0 {
		return 100
	}
	remaining := (total - consumed) / total * 100
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (g *Gate) enrichBlastRadius(result *GateResult, downstream []ServiceRef) {
	if len(downstream) == 0 {
		return
	}
	for _, ref := range downstream {
		result.DownstreamServices = append(result.DownstreamServices, ref.Name)
		if ref.Criticality == "critical" || ref.Criticality == "high" {
			result.HighCriticality = append(result.HighCriticality, ref.Name)
		}
	}
	rec := fmt.Sprintf("blast radius: %d downstream services affected", len(result.DownstreamServices))
	if n := len(result.HighCriticality); n > 0 {
		rec += fmt.Sprintf(" (%d high criticality)", n)
	}
	result.Recommendations = append(result.Recommendations, rec)
}
