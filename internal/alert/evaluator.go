package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonops/halcyon/internal/budget"
)

// Evaluator is a stateless rule engine over error budgets.
type Evaluator struct{}

// NewEvaluator creates a new alert evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvaluateRules checks every enabled rule matching the budget's
// (service, slo_id) and returns one Event per firing rule, in rule
// order. Disabled rules are skipped silently; a rule with an unknown
// kind is inert.
func (e *Evaluator) EvaluateRules(rules []Rule, b *budget.ErrorBudget, now time.Time) []Event {
	var events []Event
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !matches(rule, b) {
			continue
		}
		if ev, fired := e.evaluateRule(rule, b, now); fired {
			events = append(events, ev)
		}
	}
	return events
}

func matches(rule Rule, b *budget.ErrorBudget) bool {
	if rule.Service != b.Service {
		return false
	}
	return rule.SLOID == "*" || rule.SLOID == b.SLOID
}

func (e *Evaluator) evaluateRule(rule Rule, b *budget.ErrorBudget, now time.Time) (Event, bool) {
	switch rule.Kind {
	case KindBudgetThreshold:
		pct := b.PercentConsumed()
		if pct >= rule.Threshold*100 {
			return e.newEvent(rule, b, now,
				fmt.Sprintf("Error budget %.1f%% consumed for %s", pct, b.SLOID),
				fmt.Sprintf("Budget consumption %.1f%% crossed the %.0f%% threshold (%.1f of %.1f minutes burned)",
					pct, rule.Threshold*100, b.BurnedMinutes, b.TotalBudgetMinutes),
				map[string]float64{
					"percent_consumed": pct,
					"threshold":        rule.Threshold * 100,
					"burned_minutes":   b.BurnedMinutes,
					"total_minutes":    b.TotalBudgetMinutes,
				}), true
		}

	case KindBurnRate:
		// Threshold is a multiple of the sustainable baseline rate
		// (the rate that exhausts the budget exactly at period end).
		// NaN means no established rate or no baseline; NaN >= x is false.
		multiple := b.BurnRateMultiple()
		if multiple >= rule.Threshold {
			return e.newEvent(rule, b, now,
				fmt.Sprintf("Burn rate %.2fx for %s", multiple, b.SLOID),
				fmt.Sprintf("Burn rate %.2fx of sustainable reached the %.2fx threshold", multiple, rule.Threshold),
				map[string]float64{
					"burn_rate_multiple": multiple,
					"burn_rate":          b.BurnRate,
					"threshold":          rule.Threshold,
				}), true
		}

	case KindBudgetExhaustion:
		// Only meaningful while the budget is actually declining.
		if b.BurnRate > 0 {
			hoursLeft := b.RemainingMinutes / (b.BurnRate * 60)
			if hoursLeft <= rule.Threshold {
				return e.newEvent(rule, b, now,
					fmt.Sprintf("Budget exhaustion projected in %.1fh for %s", hoursLeft, b.SLOID),
					fmt.Sprintf("At the current burn rate the budget runs out in %.1f hours (threshold %.0fh)",
						hoursLeft, rule.Threshold),
					map[string]float64{
						"hours_until_exhaustion": hoursLeft,
						"threshold_hours":        rule.Threshold,
						"burn_rate":              b.BurnRate,
						"remaining_minutes":      b.RemainingMinutes,
					}), true
			}
		}
	}

	return Event{}, false
}

func (e *Evaluator) newEvent(rule Rule, b *budget.ErrorBudget, now time.Time, title, message string, details map[string]float64) Event {
	return Event{
		ID:          uuid.NewString(),
		RuleID:      rule.ID,
		Service:     b.Service,
		SLOID:       b.SLOID,
		Severity:    rule.Severity,
		Title:       title,
		Message:     message,
		Details:     details,
		TriggeredAt: now,
	}
}
