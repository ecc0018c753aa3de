package alert

import "time"

// Kind identifies what a rule's threshold means.
type Kind string

const (
	// KindBudgetThreshold fires once percent consumed reaches
	// threshold*100. The comparison is >=, so exactly-at-threshold fires.
	KindBudgetThreshold Kind = "BUDGET_THRESHOLD"

	// KindBurnRate fires when the budget burn rate reaches the
	// threshold, expressed as multiples of the sustainable rate.
	KindBurnRate Kind = "BURN_RATE"

	// KindBudgetExhaustion fires when the projected hours until the
	// budget runs out drops to the threshold. Threshold unit is hours.
	KindBudgetExhaustion Kind = "BUDGET_EXHAUSTION"
)

// Severity orders alert urgency. The zero ordering is INFO < WARNING < CRITICAL.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the position of s in the severity order. Unknown
// severities rank below INFO.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Worst returns the higher-ranked of a and b.
func Worst(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// WorstOf returns the highest-ranked severity in the set, or "" for an
// empty set.
func WorstOf(severities []Severity) Severity {
	var worst Severity
	for _, s := range severities {
		worst = Worst(worst, s)
	}
	return worst
}

// Rule is one alert rule. SLOID may be the wildcard "*", matching every
// SLO of the service. Threshold semantics depend on Kind.
type Rule struct {
	ID       string   `yaml:"id" json:"id"`
	Service  string   `yaml:"service" json:"service"`
	SLOID    string   `yaml:"slo_id" json:"slo_id"`
	Kind     Kind     `yaml:"kind" json:"kind"`
	Severity Severity `yaml:"severity" json:"severity"`

	Threshold float64 `yaml:"threshold" json:"threshold"`
	Enabled   bool    `yaml:"enabled" json:"enabled"`

	// Channels names the notification channels this rule routes to.
	Channels []string `yaml:"channels,omitempty" json:"channels,omitempty"`
}

// Event is the immutable record of one rule firing.
type Event struct {
	ID          string             `json:"id"`
	RuleID      string             `json:"rule_id"`
	Service     string             `json:"service"`
	SLOID       string             `json:"slo_id"`
	Severity    Severity           `json:"severity"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
	Details     map[string]float64 `json:"details"`
	TriggeredAt time.Time          `json:"triggered_at"`
}
