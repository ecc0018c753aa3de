package gate

// Result is a gate decision.
type Result string

const (
	ResultApproved Result = "APPROVED"
	ResultWarning  Result = "WARNING"
	ResultBlocked  Result = "BLOCKED"
)

// ExitCode maps a decision to the engine-wide exit code convention:
// 0 approved, 1 warning, 2 blocked.
func (r Result) ExitCode() int {
	switch r {
	case ResultBlocked:
		return 2
	case ResultWarning:
		return 1
	default:
		return 0
	}
}

// Condition overrides the blocking threshold when its predicate matches
// a request attribute. Conditions are ordered; the first match wins.
// Conditions never alter the warning threshold.
type Condition struct {
	Field    string  `yaml:"field" json:"field"`
	Equals   string  `yaml:"equals" json:"equals"`
	Blocking float64 `yaml:"blocking" json:"blocking"`
}

// Exception allows a team to bypass the gate. Only an exact team match
// with Allow == "always" bypasses.
type Exception struct {
	Team  string `yaml:"team" json:"team"`
	Allow string `yaml:"allow" json:"allow"`
}

// Policy holds warning/blocking thresholds as percentages of remaining
// budget. A nil Blocking means the policy is advisory-only and can
// never block.
type Policy struct {
	Warning    float64     `yaml:"warning" json:"warning"`
	Blocking   *float64    `yaml:"blocking,omitempty" json:"blocking,omitempty"`
	Conditions []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Exceptions []Exception `yaml:"exceptions,omitempty" json:"exceptions,omitempty"`
}

// ServiceRef names a downstream service and its declared criticality.
type ServiceRef struct {
	Name        string `yaml:"name" json:"name"`
	Criticality string `yaml:"criticality" json:"criticality"`
}

// CheckRequest carries everything the gate needs for one decision.
type CheckRequest struct {
	Service               string
	Tier                  string
	BudgetTotalMinutes    float64
	BudgetConsumedMinutes float64
	Downstream            []ServiceRef
	Team                  string

	// Attributes feed policy condition predicates (environment etc).
	Attributes map[string]string
}

// GateResult is the full decision with the thresholds that produced it.
type GateResult struct {
	Result                 Result   `json:"result"`
	BudgetRemainingPercent float64  `json:"budget_remaining_percentage"`
	WarningThreshold       float64  `json:"warning_threshold"`
	BlockingThreshold      *float64 `json:"blocking_threshold,omitempty"`

	// Blast radius enrichment.
	DownstreamServices []string `json:"downstream_services,omitempty"`
	HighCriticality    []string `json:"high_criticality_services,omitempty"`

	Recommendations []string `json:"recommendations"`
}
