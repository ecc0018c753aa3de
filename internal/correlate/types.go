package correlate

import "time"

// Deployment is one deployment event. CorrelatedBurnMinutes and
// CorrelationConfidence are filled in post-hoc by the correlator.
type Deployment struct {
	ID          string    `json:"id"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	DeployedAt  time.Time `json:"deployed_at"`

	CommitSHA string `json:"commit_sha,omitempty"`
	Author    string `json:"author,omitempty"`
	PRNumber  int    `json:"pr_number,omitempty"`

	CorrelatedBurnMinutes float64 `json:"correlated_burn_minutes,omitempty"`
	CorrelationConfidence float64 `json:"correlation_confidence,omitempty"`
}

// Scores holds the five weighted component scores behind a confidence.
type Scores struct {
	BurnRate   float64 `json:"burn_rate_score"`
	Proximity  float64 `json:"proximity_score"`
	Magnitude  float64 `json:"magnitude_score"`
	Dependency float64 `json:"dependency_score"`
	History    float64 `json:"history_score"`
}

// Result attributes budget burn to a deployment with a confidence in [0,1].
type Result struct {
	DeploymentID string  `json:"deployment_id"`
	Service      string  `json:"service"`
	BurnMinutes  float64 `json:"burn_minutes"`
	Confidence   float64 `json:"confidence"`
	Method       string  `json:"method"`
	Details      Scores  `json:"details"`
}

// Confidence bands.
const (
	ConfidenceHigh   = 0.7
	ConfidenceMedium = 0.5
	ConfidenceLow    = 0.3
)

// ConfidenceLabel buckets a confidence into HIGH/MEDIUM/LOW/NONE.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= ConfidenceHigh:
		return "HIGH"
	case confidence >= ConfidenceMedium:
		return "MEDIUM"
	case confidence >= ConfidenceLow:
		return "LOW"
	default:
		return "NONE"
	}
}

// Config holds the correlation windows. The before/after windows bound
// the burn-rate comparison around the deployment; HistoryLookback bounds
// the deployment history factor.
type Config struct {
	BeforeWindow    time.Duration
	AfterWindow     time.Duration
	HistoryLookback time.Duration
}

// DefaultConfig returns the stock correlation windows.
func DefaultConfig() Config {
	return Config{
		BeforeWindow:    30 * time.Minute,
		AfterWindow:     120 * time.Minute,
		HistoryLookback: 168 * time.Hour,
	}
}
