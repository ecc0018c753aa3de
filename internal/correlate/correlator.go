package correlate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/halcyonops/halcyon/internal/graph"
	"github.com/halcyonops/halcyon/internal/slo"
)

// Factor weights. They sum to 1 so the overall confidence stays in [0,1].
const (
	weightBurnRate   = 0.35
	weightProximity  = 0.25
	weightMagnitude  = 0.15
	weightDependency = 0.15
	weightHistory    = 0.10
)

// Repository is the slice of the storage layer the correlator consumes.
type Repository interface {
	GetBurnRateWindow(ctx context.Context, sloID string, start, end time.Time) (float64, error)
	GetRecentDeployments(ctx context.Context, service string, lookback time.Duration) ([]*Deployment, error)
	UpdateDeploymentCorrelation(ctx context.Context, deploymentID string, burnMinutes, confidence float64) error
}

// Correlator attributes error-budget burn to deployments via a weighted
// multi-factor score.
type Correlator struct {
	repo  Repository
	graph graph.DependencyGraph // may be nil
	cfg   Config
	log   *slog.Logger
}

// NewCorrelator creates a correlator. dependencyGraph may be nil when
// no catalog is available; the dependency factor then falls back to the
// manifest-declared downstream list.
func NewCorrelator(repo Repository, dependencyGraph graph.DependencyGraph, cfg Config, log *slog.Logger) *Correlator {
	if log == nil {
		log = slog.Default()
	}
	return &Correlator{repo: repo, graph: dependencyGraph, cfg: cfg, log: log}
}

// Correlate scores how likely deployment caused burn against s.
// detectedAt is when the burn was observed. When the confidence reaches
// the LOW band the deployment record's correlation fields are upserted.
func (c *Correlator) Correlate(ctx context.Context, deployment *Deployment, s *slo.SLO, downstream []string, detectedAt time.Time) (*Result, error) {
	if deployment == nil {
		return nil, fmt.Errorf("nil deployment")
	}
	if s == nil {
		return nil, fmt.Errorf("nil SLO")
	}

	beforeStart := deployment.DeployedAt.Add(-c.cfg.BeforeWindow)
	afterEnd := deployment.DeployedAt.Add(c.cfg.AfterWindow)

	beforeRate, err := c.repo.GetBurnRateWindow(ctx, s.ID, beforeStart, deployment.DeployedAt)
	if err != nil {
		return nil, fmt.Errorf("burn rate before deployment %s: %w", deployment.ID, err)
	}
	afterRate, err := c.repo.GetBurnRateWindow(ctx, s.ID, deployment.DeployedAt, afterEnd)
	if err != nil {
		return nil, fmt.Errorf("burn rate after deployment %s: %w", deployment.ID, err)
	}

	burnMinutes := afterRate * c.cfg.AfterWindow.Minutes()

	scores := Scores{
		BurnRate:   burnRateScore(beforeRate, afterRate),
		Proximity:  proximityScore(deployment.DeployedAt, detectedAt),
		Magnitude:  magnitudeScore(burnMinutes),
		Dependency: c.dependencyScore(ctx, deployment.Service, s.Service, downstream),
		History:    c.historyScoreOrZero(ctx, deployment),
	}

	confidence := weightBurnRate*scores.BurnRate +
		weightProximity*scores.Proximity +
		weightMagnitude*scores.Magnitude +
		weightDependency*scores.Dependency +
		weightHistory*scores.History

	result := &Result{
		DeploymentID: deployment.ID,
		Service:      deployment.Service,
		BurnMinutes:  burnMinutes,
		Confidence:   confidence,
		Method:       "weighted_multi_factor",
		Details:      scores,
	}

	if confidence >= ConfidenceLow {
		if err := c.repo.UpdateDeploymentCorrelation(ctx, deployment.ID, burnMinutes, confidence); err != nil {
			return nil, fmt.Errorf("update correlation for deployment %s: %w", deployment.ID, err)
		}
	}

	return result, nil
}

// burnRateScore compares the after-window burn rate to the before
// window. A 5x spike saturates the score; with a quiet before window
// any rate above 0.1 min/min saturates instead.
func burnRateScore(beforeRate, afterRate float64) float64 {
	if beforeRate == 0 {
		return math.Min(afterRate/0.1, 1)
	}
	return math.Min((afterRate/beforeRate)/5, 1)
}

// proximityScore decays exponentially with the gap between deploy time
// and burn detection, half-life about 21 minutes.
func proximityScore(deployedAt, detectedAt time.Time) float64 {
	minutes := detectedAt.Sub(deployedAt).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return math.Exp(-minutes / 30)
}

// magnitudeScore saturates at 10 minutes of burn.
func magnitudeScore(burnMinutes float64) float64 {
	if burnMinutes < 0 {
		return 0
	}
	return math.Min(burnMinutes/10, 1)
}

// dependencyScore rates the structural relationship between the
// deploying service and the affected service.
func (c *Correlator) dependencyScore(ctx context.Context, deploying, affected string, declaredDownstream []string) float64 {
	if deploying == affected {
		return 1.0
	}

	if c.graph != nil {
		upstream, err := c.graph.Upstream(ctx, affected)
		if err == nil {
			for _, svc := range upstream {
				if svc == deploying {
					return 1.0
				}
			}
			edges, err := c.graph.TransitiveUpstream(ctx, affected)
			if err == nil {
				for _, edge := range edges {
					if edge.Service == deploying && edge.Depth >= 2 {
						return 0.4
					}
				}
			}
			return 0.0
		}
		c.log.Warn("dependency graph query failed, falling back to declared downstream list",
			"service", affected, "error", err)
	}

	for _, svc := range declaredDownstream {
		if svc == affected {
			return 0.6
		}
	}
	return 0.0
}

// historyScoreOrZero is the fraction of the service's recent deployments
// whose prior correlation confidence reached MEDIUM. The fail-open to
// zero on repository errors is deliberate: history is a weak signal and
// must never sink a correlation run.
func (c *Correlator) historyScoreOrZero(ctx context.Context, deployment *Deployment) float64 {
	recent, err := c.repo.GetRecentDeployments(ctx, deployment.Service, c.cfg.HistoryLookback)
	if err != nil {
		c.log.Warn("deployment history lookup failed, scoring history as zero",
			"service", deployment.Service, "error", err)
		return 0.0
	}
	if len(recent) == 0 {
		return 0.0
	}

	var correlated int
	for _, d := range recent {
		if d.CorrelationConfidence >= ConfidenceMedium {
			correlated++
		}
	}
	score := float64(correlated) / float64(len(recent))
	return math.Min(score, 1)
}
