// Package portfolio runs the full evaluation pipeline (collect sli,
// compute budget, evaluate rules, dispatch) across a set of services.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/halcyonops/halcyon/internal/adapter"
	"github.com/halcyonops/halcyon/internal/alert"
	"github.com/halcyonops/halcyon/internal/budget"
	"github.com/halcyonops/halcyon/internal/manifest"
	"github.com/halcyonops/halcyon/internal/metrics"
	"github.com/halcyonops/halcyon/internal/notify"
	"github.com/halcyonops/halcyon/internal/slo"
	"github.com/halcyonops/halcyon/internal/storage"
)

// ServiceResult is one service's pipeline outcome. A failed SLO or
// collaborator call lands in Errors; it never aborts sibling services.
type ServiceResult struct {
	Service  string                `json:"service"`
	Tier     string                `json:"tier"`
	Budgets  []*budget.ErrorBudget `json:"budgets"`
	Events   []alert.Event         `json:"events"`
	Severity alert.Severity        `json:"severity,omitempty"`
	Errors   []string              `json:"errors,omitempty"`
}

// ExitCode maps the service's worst severity to the engine convention.
func (r *ServiceResult) ExitCode() int {
	switch r.Severity {
	case alert.SeverityCritical:
		return 2
	case alert.SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Runner evaluates a portfolio of service manifests.
type Runner struct {
	source     adapter.TimeSeriesSource
	repo       storage.Repository // may be nil
	calc       *budget.Calculator
	evaluator  *alert.Evaluator
	dispatcher *notify.Dispatcher // may be nil
	metrics    *metrics.Metrics   // may be nil
	log        *slog.Logger

	// Step is the SLI sampling resolution requested from the source.
	Step time.Duration
	// Parallelism bounds concurrent service pipelines.
	Parallelism int
}

// NewRunner creates a portfolio runner. repo, dispatcher and m may be
// nil; the affected stages are then skipped.
func NewRunner(source adapter.TimeSeriesSource, repo storage.Repository, dispatcher *notify.Dispatcher, m *metrics.Metrics, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		source:      source,
		repo:        repo,
		calc:        budget.NewCalculator(),
		evaluator:   alert.NewEvaluator(),
		dispatcher:  dispatcher,
		metrics:     m,
		log:         log,
		Step:        5 * time.Minute,
		Parallelism: 8,
	}
}

// Run evaluates every manifest's service independently and in parallel.
// One service's failure never aborts the others. Results come back in
// manifest order.
func (r *Runner) Run(ctx context.Context, manifests []manifest.WithFile, now time.Time) []ServiceResult {
	results := make([]ServiceResult, len(manifests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Parallelism)

	for i, wf := range manifests {
		i, wf := i, wf
		g.Go(func() error {
			results[i] = r.EvaluateService(gctx, wf.Manifest, now)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// WorstSeverity aggregates the worst alert severity across results.
func WorstSeverity(results []ServiceResult) alert.Severity {
	var worst alert.Severity
	for _, res := range results {
		worst = alert.Worst(worst, res.Severity)
	}
	return worst
}

// ExitCode maps the worst severity across results to the engine-wide
// exit code convention.
func ExitCode(results []ServiceResult) int {
	switch WorstSeverity(results) {
	case alert.SeverityCritical:
		return 2
	case alert.SeverityWarning:
		return 1
	default:
		return 0
	}
}

// EvaluateService runs the pipeline for one service. Per-SLO failures
// are recorded in the result's Errors list.
func (r *Runner) EvaluateService(ctx context.Context, m *manifest.Manifest, now time.Time) ServiceResult {
	result := ServiceResult{
		Service: m.Metadata.Service,
		Tier:    m.Metadata.Tier,
	}

	rules := m.Rules()

	for _, s := range m.SLOs() {
		b, err := r.evaluateSLO(ctx, s, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("slo %s: %v", s.ID, err))
			if r.metrics != nil {
				r.metrics.EvaluationFailures.WithLabelValues(m.Metadata.Service).Inc()
			}
			continue
		}
		result.Budgets = append(result.Budgets, b)

		events := r.evaluator.EvaluateRules(rules, b, now)
		result.Events = append(result.Events, events...)

		r.persist(ctx, b, events)
		r.observe(b, events)
	}

	for _, ev := range result.Events {
		result.Severity = alert.Worst(result.Severity, ev.Severity)
	}

	if r.dispatcher != nil && len(result.Events) > 0 {
		r.dispatcher.DispatchAll(ctx, result.Events)
	}

	return result
}

func (r *Runner) evaluateSLO(ctx context.Context, s *slo.SLO, now time.Time) (*budget.ErrorBudget, error) {
	periodStart, err := s.Window.StartTime(now)
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}

	measurements, err := r.source.GetSLITimeSeries(ctx, s.Query, periodStart, now, r.Step)
	if err != nil {
		return nil, err
	}

	return r.calc.Compute(s, periodStart, now, measurements)
}

// persist writes the budget, a burn-rate sample and the fired events to
// the repository. Persistence failures are warnings, not evaluation
// failures.
func (r *Runner) persist(ctx context.Context, b *budget.ErrorBudget, events []alert.Event) {
	if r.repo == nil {
		return
	}

	if err := r.repo.CreateOrUpdateErrorBudget(ctx, b); err != nil {
		r.log.Warn("failed to persist error budget", "slo_id", b.SLOID, "error", err)
	}
	if err := r.repo.RecordBurnRateSample(ctx, b.SLOID, b.PeriodEnd, b.BurnRate); err != nil {
		r.log.Warn("failed to record burn rate sample", "slo_id", b.SLOID, "error", err)
	}
	for i := range events {
		if err := r.repo.StoreAlertEvent(ctx, &events[i]); err != nil {
			r.log.Warn("failed to store alert event", "event_id", events[i].ID, "error", err)
		}
	}
}

func (r *Runner) observe(b *budget.ErrorBudget, events []alert.Event) {
	if r.metrics == nil {
		return
	}
	r.metrics.EvaluationsTotal.WithLabelValues(b.Service, string(b.Status)).Inc()
	r.metrics.BudgetRemaining.WithLabelValues(b.Service, b.SLOID).Set(b.PercentRemaining())
	r.metrics.BudgetBurnRate.WithLabelValues(b.Service, b.SLOID).Set(b.BurnRate)
	for _, ev := range events {
		r.metrics.AlertsFiredTotal.WithLabelValues(ev.Service, string(ev.Severity)).Inc()
	}
}
