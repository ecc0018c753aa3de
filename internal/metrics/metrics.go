// Package metrics exposes engine instrumentation via Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's instrumentation collectors.
type Metrics struct {
	Registry *prometheus.Registry

	EvaluationsTotal   *prometheus.CounterVec
	EvaluationFailures *prometheus.CounterVec
	AlertsFiredTotal   *prometheus.CounterVec
	GateDecisionsTotal *prometheus.CounterVec
	BudgetRemaining    *prometheus.GaugeVec
	BudgetBurnRate     *prometheus.GaugeVec
}

// New creates and registers the engine collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "halcyon_evaluations_total",
			Help: "Number of SLO evaluations performed.",
		}, []string{"service", "status"}),
		EvaluationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "halcyon_evaluation_failures_total",
			Help: "Number of SLO evaluations that failed.",
		}, []string{"service"}),
		AlertsFiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "halcyon_alerts_fired_total",
			Help: "Number of alert events produced.",
		}, []string{"service", "severity"}),
		GateDecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "halcyon_gate_decisions_total",
			Help: "Number of deployment gate decisions.",
		}, []string{"service", "result"}),
		BudgetRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "halcyon_budget_remaining_percent",
			Help: "Remaining error budget percentage per SLO.",
		}, []string{"service", "slo_id"}),
		BudgetBurnRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "halcyon_budget_burn_rate",
			Help: "Budget minutes consumed per wall-clock minute per SLO.",
		}, []string{"service", "slo_id"}),
	}

	registry.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationFailures,
		m.AlertsFiredTotal,
		m.GateDecisionsTotal,
		m.BudgetRemaining,
		m.BudgetBurnRate,
	)

	return m
}
