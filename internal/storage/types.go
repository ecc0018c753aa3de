package storage

import (
	"context"
	"errors"
	"time"

	"github.com/halcyonops/halcyon/internal/alert"
	"github.com/halcyonops/halcyon/internal/budget"
	"github.com/halcyonops/halcyon/internal/correlate"
	"github.com/halcyonops/halcyon/internal/drift"
	"github.com/halcyonops/halcyon/internal/slo"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository supplies and accepts engine domain objects. Implementations
// own their upsert atomicity; the engine never takes locks.
type Repository interface {
	// SLO definitions.
	StoreSLO(ctx context.Context, s *slo.SLO) error
	GetSLO(ctx context.Context, id string) (*slo.SLO, error)
	GetSLOsByService(ctx context.Context, service string) ([]*slo.SLO, error)

	// Error budgets, one logical record per (slo, period).
	CreateOrUpdateErrorBudget(ctx context.Context, b *budget.ErrorBudget) error
	GetLatestErrorBudget(ctx context.Context, sloID string) (*budget.ErrorBudget, error)
	GetBudgetRatioHistory(ctx context.Context, sloID string, since time.Time) ([]drift.Point, error)

	// Burn-rate observations.
	RecordBurnRateSample(ctx context.Context, sloID string, ts time.Time, rate float64) error
	GetBurnRateWindow(ctx context.Context, sloID string, start, end time.Time) (float64, error)

	// Deployments.
	RecordDeployment(ctx context.Context, d *correlate.Deployment) error
	GetRecentDeployments(ctx context.Context, service string, lookback time.Duration) ([]*correlate.Deployment, error)
	UpdateDeploymentCorrelation(ctx context.Context, deploymentID string, burnMinutes, confidence float64) error

	// Alert events.
	StoreAlertEvent(ctx context.Context, ev *alert.Event) error
	RecentAlertEvents(ctx context.Context, limit int) ([]*alert.Event, error)

	Close() error
}
