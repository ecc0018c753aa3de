package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halcyonops/halcyon/internal/alert"
	"github.com/halcyonops/halcyon/internal/budget"
	"github.com/halcyonops/halcyon/internal/correlate"
	"github.com/halcyonops/halcyon/internal/drift"
	"github.com/halcyonops/halcyon/internal/slo"
	"github.com/halcyonops/halcyon/internal/storage"
)

// Store implements storage.Repository using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL repository
func NewStore(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StoreSLO persists an SLO definition, upserting on ID.
func (s *Store) StoreSLO(ctx context.Context, def *slo.SLO) error {
	labelsJSON, err := json.Marshal(def.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO slos (id, service, name, target, window_duration, window_type, query, owner, labels_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			service = EXCLUDED.service,
			name = EXCLUDED.name,
			target = EXCLUDED.target,
			window_duration = EXCLUDED.window_duration,
			window_type = EXCLUDED.window_type,
			query = EXCLUDED.query,
			owner = EXCLUDED.owner,
			labels_json = EXCLUDED.labels_json,
			updated_at = NOW()`,
		def.ID, def.Service, def.Name, def.Target,
		def.Window.Duration, string(def.Window.Type),
		def.Query, def.Owner, string(labelsJSON))
	if err != nil {
		return fmt.Errorf("failed to store SLO: %w", err)
	}
	return nil
}

// GetSLO retrieves an SLO by ID.
func (s *Store) GetSLO(ctx context.Context, id string) (*slo.SLO, error) {
	var def slo.SLO
	var windowType, labelsJSON string
	err := s.pool.QueryRow(ctx, `
		SELECT id, service, name, target, window_duration, window_type, query, owner, labels_json
		FROM slos WHERE id = $1`, id).Scan(
		&def.ID, &def.Service, &def.Name, &def.Target,
		&def.Window.Duration, &windowType, &def.Query, &def.Owner, &labelsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get SLO %s: %w", id, err)
	}
	def.Window.Type = slo.WindowType(windowType)
	if err := json.Unmarshal([]byte(labelsJSON), &def.Labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
	}
	return &def, nil
}

// GetSLOsByService retrieves all SLOs for a service.
func (s *Store) GetSLOsByService(ctx context.Context, service string) ([]*slo.SLO, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, service, name, target, window_duration, window_type, query, owner, labels_json
		FROM slos WHERE service = $1 ORDER BY id`, service)
	if err != nil {
		return nil, fmt.Errorf("failed to query SLOs for %s: %w", service, err)
	}
	defer rows.Close()

	var slos []*slo.SLO
	for rows.Next() {
		var def slo.SLO
		var windowType, labelsJSON string
		if err := rows.Scan(&def.ID, &def.Service, &def.Name, &def.Target,
			&def.Window.Duration, &windowType, &def.Query, &def.Owner, &labelsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan SLO: %w", err)
		}
		def.Window.Type = slo.WindowType(windowType)
		if err := json.Unmarshal([]byte(labelsJSON), &def.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
		slos = append(slos, &def)
	}
	return slos, rows.Err()
}

// CreateOrUpdateErrorBudget upserts the budget record for its
// (slo_id, period_start, period_end) key.
func (s *Store) CreateOrUpdateErrorBudget(ctx context.Context, b *budget.ErrorBudget) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO error_budgets (
			id, slo_id, service, period_start, period_end,
			total_budget_minutes, burned_minutes, remaining_minutes,
			incident_burn_minutes, deployment_burn_minutes, breach_burn_minutes,
			status, burn_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (slo_id, period_start, period_end) DO UPDATE SET
			total_budget_minutes = EXCLUDED.total_budget_minutes,
			burned_minutes = EXCLUDED.burned_minutes,
			remaining_minutes = EXCLUDED.remaining_minutes,
			incident_burn_minutes = EXCLUDED.incident_burn_minutes,
			deployment_burn_minutes = EXCLUDED.deployment_burn_minutes,
			breach_burn_minutes = EXCLUDED.breach_burn_minutes,
			status = EXCLUDED.status,
			burn_rate = EXCLUDED.burn_rate,
			updated_at = NOW()`,
		b.ID, b.SLOID, b.Service, b.PeriodStart, b.PeriodEnd,
		b.TotalBudgetMinutes, b.BurnedMinutes, b.RemainingMinutes,
		b.IncidentBurnMinutes, b.DeploymentBurnMinutes, b.BreachBurnMinutes,
		string(b.Status), b.BurnRate)
	if err != nil {
		return fmt.Errorf("failed to upsert error budget: %w", err)
	}
	return nil
}

// GetLatestErrorBudget returns the most recent budget record for an SLO.
func (s *Store) GetLatestErrorBudget(ctx context.Context, sloID string) (*budget.ErrorBudget, error) {
	var b budget.ErrorBudget
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, slo_id, service, period_start, period_end,
			total_budget_minutes, burned_minutes, remaining_minutes,
			incident_burn_minutes, deployment_burn_minutes, breach_burn_minutes,
			status, burn_rate
		FROM error_budgets WHERE slo_id = $1
		ORDER BY period_end DESC LIMIT 1`, sloID).Scan(
		&b.ID, &b.SLOID, &b.Service, &b.PeriodStart, &b.PeriodEnd,
		&b.TotalBudgetMinutes, &b.BurnedMinutes, &b.RemainingMinutes,
		&b.IncidentBurnMinutes, &b.DeploymentBurnMinutes, &b.BreachBurnMinutes,
		&status, &b.BurnRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest budget for %s: %w", sloID, err)
	}
	b.Status = budget.Status(status)
	return &b, nil
}

// GetBudgetRatioHistory returns (period_end, remaining/total) points for
// drift analysis, oldest first.
func (s *Store) GetBudgetRatioHistory(ctx context.Context, sloID string, since time.Time) ([]drift.Point, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT period_end, remaining_minutes, total_budget_minutes
		FROM error_budgets
		WHERE slo_id = $1 AND period_end >= $2 AND total_budget_minutes > 0
		ORDER BY period_end ASC`, sloID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget history for %s: %w", sloID, err)
	}
	defer rows.Close()

	var points []drift.Point
	for rows.Next() {
		var ts time.Time
		var remaining, total float64
		if err := rows.Scan(&ts, &remaining, &total); err != nil {
			return nil, fmt.Errorf("failed to scan budget history: %w", err)
		}
		points = append(points, drift.Point{Timestamp: ts, Ratio: remaining / total})
	}
	return points, rows.Err()
}

// RecordBurnRateSample stores one burn-rate observation.
func (s *Store) RecordBurnRateSample(ctx context.Context, sloID string, ts time.Time, rate float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO burn_rate_samples (slo_id, sampled_at, rate) VALUES ($1, $2, $3)`,
		sloID, ts, rate)
	if err != nil {
		return fmt.Errorf("failed to record burn rate sample: %w", err)
	}
	return nil
}

// GetBurnRateWindow returns the mean burn rate over [start, end],
// or 0 when no samples fall inside the window.
func (s *Store) GetBurnRateWindow(ctx context.Context, sloID string, start, end time.Time) (float64, error) {
	var rate *float64
	err := s.pool.QueryRow(ctx, `
		SELECT AVG(rate) FROM burn_rate_samples
		WHERE slo_id = $1 AND sampled_at >= $2 AND sampled_at <= $3`,
		sloID, start, end).Scan(&rate)
	if err != nil {
		return 0, fmt.Errorf("failed to query burn rate window for %s: %w", sloID, err)
	}
	if rate == nil {
		return 0, nil
	}
	return *rate, nil
}

// RecordDeployment persists a deployment event, upserting on ID.
func (s *Store) RecordDeployment(ctx context.Context, d *correlate.Deployment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deployments (id, service, environment, deployed_at, commit_sha, author, pr_number,
			correlated_burn_minutes, correlation_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			service = EXCLUDED.service,
			environment = EXCLUDED.environment,
			deployed_at = EXCLUDED.deployed_at,
			commit_sha = EXCLUDED.commit_sha,
			author = EXCLUDED.author,
			pr_number = EXCLUDED.pr_number`,
		d.ID, d.Service, d.Environment, d.DeployedAt, d.CommitSHA, d.Author, d.PRNumber,
		d.CorrelatedBurnMinutes, d.CorrelationConfidence)
	if err != nil {
		return fmt.Errorf("failed to record deployment: %w", err)
	}
	return nil
}

// GetRecentDeployments returns deployments for a service within the
// lookback window, newest first.
func (s *Store) GetRecentDeployments(ctx context.Context, service string, lookback time.Duration) ([]*correlate.Deployment, error) {
	cutoff := time.Now().Add(-lookback)
	rows, err := s.pool.Query(ctx, `
		SELECT id, service, environment, deployed_at, commit_sha, author, pr_number,
			correlated_burn_minutes, correlation_confidence
		FROM deployments
		WHERE service = $1 AND deployed_at >= $2
		ORDER BY deployed_at DESC`, service, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployments for %s: %w", service, err)
	}
	defer rows.Close()

	var deployments []*correlate.Deployment
	for rows.Next() {
		var d correlate.Deployment
		if err := rows.Scan(&d.ID, &d.Service, &d.Environment, &d.DeployedAt,
			&d.CommitSHA, &d.Author, &d.PRNumber,
			&d.CorrelatedBurnMinutes, &d.CorrelationConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, &d)
	}
	return deployments, rows.Err()
}

// UpdateDeploymentCorrelation writes the correlation outcome back to
// the deployment record.
func (s *Store) UpdateDeploymentCorrelation(ctx context.Context, deploymentID string, burnMinutes, confidence float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE deployments
		SET correlated_burn_minutes = $1, correlation_confidence = $2
		WHERE id = $3`, burnMinutes, confidence, deploymentID)
	if err != nil {
		return fmt.Errorf("failed to update deployment correlation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// StoreAlertEvent persists an alert event.
func (s *Store) StoreAlertEvent(ctx context.Context, ev *alert.Event) error {
	detailsJSON, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alert_events (id, rule_id, service, slo_id, severity, title, message, details_json, triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.RuleID, ev.Service, ev.SLOID, string(ev.Severity),
		ev.Title, ev.Message, string(detailsJSON), ev.TriggeredAt)
	if err != nil {
		return fmt.Errorf("failed to store alert event: %w", err)
	}
	return nil
}

// RecentAlertEvents returns the most recent alert events, newest first.
func (s *Store) RecentAlertEvents(ctx context.Context, limit int) ([]*alert.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, rule_id, service, slo_id, severity, title, message, details_json, triggered_at
		FROM alert_events ORDER BY triggered_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert events: %w", err)
	}
	defer rows.Close()

	var events []*alert.Event
	for rows.Next() {
		var ev alert.Event
		var severity, detailsJSON string
		if err := rows.Scan(&ev.ID, &ev.RuleID, &ev.Service, &ev.SLOID, &severity,
			&ev.Title, &ev.Message, &detailsJSON, &ev.TriggeredAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		ev.Severity = alert.Severity(severity)
		if err := json.Unmarshal([]byte(detailsJSON), &ev.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal details: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
