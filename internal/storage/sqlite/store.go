package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halcyonops/halcyon/internal/alert"
	"github.com/halcyonops/halcyon/internal/budget"
	"github.com/halcyonops/halcyon/internal/correlate"
	"github.com/halcyonops/halcyon/internal/drift"
	"github.com/halcyonops/halcyon/internal/slo"
	"github.com/halcyonops/halcyon/internal/storage"
)

// Store implements storage.Repository using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite repository with the given database path
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// StoreSLO persists an SLO definition, upserting on ID.
func (s *Store) StoreSLO(ctx context.Context, def *slo.SLO) error {
	labelsJSON, err := json.Marshal(def.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	query := `
		INSERT INTO slos (id, service, name, target, window_duration, window_type, query, owner, labels_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			service = excluded.service,
			name = excluded.name,
			target = excluded.target,
			window_duration = excluded.window_duration,
			window_type = excluded.window_type,
			query = excluded.query,
			owner = excluded.owner,
			labels_json = excluded.labels_json,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.ExecContext(ctx, query,
		def.ID, def.Service, def.Name, def.Target,
		def.Window.Duration, string(def.Window.Type),
		def.Query, def.Owner, string(labelsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store SLO: %w", err)
	}
	return nil
}

// GetSLO retrieves an SLO by ID.
func (s *Store) GetSLO(ctx context.Context, id string) (*slo.SLO, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, service, name, target, window_duration, window_type, query, owner, labels_json
		FROM slos WHERE id = ?`, id)

	def, err := scanSLO(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get SLO %s: %w", id, err)
	}
	return def, nil
}

// GetSLOsByService retrieves all SLOs for a service.
func (s *Store) GetSLOsByService(ctx context.Context, service string) ([]*slo.SLO, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service, name, target, window_duration, window_type, query, owner, labels_json
		FROM slos WHERE service = ? ORDER BY id`, service)
	if err != nil {
		return nil, fmt.Errorf("failed to query SLOs for %s: %w", service, err)
	}
	defer rows.Close()

	var slos []*slo.SLO
	for rows.Next() {
		def, err := scanSLO(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan SLO: %w", err)
		}
		slos = append(slos, def)
	}
	return slos, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSLO(row rowScanner) (*slo.SLO, error) {
	var def slo.SLO
	var windowType, labelsJSON string
	err := row.Scan(&def.ID, &def.Service, &def.Name, &def.Target,
		&def.Window.Duration, &windowType, &def.Query, &def.Owner, &labelsJSON)
	if err != nil {
		return nil, err
	}
	def.Window.Type = slo.WindowType(windowType)
	if err := json.Unmarshal([]byte(labelsJSON), &def.Labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
	}
	return &def, nil
}

// CreateOrUpdateErrorBudget upserts the budget record for its
// (slo_id, period_start, period_end) key.
func (s *Store) CreateOrUpdateErrorBudget(ctx context.Context, b *budget.ErrorBudget) error {
	query := `
		INSERT INTO error_budgets (
			id, slo_id, service, period_start, period_end,
			total_budget_minutes, burned_minutes, remaining_minutes,
			incident_burn_minutes, deployment_burn_minutes, breach_burn_minutes,
			status, burn_rate
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slo_id, period_start, period_end) DO UPDATE SET
			total_budget_minutes = excluded.total_budget_minutes,
			burned_minutes = excluded.burned_minutes,
			remaining_minutes = excluded.remaining_minutes,
			incident_burn_minutes = excluded.incident_burn_minutes,
			deployment_burn_minutes = excluded.deployment_burn_minutes,
			breach_burn_minutes = excluded.breach_burn_minutes,
			status = excluded.status,
			burn_rate = excluded.burn_rate,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.SLOID, b.Service, b.PeriodStart, b.PeriodEnd,
		b.TotalBudgetMinutes, b.BurnedMinutes, b.RemainingMinutes,
		b.IncidentBurnMinutes, b.DeploymentBurnMinutes, b.BreachBurnMinutes,
		string(b.Status), b.BurnRate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert error budget: %w", err)
	}
	return nil
}

// GetLatestErrorBudget returns the most recent budget record for an SLO.
func (s *Store) GetLatestErrorBudget(ctx context.Context, sloID string) (*budget.ErrorBudget, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slo_id, service, period_start, period_end,
			total_budget_minutes, burned_minutes, remaining_minutes,
			incident_burn_minutes, deployment_burn_minutes, breach_burn_minutes,
			status, burn_rate
		FROM error_budgets WHERE slo_id = ?
		ORDER BY period_end DESC LIMIT 1`, sloID)

	var b budget.ErrorBudget
	var status string
	err := row.Scan(&b.ID, &b.SLOID, &b.Service, &b.PeriodStart, &b.PeriodEnd,
		&b.TotalBudgetMinutes, &b.BurnedMinutes, &b.RemainingMinutes,
		&b.IncidentBurnMinutes, &b.DeploymentBurnMinutes, &b.BreachBurnMinutes,
		&status, &b.BurnRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT period_end, remaining_minutes, total_budget_minutes
		FROM error_budgets
		WHERE slo_id = ? AND period_end >= ? AND total_budget_minutes > 0
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO burn_rate_samples (slo_id, sampled_at, rate) VALUES (?, ?, ?)`,
		sloID, ts, rate)
	if err != nil {
		return fmt.Errorf("failed to record burn rate sample: %w", err)
	}
	return nil
}

// GetBurnRateWindow returns the mean burn rate over [start, end],
// or 0 when no samples fall inside the window.
func (s *Store) GetBurnRateWindow(ctx context.Context, sloID string, start, end time.Time) (float64, error) {
	var rate sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(rate) FROM burn_rate_samples
		WHERE slo_id = ? AND sampled_at >= ? AND sampled_at <= ?`,
		sloID, start, end).Scan(&rate)
	if err != nil {
		return 0, fmt.Errorf("failed to query burn rate window for %s: %w", sloID, err)
	}
	if !rate.Valid {
		return 0, nil
	}
	return rate.Float64, nil
}

// RecordDeployment persists a deployment event, upserting on ID.
func (s *Store) RecordDeployment(ctx context.Context, d *correlate.Deployment) error {
	query := `
		INSERT INTO deployments (id, service, environment, deployed_at, commit_sha, author, pr_number,
			correlated_burn_minutes, correlation_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			service = excluded.service,
			environment = excluded.environment,
			deployed_at = excluded.deployed_at,
			commit_sha = excluded.commit_sha,
			author = excluded.author,
			pr_number = excluded.pr_number
	`
	_, err := s.db.ExecContext(ctx, query,
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service, environment, deployed_at, commit_sha, author, pr_number,
			correlated_burn_minutes, correlation_confidence
		FROM deployments
		WHERE service = ? AND deployed_at >= ?
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
	res, err := s.db.ExecContext(ctx, `
		UPDATE deployments
		SET correlated_burn_minutes = ?, correlation_confidence = ?
		WHERE id = ?`, burnMinutes, confidence, deploymentID)
	if err != nil {
		return fmt.Errorf("failed to update deployment correlation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alert_events (id, rule_id, service, slo_id, severity, title, message, details_json, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, service, slo_id, severity, title, message, details_json, triggered_at
		FROM alert_events ORDER BY triggered_at DESC LIMIT ?`, limit)
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

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
