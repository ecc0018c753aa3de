package sqlite

// Schema defines the SQLite database schema
const Schema = `
CREATE TABLE IF NOT EXISTS slos (
	id TEXT PRIMARY KEY,
	service TEXT NOT NULL,
	name TEXT NOT NULL,
	target REAL NOT NULL,
	window_duration TEXT NOT NULL,
	window_type TEXT NOT NULL,
	query TEXT NOT NULL,
	owner TEXT NOT NULL DEFAULT '',
	labels_json TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_slos_service ON slos(service);

CREATE TABLE IF NOT EXISTS error_budgets (
	id TEXT NOT NULL,
	slo_id TEXT NOT NULL,
	service TEXT NOT NULL,
	period_start TIMESTAMP NOT NULL,
	period_end TIMESTAMP NOT NULL,
	total_budget_minutes REAL NOT NULL,
	burned_minutes REAL NOT NULL,
	remaining_minutes REAL NOT NULL,
	incident_burn_minutes REAL NOT NULL DEFAULT 0,
	deployment_burn_minutes REAL NOT NULL DEFAULT 0,
	breach_burn_minutes REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	burn_rate REAL NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (slo_id, period_start, period_end),
	FOREIGN KEY (slo_id) REFERENCES slos(id)
);

CREATE INDEX IF NOT EXISTS idx_error_budgets_service ON error_budgets(service);
CREATE INDEX IF NOT EXISTS idx_error_budgets_period_end ON error_budgets(period_end DESC);

CREATE TABLE IF NOT EXISTS burn_rate_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slo_id TEXT NOT NULL,
	sampled_at TIMESTAMP NOT NULL,
	rate REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_burn_rate_samples_slo ON burn_rate_samples(slo_id, sampled_at);

CREATE TABLE IF NOT EXISTS deployments (
	id TEXT PRIMARY KEY,
	service TEXT NOT NULL,
	environment TEXT NOT NULL,
	deployed_at TIMESTAMP NOT NULL,
	commit_sha TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	pr_number INTEGER NOT NULL DEFAULT 0,
	correlated_burn_minutes REAL NOT NULL DEFAULT 0,
	correlation_confidence REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_deployments_service ON deployments(service, deployed_at DESC);

CREATE TABLE IF NOT EXISTS alert_events (
	id TEXT PRIMARY KEY,
	rule_id TEXT NOT NULL,
	service TEXT NOT NULL,
	slo_id TEXT NOT NULL,
	severity TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	details_json TEXT NOT NULL DEFAULT '{}',
	triggered_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alert_events_triggered ON alert_events(triggered_at DESC);
`
