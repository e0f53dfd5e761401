package sqlite

// initSchema creates the database schema if it doesn't exist.
func (db *DB) initSchema() error {
	schema := `
	-- Key/value metadata: schema_version, thresholds JSON
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Raw per-agent counters; derived scores are never stored
	CREATE TABLE IF NOT EXISTS agents (
		name TEXT PRIMARY KEY,
		last_activity_at DATETIME,
		mentions_total INTEGER NOT NULL DEFAULT 0,
		mentions_acked INTEGER NOT NULL DEFAULT 0,
		claims_total INTEGER NOT NULL DEFAULT 0,
		claims_correct INTEGER NOT NULL DEFAULT 0,
		errors_total INTEGER NOT NULL DEFAULT 0,
		message_count INTEGER NOT NULL DEFAULT 0
	);

	-- Recorded response latencies, ordered by insertion
	CREATE TABLE IF NOT EXISTS response_latencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_name TEXT NOT NULL REFERENCES agents(name) ON DELETE CASCADE,
		latency_seconds REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_response_latencies_agent ON response_latencies(agent_name);

	-- Alert records; active rows mirror the in-memory active set
	CREATE TABLE IF NOT EXISTS alert_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent TEXT NOT NULL DEFAULT '',
		metric TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		metric_value REAL NOT NULL,
		threshold_value REAL NOT NULL,
		created_at DATETIME NOT NULL,
		active INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_alert_events_created ON alert_events(created_at DESC);

	-- Snapshot history for trend analysis
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at DATETIME NOT NULL,
		overall_score REAL NOT NULL,
		agent_scores TEXT NOT NULL,
		active_agents INTEGER NOT NULL,
		total_agents INTEGER NOT NULL,
		alerts_active INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_at DESC);
	`

	_, err := db.conn.Exec(schema)
	return err
}
