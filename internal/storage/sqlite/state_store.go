package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/willibrandon/cohere/internal/coherence"
)

// StateStore persists the full monitor state. Writes replace the prior
// state wholesale inside one transaction: the state is small and bounded
// (alert history and snapshots are both capped), so a rewrite is cheaper
// than diffing.
type StateStore struct {
	db *DB
}

// NewStateStore creates a StateStore backed by the given database.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// SaveState persists the monitor state, replacing any prior state.
func (s *StateStore) SaveState(ctx context.Context, state *coherence.PersistedState) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"response_latencies", "agents", "alert_events", "snapshots", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	thresholds, err := json.Marshal(state.Thresholds)
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}
	for key, value := range map[string]string{
		"schema_version": strconv.Itoa(state.SchemaVersion),
		"thresholds":     string(thresholds),
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("write meta %s: %w", key, err)
		}
	}

	for _, a := range state.Agents {
		var lastActivity any
		if !a.LastActivityAt.IsZero() {
			lastActivity = a.LastActivityAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agents (name, last_activity_at, mentions_total, mentions_acked,
			                    claims_total, claims_correct, errors_total, message_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Name, lastActivity, a.MentionsTotal, a.MentionsAcked,
			a.ClaimsTotal, a.ClaimsCorrect, a.ErrorsTotal, a.MessageCount,
		); err != nil {
			return fmt.Errorf("write agent %s: %w", a.Name, err)
		}

		for _, latency := range a.ResponseLatencies {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO response_latencies (agent_name, latency_seconds) VALUES (?, ?)`,
				a.Name, latency,
			); err != nil {
				return fmt.Errorf("write latencies for %s: %w", a.Name, err)
			}
		}
	}

	if err := insertAlerts(ctx, tx, state.AlertHistory, state.ActiveAlerts); err != nil {
		return err
	}

	for _, snap := range state.Snapshots {
		scores, err := json.Marshal(snap.AgentScores)
		if err != nil {
			return fmt.Errorf("encode agent scores: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (taken_at, overall_score, agent_scores,
			                       active_agents, total_agents, alerts_active)
			VALUES (?, ?, ?, ?, ?, ?)`,
			snap.TakenAt, snap.OverallScore, string(scores),
			snap.ActiveAgents, snap.TotalAgents, snap.AlertsActive,
		); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// insertAlerts writes the alert history, flagging rows that are still in
// the active set.
func insertAlerts(ctx context.Context, tx *sql.Tx, history, active []coherence.Alert) error {
	isActive := func(a coherence.Alert) bool {
		for _, act := range active {
			if act.Agent == a.Agent && act.Metric == a.Metric && act.CreatedAt.Equal(a.CreatedAt) {
				return true
			}
		}
		return false
	}

	for _, a := range history {
		activeFlag := 0
		if isActive(a) {
			activeFlag = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alert_events (agent, metric, severity, message,
			                          metric_value, threshold_value, created_at, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Agent, a.Metric.String(), a.Severity.String(), a.Message,
			a.Value, a.Threshold, a.CreatedAt, activeFlag,
		); err != nil {
			return fmt.Errorf("write alert: %w", err)
		}
	}
	return nil
}

// LoadState restores previously saved state. Returns (nil, nil) when the
// database holds no saved state.
func (s *StateStore) LoadState(ctx context.Context) (*coherence.PersistedState, error) {
	var versionStr string
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&versionStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return nil, fmt.Errorf("parse schema version %q: %w", versionStr, err)
	}
	if version != coherence.SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (want %d)", version, coherence.SchemaVersion)
	}

	state := &coherence.PersistedState{SchemaVersion: version}

	var thresholdsJSON string
	if err := s.db.conn.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'thresholds'`).Scan(&thresholdsJSON); err != nil {
		return nil, fmt.Errorf("read thresholds: %w", err)
	}
	if err := json.Unmarshal([]byte(thresholdsJSON), &state.Thresholds); err != nil {
		return nil, fmt.Errorf("decode thresholds: %w", err)
	}

	if state.Agents, err = s.loadAgents(ctx); err != nil {
		return nil, err
	}
	if state.ActiveAlerts, state.AlertHistory, err = s.loadAlerts(ctx); err != nil {
		return nil, err
	}
	if state.Snapshots, err = s.loadSnapshots(ctx); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *StateStore) loadAgents(ctx context.Context) ([]*coherence.AgentState, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT name, last_activity_at, mentions_total, mentions_acked,
		       claims_total, claims_correct, errors_total, message_count
		FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("read agents: %w", err)
	}
	defer rows.Close()

	var agents []*coherence.AgentState
	for rows.Next() {
		var a coherence.AgentState
		var lastActivity sql.NullTime
		if err := rows.Scan(&a.Name, &lastActivity, &a.MentionsTotal, &a.MentionsAcked,
			&a.ClaimsTotal, &a.ClaimsCorrect, &a.ErrorsTotal, &a.MessageCount); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		if lastActivity.Valid {
			a.LastActivityAt = lastActivity.Time
		}
		agents = append(agents, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read agents: %w", err)
	}

	for _, a := range agents {
		if a.ResponseLatencies, err = s.loadLatencies(ctx, a.Name); err != nil {
			return nil, err
		}
	}
	return agents, nil
}

func (s *StateStore) loadLatencies(ctx context.Context, agent string) ([]float64, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT latency_seconds FROM response_latencies
		WHERE agent_name = ? ORDER BY id`, agent)
	if err != nil {
		return nil, fmt.Errorf("read latencies for %s: %w", agent, err)
	}
	defer rows.Close()

	var latencies []float64
	for rows.Next() {
		var l float64
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan latency: %w", err)
		}
		latencies = append(latencies, l)
	}
	return latencies, rows.Err()
}

func (s *StateStore) loadAlerts(ctx context.Context) (active, history []coherence.Alert, err error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT agent, metric, severity, message, metric_value, threshold_value, created_at, active
		FROM alert_events ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("read alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a coherence.Alert
		var metric, severity string
		var createdAt time.Time
		var activeFlag int
		if err := rows.Scan(&a.Agent, &metric, &severity, &a.Message,
			&a.Value, &a.Threshold, &createdAt, &activeFlag); err != nil {
			return nil, nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Metric = coherence.Metric(metric)
		a.Severity = coherence.Severity(severity)
		a.CreatedAt = createdAt

		history = append(history, a)
		if activeFlag != 0 {
			active = append(active, a)
		}
	}
	return active, history, rows.Err()
}

func (s *StateStore) loadSnapshots(ctx context.Context) ([]coherence.Snapshot, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT taken_at, overall_score, agent_scores, active_agents, total_agents, alerts_active
		FROM snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []coherence.Snapshot
	for rows.Next() {
		var snap coherence.Snapshot
		var scoresJSON string
		if err := rows.Scan(&snap.TakenAt, &snap.OverallScore, &scoresJSON,
			&snap.ActiveAgents, &snap.TotalAgents, &snap.AlertsActive); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(scoresJSON), &snap.AgentScores); err != nil {
			return nil, fmt.Errorf("decode agent scores: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}
