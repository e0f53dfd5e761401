// Package coherence implements the coordination health engine for
// multi-agent teams: per-agent metric accumulation, weighted 0-100
// scoring, threshold-based alerting with de-duplication and expiry, and
// bounded snapshot history for trend analysis.
package coherence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/willibrandon/cohere/internal/logger"
)

// SchemaVersion marks the persisted state layout.
const SchemaVersion = 1

// Store persists and restores monitor state. Implementations surface I/O
// failures to the caller; losing historical state undetected would corrupt
// trend analysis.
type Store interface {
	// SaveState persists the full monitor state, replacing any prior state.
	SaveState(ctx context.Context, state *PersistedState) error

	// LoadState restores previously saved state. Returns (nil, nil) when
	// no state has been saved yet.
	LoadState(ctx context.Context) (*PersistedState, error)
}

// PersistedState is the logical document a Store persists: raw counters
// only, never derived scores, which are always recomputed.
type PersistedState struct {
	SchemaVersion int
	Thresholds    Thresholds
	Agents        []*AgentState
	ActiveAlerts  []Alert
	AlertHistory  []Alert
	Snapshots     []Snapshot
}

// Monitor is the facade owning all agent state, the alert engine, and the
// snapshot history. Every public operation runs under one coarse lock:
// read/compute/write sequences are short and metric computation is linear
// in the number of agents, so finer locking buys nothing.
type Monitor struct {
	mu sync.Mutex

	thresholds Thresholds
	agents     map[string]*AgentState
	engine     *Engine
	snapshots  *SnapshotRing
	store      Store

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// New creates a Monitor with the given thresholds. Mis-ordered threshold
// pairs are a configuration error and rejected here, not at first use.
func New(thresholds Thresholds) (*Monitor, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	return &Monitor{
		thresholds: thresholds,
		agents:     make(map[string]*AgentState),
		engine:     NewEngine(thresholds),
		snapshots:  NewSnapshotRing(SnapshotCapacity),
		now:        time.Now,
	}, nil
}

// SetStore sets the persistence store used by Save and Load.
func (m *Monitor) SetStore(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

// Thresholds returns the thresholds in effect.
func (m *Monitor) Thresholds() Thresholds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thresholds
}

// RegisterAgent creates an agent if absent and returns its normalized
// name. Registration is idempotent; an existing agent is untouched.
func (m *Monitor) RegisterAgent(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureAgent(name).Name
}

// UnregisterAgent removes an agent. Returns false if it was not registered.
func (m *Monitor) UnregisterAgent(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := NormalizeAgentName(name)
	if _, ok := m.agents[key]; !ok {
		return false
	}
	delete(m.agents, key)
	return true
}

// ListAgents returns the registered agent names, sorted.
func (m *Monitor) ListAgents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.agents))
	for name := range m.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordActivity marks the agent active now and counts the message.
// Unknown agents are registered implicitly.
func (m *Monitor) RecordActivity(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureAgent(name)
	a.touch(m.now())
	a.MessageCount++
}

// RecordMention records a mention of the agent and whether it was
// acknowledged.
func (m *Monitor) RecordMention(name string, acknowledged bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureAgent(name)
	a.MentionsTotal++
	if acknowledged {
		a.MentionsAcked++
	}
	a.touch(m.now())
}

// RecordAcknowledgment records a late acknowledgment of a prior mention.
// The acknowledged count never exceeds the mention count; at the cap this
// is a silent no-op.
func (m *Monitor) RecordAcknowledgment(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureAgent(name)
	if a.MentionsAcked < a.MentionsTotal {
		a.MentionsAcked++
	}
}

// RecordResponse appends a response latency in seconds and marks the agent
// active. Negative latency is rejected.
func (m *Monitor) RecordResponse(name string, latency float64) error {
	if latency < 0 {
		return &InvalidInputError{
			Field:  "latency",
			Reason: fmt.Sprintf("must be non-negative, got %.3f", latency),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureAgent(name)
	a.ResponseLatencies = append(a.ResponseLatencies, latency)
	a.touch(m.now())
	return nil
}

// RecordClaim records a claim and whether it was verified correct.
func (m *Monitor) RecordClaim(name string, correct bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureAgent(name)
	a.ClaimsTotal++
	if correct {
		a.ClaimsCorrect++
	}
}

// RecordClaimBatch adds a batch of claim results at once, as delivered by
// post-hoc analysis imports. Correct is capped at total; non-positive
// totals are ignored.
func (m *Monitor) RecordClaimBatch(name string, total, correct int) {
	if total <= 0 {
		return
	}
	if correct > total {
		correct = total
	}
	if correct < 0 {
		correct = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureAgent(name)
	a.ClaimsTotal += total
	a.ClaimsCorrect += correct
}

// RecordError counts a detected error for the agent.
func (m *Monitor) RecordError(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureAgent(name).ErrorsTotal++
}

// CoherenceScore returns the team coherence score. The boolean return is
// false when no agents are registered.
func (m *Monitor) CoherenceScore() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	score, _, ok := TeamScore(m.agents, m.now())
	return score, ok
}

// AgentScores returns the per-agent coherence scores.
func (m *Monitor) AgentScores() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, scores, _ := TeamScore(m.agents, m.now())
	return scores
}

// AgentMetrics is the derived metric view of one agent.
type AgentMetrics struct {
	Name            string    `json:"name"`
	Score           float64   `json:"coherence_score"`
	AckRate         float64   `json:"ack_rate"`
	AvgLatency      float64   `json:"avg_latency"`
	ContextFidelity float64   `json:"context_fidelity"`
	MentionsTotal   int       `json:"mentions_total"`
	MentionsAcked   int       `json:"mentions_acked"`
	MessageCount    int       `json:"message_count"`
	ErrorsTotal     int       `json:"errors_total"`
	IsActive        bool      `json:"is_active"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

// GetAgent returns a copy of one agent's raw state. The boolean return is
// false for unknown agents.
func (m *Monitor) GetAgent(name string) (*AgentState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[NormalizeAgentName(name)]
	if !ok {
		return nil, false
	}
	copied := *a
	copied.ResponseLatencies = append([]float64(nil), a.ResponseLatencies...)
	return &copied, true
}

// GetAgentMetrics returns the derived metrics for one agent. The boolean
// return is false for unknown agents: probing for absent names is routine,
// not an error.
func (m *Monitor) GetAgentMetrics(name string) (AgentMetrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[NormalizeAgentName(name)]
	if !ok {
		return AgentMetrics{}, false
	}
	return m.metricsLocked(a), true
}

func (m *Monitor) metricsLocked(a *AgentState) AgentMetrics {
	now := m.now()
	return AgentMetrics{
		Name:            a.Name,
		Score:           AgentScore(a, now),
		AckRate:         round1(a.AckRate()),
		AvgLatency:      a.AvgLatency(),
		ContextFidelity: round1(a.ContextFidelity()),
		MentionsTotal:   a.MentionsTotal,
		MentionsAcked:   a.MentionsAcked,
		MessageCount:    a.MessageCount,
		ErrorsTotal:     a.ErrorsTotal,
		IsActive:        a.IsActive(now, m.thresholds),
		LastActivityAt:  a.LastActivityAt,
	}
}

// CheckAllAlerts evaluates every agent and the team score against the
// thresholds. Returns the newly raised alerts; pairs with an unexpired
// active alert are skipped. Evaluation runs on demand only; the caller
// decides polling cadence.
func (m *Monitor) CheckAllAlerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var raised []Alert

	for _, name := range m.sortedAgentNamesLocked() {
		raised = append(raised, m.engine.CheckAgent(m.agents[name], now)...)
	}

	if score, _, ok := TeamScore(m.agents, now); ok {
		raised = append(raised, m.engine.CheckTeam(score, now)...)
	}

	return raised
}

// Alerts returns active (unexpired) alerts, optionally filtered by
// severity (empty severity returns all).
func (m *Monitor) Alerts(severity Severity) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Active(severity, m.now())
}

// AlertHistory returns the retained alert history, oldest first.
func (m *Monitor) AlertHistory() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.History()
}

// ClearAlerts permanently removes active alerts for the given agent, or
// all active alerts when agent is empty. Returns the number cleared.
func (m *Monitor) ClearAlerts(agent string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Clear(agent)
}

// TakeSnapshot captures the current team state into the snapshot history
// and returns it. Oldest snapshots are evicted past the capacity.
func (m *Monitor) TakeSnapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	score, agentScores, _ := TeamScore(m.agents, now)

	active := 0
	for _, a := range m.agents {
		if a.IsActive(now, m.thresholds) {
			active++
		}
	}

	s := Snapshot{
		TakenAt:      now,
		OverallScore: score,
		AgentScores:  agentScores,
		ActiveAgents: active,
		TotalAgents:  len(m.agents),
		AlertsActive: m.engine.ActiveCount(now),
	}
	m.snapshots.Push(s)
	return s
}

// SnapshotCount returns the number of retained snapshots.
func (m *Monitor) SnapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots.Len()
}

// Snapshots returns the retained snapshots in capture order.
func (m *Monitor) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots.All()
}

// Trend analyzes score movement over the trailing window.
func (m *Monitor) Trend(window time.Duration) TrendReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	fallback, _, _ := TeamScore(m.agents, now)
	return computeTrend(m.snapshots, window, now, fallback)
}

// AgentRow is one agent's line in a status report.
type AgentRow struct {
	Name           string
	Score          float64
	AckRate        float64
	AvgLatency     float64
	Fidelity       float64
	IsActive       bool
	LastActivityAt time.Time
}

// StatusReport is the full dashboard view of the monitor.
type StatusReport struct {
	GeneratedAt   time.Time
	Score         float64
	HasAgents     bool
	ActiveAgents  int
	TotalAgents   int
	Agents        []AgentRow
	Alerts        []Alert
	Trend         TrendReport
	ScoreHistory  []float64
	TrendWindow   time.Duration
}

// Status assembles a point-in-time report for display.
func (m *Monitor) Status(trendWindow time.Duration) StatusReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	score, _, hasAgents := TeamScore(m.agents, now)

	report := StatusReport{
		GeneratedAt: now,
		Score:       score,
		HasAgents:   hasAgents,
		TotalAgents: len(m.agents),
		Alerts:      m.engine.Active("", now),
		Trend:       computeTrend(m.snapshots, trendWindow, now, score),
		TrendWindow: trendWindow,
	}

	for _, name := range m.sortedAgentNamesLocked() {
		a := m.agents[name]
		active := a.IsActive(now, m.thresholds)
		if active {
			report.ActiveAgents++
		}
		report.Agents = append(report.Agents, AgentRow{
			Name:           a.Name,
			Score:          AgentScore(a, now),
			AckRate:        round1(a.AckRate()),
			AvgLatency:     a.AvgLatency(),
			Fidelity:       round1(a.ContextFidelity()),
			IsActive:       active,
			LastActivityAt: a.LastActivityAt,
		})
	}

	report.ScoreHistory = m.snapshots.Scores()
	return report
}

// ExportDoc is the integration export document.
type ExportDoc struct {
	Timestamp      time.Time              `json:"timestamp"`
	CoherenceScore float64                `json:"coherence_score"`
	AgentScores    map[string]float64     `json:"agent_scores"`
	Agents         map[string]*AgentState `json:"agents"`
	ActiveAlerts   []Alert                `json:"active_alerts"`
	Trend          TrendReport            `json:"trend"`
	Thresholds     Thresholds             `json:"thresholds"`
}

// Export assembles the full monitor state for integration consumers.
func (m *Monitor) Export(trendWindow time.Duration) ExportDoc {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	score, agentScores, _ := TeamScore(m.agents, now)

	agents := make(map[string]*AgentState, len(m.agents))
	for name, a := range m.agents {
		copied := *a
		copied.ResponseLatencies = append([]float64(nil), a.ResponseLatencies...)
		agents[name] = &copied
	}

	return ExportDoc{
		Timestamp:      now,
		CoherenceScore: score,
		AgentScores:    agentScores,
		Agents:         agents,
		ActiveAlerts:   m.engine.Active("", now),
		Trend:          computeTrend(m.snapshots, trendWindow, now, score),
		Thresholds:     m.thresholds,
	}
}

// Reset drops all agents, alerts, and snapshots. Thresholds stay in effect.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.agents = make(map[string]*AgentState)
	m.engine.reset()
	m.snapshots.Clear()
	logger.Info("monitor state reset")
}

// Save persists the full monitor state through the configured store.
func (m *Monitor) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return fmt.Errorf("save: no store configured")
	}

	now := m.now()
	state := &PersistedState{
		SchemaVersion: SchemaVersion,
		Thresholds:    m.thresholds,
		ActiveAlerts:  m.engine.Active("", now),
		AlertHistory:  m.engine.History(),
		Snapshots:     m.snapshots.All(),
	}
	for _, name := range m.sortedAgentNamesLocked() {
		state.Agents = append(state.Agents, m.agents[name])
	}

	if err := m.store.SaveState(ctx, state); err != nil {
		return fmt.Errorf("save monitor state: %w", err)
	}
	return nil
}

// Load restores monitor state from the configured store, replacing current
// state. A store with nothing saved yet leaves the monitor untouched.
// Persisted thresholds override the constructed ones after re-validation.
func (m *Monitor) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return fmt.Errorf("load: no store configured")
	}

	state, err := m.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load monitor state: %w", err)
	}
	if state == nil {
		return nil
	}

	if err := state.Thresholds.Validate(); err != nil {
		return fmt.Errorf("load monitor state: persisted thresholds: %w", err)
	}

	m.thresholds = state.Thresholds
	m.engine = NewEngine(state.Thresholds)
	m.engine.restore(state.ActiveAlerts, state.AlertHistory)

	m.agents = make(map[string]*AgentState, len(state.Agents))
	for _, a := range state.Agents {
		m.agents[a.Name] = a
	}

	m.snapshots.Clear()
	for _, s := range state.Snapshots {
		m.snapshots.Push(s)
	}

	logger.Debug("monitor state loaded",
		"agents", len(m.agents),
		"snapshots", m.snapshots.Len())
	return nil
}

// ensureAgent returns the agent, registering it implicitly if absent.
// Caller holds the lock.
func (m *Monitor) ensureAgent(name string) *AgentState {
	key := NormalizeAgentName(name)
	a, ok := m.agents[key]
	if !ok {
		a = NewAgentState(key, m.now())
		m.agents[key] = a
		logger.Debug("agent registered", "agent", key)
	}
	return a
}

// sortedAgentNamesLocked returns agent names sorted for deterministic
// iteration. Caller holds the lock.
func (m *Monitor) sortedAgentNamesLocked() []string {
	names := make([]string, 0, len(m.agents))
	for name := range m.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
