package coherence

import (
	"context"
	"errors"
	"testing"
	"time"
)

// memoryStore is an in-memory Store for persistence tests.
type memoryStore struct {
	state *PersistedState
	err   error
}

func (s *memoryStore) SaveState(_ context.Context, state *PersistedState) error {
	if s.err != nil {
		return s.err
	}
	s.state = state
	return nil
}

func (s *memoryStore) LoadState(_ context.Context) (*PersistedState, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.state, nil
}

func newTestMonitor(t *testing.T) (*Monitor, *time.Time) {
	t.Helper()

	m, err := New(DefaultThresholds())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clock := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestNew_RejectsBadThresholds(t *testing.T) {
	bad := DefaultThresholds()
	bad.LatencyWarning = 90 // above critical 60

	if _, err := New(bad); err == nil {
		t.Fatal("expected a threshold ordering error")
	} else {
		var invalid *InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("error type = %T, want *InvalidInputError", err)
		}
	}

	bad = DefaultThresholds()
	bad.AckRateWarning = 50 // below critical 60; polarity is reversed
	if _, err := New(bad); err == nil {
		t.Fatal("expected an ack rate ordering error")
	}
}

func TestRegisterAgent_NormalizesAndIdempotent(t *testing.T) {
	m, _ := newTestMonitor(t)

	if name := m.RegisterAgent("forge"); name != "FORGE" {
		t.Errorf("registered name = %q, want FORGE", name)
	}
	m.RegisterAgent("Forge")
	m.RegisterAgent(" FORGE ")

	if agents := m.ListAgents(); len(agents) != 1 || agents[0] != "FORGE" {
		t.Errorf("agents = %v, want [FORGE]", agents)
	}
}

func TestUnregisterAgent(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.RegisterAgent("FORGE")

	if !m.UnregisterAgent("forge") {
		t.Error("unregister of known agent should return true")
	}
	if m.UnregisterAgent("FORGE") {
		t.Error("unregister of absent agent should return false")
	}
}

func TestRecordOperations_ImplicitRegistration(t *testing.T) {
	m, _ := newTestMonitor(t)

	m.RecordMention("nexus", false)
	m.RecordClaim("NEXUS", true)
	m.RecordError("Nexus")
	m.RecordActivity("NEXUS")

	metrics, ok := m.GetAgentMetrics("nexus")
	if !ok {
		t.Fatal("implicitly registered agent should be queryable")
	}
	if metrics.MentionsTotal != 1 || metrics.ErrorsTotal != 1 || metrics.MessageCount != 1 {
		t.Errorf("unexpected metrics: %+v", metrics)
	}
}

func TestRecordAcknowledgment_Capped(t *testing.T) {
	m, _ := newTestMonitor(t)

	m.RecordMention("FORGE", false)
	m.RecordAcknowledgment("FORGE")
	// At the cap this is a silent no-op.
	m.RecordAcknowledgment("FORGE")

	metrics, _ := m.GetAgentMetrics("FORGE")
	if metrics.MentionsAcked != 1 || metrics.MentionsTotal != 1 {
		t.Errorf("acked/total = %d/%d, want 1/1", metrics.MentionsAcked, metrics.MentionsTotal)
	}
}

func TestRecordResponse_RejectsNegativeLatency(t *testing.T) {
	m, _ := newTestMonitor(t)

	err := m.RecordResponse("FORGE", -1)
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *InvalidInputError", err)
	}

	// The rejected call must not register the agent.
	if agents := m.ListAgents(); len(agents) != 0 {
		t.Errorf("agents after rejected call = %v", agents)
	}

	if err := m.RecordResponse("FORGE", 0); err != nil {
		t.Errorf("zero latency should be accepted, got %v", err)
	}
}

func TestGetAgent_ReturnsCopy(t *testing.T) {
	m, _ := newTestMonitor(t)
	if err := m.RecordResponse("FORGE", 1.5); err != nil {
		t.Fatal(err)
	}

	a, ok := m.GetAgent("forge")
	if !ok || a.Name != "FORGE" {
		t.Fatalf("GetAgent = %v/%v", a, ok)
	}

	a.ResponseLatencies[0] = 999
	a.MentionsTotal = 50
	metrics, _ := m.GetAgentMetrics("FORGE")
	if metrics.AvgLatency != 1.5 || metrics.MentionsTotal != 0 {
		t.Error("mutating the returned copy must not touch monitor state")
	}
}

func TestGetAgentMetrics_UnknownAgent(t *testing.T) {
	m, _ := newTestMonitor(t)

	// Probing for absent names is routine, not an error.
	if _, ok := m.GetAgentMetrics("GHOST"); ok {
		t.Error("unknown agent should report ok=false")
	}
	if agents := m.ListAgents(); len(agents) != 0 {
		t.Error("a metrics probe must not register the agent")
	}
}

func TestCheckAllAlerts_EndToEnd(t *testing.T) {
	m, _ := newTestMonitor(t)

	m.RegisterAgent("FORGE")
	m.RegisterAgent("ATLAS")
	m.RegisterAgent("CLIO")

	m.RecordMention("FORGE", true)
	if err := m.RecordResponse("FORGE", 2.0); err != nil {
		t.Fatal(err)
	}
	m.RecordClaim("FORGE", true)

	// Implicit registration with a single unacknowledged mention.
	m.RecordMention("NEXUS", false)

	score, ok := m.CoherenceScore()
	if !ok {
		t.Fatal("expected a team score")
	}
	// FORGE/ATLAS/CLIO at 100, NEXUS at 70 (ack rate 0).
	if score != 92.5 {
		t.Errorf("team score = %v, want 92.5", score)
	}

	raised := m.CheckAllAlerts()
	if len(raised) != 1 {
		t.Fatalf("raised = %v, want exactly one alert", raised)
	}
	alert := raised[0]
	if alert.Agent != "NEXUS" || alert.Metric != MetricAckRate || alert.Severity != SeverityCritical {
		t.Errorf("alert = %+v, want NEXUS ack_rate CRITICAL", alert)
	}
}

func TestCheckAllAlerts_Idempotent(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.RecordMention("NEXUS", false)

	// One agent alert (ack rate) plus one team alert (score 70 < 75).
	if raised := m.CheckAllAlerts(); len(raised) != 2 {
		t.Fatalf("first check raised %d alerts", len(raised))
	}
	if raised := m.CheckAllAlerts(); len(raised) != 0 {
		t.Errorf("second check with no state change raised %v", raised)
	}
}

func TestAlerts_ExpiryThroughMonitor(t *testing.T) {
	m, clock := newTestMonitor(t)
	m.RecordMention("NEXUS", false)
	m.CheckAllAlerts()

	// Agent ack-rate alert plus team coherence alert.
	if got := len(m.Alerts("")); got != 2 {
		t.Fatalf("active = %d, want 2", got)
	}

	*clock = clock.Add(61 * time.Minute)
	if got := len(m.Alerts("")); got != 0 {
		t.Errorf("active at +61m = %d, want 0", got)
	}
	if got := len(m.AlertHistory()); got != 2 {
		t.Errorf("history = %d, want 2", got)
	}
}

func TestClearAlerts(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.RecordMention("NEXUS", false)
	m.RecordMention("DRIFT", false)
	m.CheckAllAlerts()

	if cleared := m.ClearAlerts("NEXUS"); cleared != 1 {
		t.Errorf("ClearAlerts(NEXUS) = %d, want 1", cleared)
	}
	// Remaining: DRIFT's ack-rate alert and the team coherence alert.
	if cleared := m.ClearAlerts(""); cleared != 2 {
		t.Errorf("ClearAlerts() = %d, want 2", cleared)
	}
	if got := len(m.Alerts("")); got != 0 {
		t.Errorf("active after clear = %d", got)
	}
}

func TestTakeSnapshot_CapAndEviction(t *testing.T) {
	m, clock := newTestMonitor(t)
	m.RegisterAgent("FORGE")

	var second Snapshot
	for i := 0; i < SnapshotCapacity+1; i++ {
		snap := m.TakeSnapshot()
		if i == 1 {
			second = snap
		}
		*clock = clock.Add(time.Second)
	}

	if got := m.SnapshotCount(); got != SnapshotCapacity {
		t.Fatalf("snapshot count = %d, want %d", got, SnapshotCapacity)
	}
	oldest := m.Snapshots()[0]
	if !oldest.TakenAt.Equal(second.TakenAt) {
		t.Errorf("oldest retained = %v, want the 2nd snapshot %v", oldest.TakenAt, second.TakenAt)
	}
}

func TestTakeSnapshot_Contents(t *testing.T) {
	m, clock := newTestMonitor(t)

	m.RegisterAgent("FORGE")
	m.RegisterAgent("IDLE")
	m.RecordMention("NEXUS", false)
	m.CheckAllAlerts()

	// Push IDLE past the inactivity warning threshold without touching
	// the others.
	*clock = clock.Add(121 * time.Second)
	m.RecordActivity("FORGE")
	m.RecordActivity("NEXUS")

	snap := m.TakeSnapshot()
	if snap.TotalAgents != 3 {
		t.Errorf("total agents = %d, want 3", snap.TotalAgents)
	}
	if snap.ActiveAgents != 2 {
		t.Errorf("active agents = %d, want 2", snap.ActiveAgents)
	}
	if snap.AlertsActive != 1 {
		t.Errorf("alerts active = %d, want 1", snap.AlertsActive)
	}
	if len(snap.AgentScores) != 3 {
		t.Errorf("agent scores = %v", snap.AgentScores)
	}
}

func TestTrend_ThroughMonitor(t *testing.T) {
	m, clock := newTestMonitor(t)
	m.RegisterAgent("FORGE")

	m.TakeSnapshot() // 100
	*clock = clock.Add(time.Minute)

	// Degrade the team by piling up unacknowledged mentions.
	for i := 0; i < 10; i++ {
		m.RecordMention("FORGE", false)
	}
	m.TakeSnapshot() // 70
	*clock = clock.Add(time.Minute)

	trend := m.Trend(30 * time.Minute)
	if trend.Direction != TrendDegrading {
		t.Errorf("direction = %v, want DEGRADING", trend.Direction)
	}
	if trend.Change != -30 {
		t.Errorf("change = %v, want -30", trend.Change)
	}
	if trend.Samples != 2 {
		t.Errorf("samples = %d, want 2", trend.Samples)
	}
}

func TestReset(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.RecordMention("NEXUS", false)
	m.CheckAllAlerts()
	m.TakeSnapshot()

	m.Reset()

	if len(m.ListAgents()) != 0 || len(m.Alerts("")) != 0 || m.SnapshotCount() != 0 {
		t.Error("reset should drop agents, alerts, and snapshots")
	}
	if _, ok := m.CoherenceScore(); ok {
		t.Error("reset monitor should report no team score")
	}
}

func TestStatusReport(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.RegisterAgent("FORGE")
	m.RecordMention("NEXUS", false)
	m.CheckAllAlerts()
	m.TakeSnapshot()

	report := m.Status(30 * time.Minute)
	if !report.HasAgents || report.TotalAgents != 2 {
		t.Errorf("report totals: %+v", report)
	}
	if len(report.Agents) != 2 || report.Agents[0].Name != "FORGE" {
		t.Errorf("agent rows = %v, want sorted [FORGE NEXUS]", report.Agents)
	}
	if len(report.Alerts) != 1 {
		t.Errorf("alerts = %v", report.Alerts)
	}
	if len(report.ScoreHistory) != 1 {
		t.Errorf("score history = %v", report.ScoreHistory)
	}
}

func TestExport(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.RecordMention("NEXUS", false)
	m.CheckAllAlerts()

	doc := m.Export(30 * time.Minute)
	if doc.CoherenceScore != 70 {
		t.Errorf("export score = %v, want 70", doc.CoherenceScore)
	}
	if len(doc.Agents) != 1 || doc.Agents["NEXUS"] == nil {
		t.Errorf("export agents = %v", doc.Agents)
	}
	if len(doc.ActiveAlerts) != 2 {
		t.Errorf("export alerts = %v", doc.ActiveAlerts)
	}
	if doc.Thresholds != DefaultThresholds() {
		t.Errorf("export thresholds = %+v", doc.Thresholds)
	}

	// Exported agent state is a copy; mutating it must not touch the
	// monitor.
	doc.Agents["NEXUS"].MentionsTotal = 99
	metrics, _ := m.GetAgentMetrics("NEXUS")
	if metrics.MentionsTotal != 1 {
		t.Error("export leaked internal agent state")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	m, clock := newTestMonitor(t)
	store := &memoryStore{}
	m.SetStore(store)

	m.RecordMention("NEXUS", false)
	if err := m.RecordResponse("NEXUS", 2.5); err != nil {
		t.Fatal(err)
	}
	m.RecordClaim("NEXUS", true)
	m.CheckAllAlerts()
	m.TakeSnapshot()

	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, err := New(DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	restored.now = func() time.Time { return *clock }
	restored.SetStore(store)
	if err := restored.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	metrics, ok := restored.GetAgentMetrics("NEXUS")
	if !ok {
		t.Fatal("restored monitor lost the agent")
	}
	if metrics.MentionsTotal != 1 || metrics.AvgLatency != 2.5 {
		t.Errorf("restored metrics = %+v", metrics)
	}
	if got := len(restored.Alerts("")); got != 2 {
		t.Errorf("restored active alerts = %d, want 2", got)
	}
	if restored.SnapshotCount() != 1 {
		t.Errorf("restored snapshots = %d, want 1", restored.SnapshotCount())
	}
}

func TestLoad_EmptyStoreIsNoop(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.SetStore(&memoryStore{})
	m.RegisterAgent("FORGE")

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.ListAgents()) != 1 {
		t.Error("load from an empty store should leave state untouched")
	}
}

func TestSaveLoad_SurfacesStoreErrors(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.SetStore(&memoryStore{err: errors.New("disk full")})

	if err := m.Save(context.Background()); err == nil {
		t.Error("save error should be surfaced")
	}
	if err := m.Load(context.Background()); err == nil {
		t.Error("load error should be surfaced")
	}
}
