package coherence

import (
	"testing"
	"time"
)

func TestScoreLatency_Bands(t *testing.T) {
	cases := []struct {
		latency float64
		want    float64
	}{
		{0, 100},
		{5, 100},
		{17.5, 80},
		{30, 60},
		{45, 45},
		{60, 30},
		{60.01, 0},
		{120, 0},
	}

	for _, tc := range cases {
		got := ScoreLatency(tc.latency)
		if got != tc.want {
			t.Errorf("ScoreLatency(%v) = %v, want %v", tc.latency, got, tc.want)
		}
	}
}

func TestScoreActivity_Bands(t *testing.T) {
	cases := []struct {
		idle float64
		want float64
	}{
		{0, 100},
		{29.9, 100},
		{30, 100}, // lower bound of band, interpolation starts at 100
		{75, 80},
		{120, 60},
		{210, 40},
		{300, 0},
		{10000, 0},
	}

	for _, tc := range cases {
		got := ScoreActivity(tc.idle, true)
		if got != tc.want {
			t.Errorf("ScoreActivity(%v) = %v, want %v", tc.idle, got, tc.want)
		}
	}
}

func TestScoreActivity_NeverActive(t *testing.T) {
	if got := ScoreActivity(0, false); got != 0 {
		t.Errorf("never-active agent should score 0, got %v", got)
	}
}

func TestAgentScore_NoDataDefaults(t *testing.T) {
	now := time.Now()
	a := NewAgentState("FORGE", now)

	if got := a.AckRate(); got != 100 {
		t.Errorf("ack rate with no mentions = %v, want 100", got)
	}
	if got := a.ContextFidelity(); got != 100 {
		t.Errorf("fidelity with no claims = %v, want 100", got)
	}
	if got := AgentScore(a, now); got != 100 {
		t.Errorf("fresh agent score = %v, want 100", got)
	}
}

func TestAgentScore_Clamped(t *testing.T) {
	now := time.Now()
	cases := []*AgentState{
		NewAgentState("A", now),
		{Name: "B", MentionsTotal: 10, MentionsAcked: 0, ClaimsTotal: 5, ClaimsCorrect: 0},
		{Name: "C", LastActivityAt: now, ResponseLatencies: []float64{500, 900}},
		{Name: "D", LastActivityAt: now.Add(-24 * time.Hour), MentionsTotal: 1},
	}

	for _, a := range cases {
		score := AgentScore(a, now)
		if score < 0 || score > 100 {
			t.Errorf("agent %s score %v outside [0,100]", a.Name, score)
		}
		for name, metric := range map[string]float64{
			"ack_rate": a.AckRate(),
			"latency":  ScoreLatency(a.AvgLatency()),
			"fidelity": a.ContextFidelity(),
		} {
			if metric < 0 || metric > 100 {
				t.Errorf("agent %s %s %v outside [0,100]", a.Name, name, metric)
			}
		}
	}
}

func TestAckRate_Monotonic(t *testing.T) {
	a := &AgentState{Name: "FORGE", MentionsTotal: 10}

	prev := a.AckRate()
	for acked := 1; acked <= 10; acked++ {
		a.MentionsAcked = acked
		rate := a.AckRate()
		if rate < prev {
			t.Errorf("ack rate decreased from %v to %v at acked=%d", prev, rate, acked)
		}
		prev = rate
	}
}

func TestAgentScore_Weighted(t *testing.T) {
	now := time.Now()
	a := &AgentState{
		Name:              "FORGE",
		LastActivityAt:    now,
		MentionsTotal:     4,
		MentionsAcked:     2, // ack 50
		ResponseLatencies: []float64{5},
		ClaimsTotal:       4,
		ClaimsCorrect:     4, // fidelity 100
	}

	// 0.30*50 + 0.25*100 + 0.30*100 + 0.15*100 = 85
	if got := AgentScore(a, now); got != 85 {
		t.Errorf("AgentScore = %v, want 85", got)
	}
}

func TestTeamScore_Empty(t *testing.T) {
	score, scores, ok := TeamScore(map[string]*AgentState{}, time.Now())
	if ok {
		t.Error("empty team should report ok=false")
	}
	if score != 0 || len(scores) != 0 {
		t.Errorf("empty team score = %v with %d agent scores", score, len(scores))
	}
}

func TestTeamScore_Mean(t *testing.T) {
	now := time.Now()
	agents := map[string]*AgentState{
		"FORGE": NewAgentState("FORGE", now), // 100
		"NEXUS": {Name: "NEXUS", LastActivityAt: now, MentionsTotal: 1}, // ack 0 -> 70
	}

	score, scores, ok := TeamScore(agents, now)
	if !ok {
		t.Fatal("expected ok=true with registered agents")
	}
	if scores["FORGE"] != 100 || scores["NEXUS"] != 70 {
		t.Errorf("agent scores = %v, want FORGE=100 NEXUS=70", scores)
	}
	if score != 85 {
		t.Errorf("team score = %v, want 85", score)
	}
}

func TestClaimAccuracy_Fraction(t *testing.T) {
	a := &AgentState{Name: "ATLAS", ClaimsTotal: 10, ClaimsCorrect: 7}
	if got := a.ContextFidelity(); got != 70 {
		t.Errorf("fidelity 7/10 = %v, want 70", got)
	}
}
