package coherence

import (
	"strings"
	"time"
)

// AgentState tracks accumulated coordination counters for a single agent.
// Names are case-normalized to upper case and act as the unique identifier.
// All mutation goes through the Monitor's recording operations; derived
// metrics (ack rate, average latency, fidelity) are recomputed on read.
type AgentState struct {
	// Name is the normalized (upper-case) agent identifier.
	Name string `json:"name"`

	// LastActivityAt is the time of the most recent recorded activity.
	// The zero value means the agent has never been active.
	LastActivityAt time.Time `json:"last_activity_at"`

	// ResponseLatencies holds every recorded response latency in seconds,
	// in recording order.
	ResponseLatencies []float64 `json:"response_latencies"`

	// MentionsTotal is the number of recorded mentions.
	MentionsTotal int `json:"mentions_total"`

	// MentionsAcked is the number of acknowledged mentions.
	// Invariant: MentionsAcked <= MentionsTotal.
	MentionsAcked int `json:"mentions_acked"`

	// ClaimsTotal is the number of recorded claims.
	ClaimsTotal int `json:"claims_total"`

	// ClaimsCorrect is the number of claims verified correct.
	// Invariant: ClaimsCorrect <= ClaimsTotal.
	ClaimsCorrect int `json:"claims_correct"`

	// ErrorsTotal is the number of errors detected for this agent.
	ErrorsTotal int `json:"errors_total"`

	// MessageCount is the number of recorded activity events.
	MessageCount int `json:"message_count"`
}

// NormalizeAgentName returns the canonical form of an agent name.
func NormalizeAgentName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// NewAgentState creates an AgentState with the normalized name and the
// given registration time as its initial activity.
func NewAgentState(name string, registeredAt time.Time) *AgentState {
	return &AgentState{
		Name:           NormalizeAgentName(name),
		LastActivityAt: registeredAt,
	}
}

// AckRate returns the mention acknowledgment rate in [0,100].
// An agent with no mentions scores 100; absence of evidence is not
// evidence of failure.
func (a *AgentState) AckRate() float64 {
	if a.MentionsTotal == 0 {
		return 100.0
	}
	return clampScore(float64(a.MentionsAcked) / float64(a.MentionsTotal) * 100)
}

// AvgLatency returns the mean response latency in seconds, or 0 when no
// responses have been recorded.
func (a *AgentState) AvgLatency() float64 {
	if len(a.ResponseLatencies) == 0 {
		return 0
	}
	var sum float64
	for _, l := range a.ResponseLatencies {
		sum += l
	}
	return sum / float64(len(a.ResponseLatencies))
}

// ContextFidelity returns the claim accuracy rate in [0,100].
// An agent with no claims scores 100.
func (a *AgentState) ContextFidelity() float64 {
	if a.ClaimsTotal == 0 {
		return 100.0
	}
	return clampScore(float64(a.ClaimsCorrect) / float64(a.ClaimsTotal) * 100)
}

// IdleSeconds returns the seconds elapsed since the last recorded activity.
// The second return is false when the agent has never been active.
func (a *AgentState) IdleSeconds(now time.Time) (float64, bool) {
	if a.LastActivityAt.IsZero() {
		return 0, false
	}
	return now.Sub(a.LastActivityAt).Seconds(), true
}

// IsActive reports whether the agent has been active more recently than the
// inactivity warning threshold.
func (a *AgentState) IsActive(now time.Time, t Thresholds) bool {
	idle, ok := a.IdleSeconds(now)
	return ok && idle < t.InactiveWarning
}

// touch records activity at the given time.
func (a *AgentState) touch(now time.Time) {
	a.LastActivityAt = now
}
