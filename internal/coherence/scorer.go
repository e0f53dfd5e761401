package coherence

import (
	"math"
	"time"
)

// Scoring weights for the per-agent coherence score. These are fixed
// constants of the scoring model; only alert thresholds are configurable.
const (
	weightAckRate  = 0.30
	weightLatency  = 0.25
	weightFidelity = 0.30
	weightActivity = 0.15
)

// Latency scoring bands in seconds.
const (
	latencyExcellent = 5.0
	latencyGood      = 30.0
	latencyPoor      = 60.0
)

// Activity scoring bands in seconds of idle time.
const (
	idleRecent  = 30.0
	idleStale   = 120.0
	idleDormant = 300.0
)

// ScoreLatency maps an average response latency in seconds to [0,100].
// Latency at or under 5s is a perfect score; an empty latency history
// (average 0) therefore also scores 100 — the no-data default, not a
// claim of instantaneous response.
func ScoreLatency(avgLatency float64) float64 {
	switch {
	case avgLatency <= latencyExcellent:
		return 100.0
	case avgLatency <= latencyGood:
		return clampScore(interpolate(100, 60, avgLatency, latencyExcellent, latencyGood))
	case avgLatency <= latencyPoor:
		return clampScore(interpolate(60, 30, avgLatency, latencyGood, latencyPoor))
	default:
		return 0.0
	}
}

// ScoreActivity maps seconds of idle time to [0,100]. An agent that has
// never been active scores 0.
func ScoreActivity(idleSeconds float64, everActive bool) float64 {
	if !everActive {
		return 0.0
	}
	switch {
	case idleSeconds < idleRecent:
		return 100.0
	case idleSeconds < idleStale:
		return clampScore(interpolate(100, 60, idleSeconds, idleRecent, idleStale))
	case idleSeconds < idleDormant:
		return clampScore(interpolate(60, 20, idleSeconds, idleStale, idleDormant))
	default:
		return 0.0
	}
}

// AgentScore computes the weighted coherence score for one agent,
// rounded to one decimal place.
func AgentScore(a *AgentState, now time.Time) float64 {
	idle, everActive := a.IdleSeconds(now)

	total := a.AckRate()*weightAckRate +
		ScoreLatency(a.AvgLatency())*weightLatency +
		a.ContextFidelity()*weightFidelity +
		ScoreActivity(idle, everActive)*weightActivity

	return round1(clampScore(total))
}

// TeamScore computes the team coherence score as the arithmetic mean of all
// agent scores, together with the per-agent score map. The boolean return is
// false when no agents are registered, so callers can tell "no data" apart
// from a genuine zero score.
func TeamScore(agents map[string]*AgentState, now time.Time) (float64, map[string]float64, bool) {
	if len(agents) == 0 {
		return 0, map[string]float64{}, false
	}

	scores := make(map[string]float64, len(agents))
	var sum float64
	for name, agent := range agents {
		s := AgentScore(agent, now)
		scores[name] = s
		sum += s
	}

	return round1(sum / float64(len(agents))), scores, true
}

// interpolate maps x within [loBound, hiBound] linearly from hi down to lo.
func interpolate(hi, lo, x, loBound, hiBound float64) float64 {
	return hi - (hi-lo)*(x-loBound)/(hiBound-loBound)
}

// clampScore bounds a score to [0,100].
func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
