package coherence

import (
	"fmt"
	"time"

	"github.com/willibrandon/cohere/internal/logger"
)

// AlertTTL is how long an alert stays active before it expires and the
// (agent, metric) pair becomes eligible for re-alerting.
const AlertTTL = time.Hour

// alertHistoryLimit bounds the retained alert history for audit/export.
const alertHistoryLimit = 1000

// Engine evaluates agent and team metrics against thresholds and manages
// the alert lifecycle: raise, de-duplicate, expire, clear.
//
// De-duplication is per (agent, metric): while an unexpired alert exists
// for a pair, evaluation is a no-op for that pair even if the severity
// would change. A WARNING that worsens to CRITICAL re-alerts only after
// the WARNING expires or is cleared. This keeps alert volume down at the
// cost of delayed severity escalation; callers polling faster than the
// TTL should expect that delay.
type Engine struct {
	thresholds Thresholds

	// active holds unexpired, uncleared alerts. Expiry is recomputed on
	// read; there is no background sweeper.
	active []Alert

	// history retains every raised alert (including expired and cleared)
	// up to alertHistoryLimit for audit and export.
	history []Alert
}

// NewEngine creates an alert engine with the given thresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// CheckAgent evaluates one agent's metrics and raises alerts for any
// breached thresholds. Returns the newly raised alerts.
func (e *Engine) CheckAgent(a *AgentState, now time.Time) []Alert {
	var raised []Alert

	// Acknowledgment rate: only meaningful once the agent has mentions.
	if a.MentionsTotal > 0 {
		if alert, ok := e.breach(MetricAckRate, a.AckRate(), now); ok {
			alert.Agent = a.Name
			if alert.Severity == SeverityCritical {
				alert.Message = fmt.Sprintf("%s acknowledgment rate critically low", a.Name)
			} else {
				alert.Message = fmt.Sprintf("%s acknowledgment rate below threshold", a.Name)
			}
			if e.raise(alert) {
				raised = append(raised, alert)
			}
		}
	}

	// Latency: gated on having at least one recorded response.
	if avg := a.AvgLatency(); avg > 0 {
		if alert, ok := e.breach(MetricLatency, avg, now); ok {
			alert.Agent = a.Name
			if alert.Severity == SeverityCritical {
				alert.Message = fmt.Sprintf("%s response latency critically high", a.Name)
			} else {
				alert.Message = fmt.Sprintf("%s response latency high", a.Name)
			}
			if e.raise(alert) {
				raised = append(raised, alert)
			}
		}
	}

	// Context fidelity: gated on having recorded claims.
	if a.ClaimsTotal > 0 {
		if alert, ok := e.breach(MetricFidelity, a.ContextFidelity(), now); ok {
			alert.Agent = a.Name
			if alert.Severity == SeverityCritical {
				alert.Message = fmt.Sprintf("%s context fidelity critically low", a.Name)
			} else {
				alert.Message = fmt.Sprintf("%s context fidelity below threshold", a.Name)
			}
			if e.raise(alert) {
				raised = append(raised, alert)
			}
		}
	}

	// Inactivity: gated on the agent having been active at least once.
	if idle, ok := a.IdleSeconds(now); ok {
		if alert, breached := e.breach(MetricInactivity, idle, now); breached {
			alert.Agent = a.Name
			if alert.Severity == SeverityCritical {
				alert.Message = fmt.Sprintf("%s has been inactive for %.0fs", a.Name, idle)
			} else {
				alert.Message = fmt.Sprintf("%s inactive for %.0fs", a.Name, idle)
			}
			if e.raise(alert) {
				raised = append(raised, alert)
			}
		}
	}

	return raised
}

// CheckTeam evaluates the team coherence score. Returns the newly raised
// alert, if any.
func (e *Engine) CheckTeam(score float64, now time.Time) []Alert {
	alert, ok := e.breach(MetricCoherence, score, now)
	if !ok {
		return nil
	}

	if alert.Severity == SeverityCritical {
		alert.Message = fmt.Sprintf("team coherence critically low: %.1f", score)
	} else {
		alert.Message = fmt.Sprintf("team coherence below threshold: %.1f", score)
	}

	if e.raise(alert) {
		return []Alert{alert}
	}
	return nil
}

// breach compares a metric value against its thresholds, critical first.
// Returns a partially filled alert (no agent/message) and whether a
// threshold was breached.
func (e *Engine) breach(metric Metric, value float64, now time.Time) (Alert, bool) {
	op := metric.Operator()

	if op.Compare(value, e.thresholds.Critical(metric)) {
		return Alert{
			Metric:    metric,
			Severity:  SeverityCritical,
			Value:     value,
			Threshold: e.thresholds.Critical(metric),
			CreatedAt: now,
		}, true
	}
	if op.Compare(value, e.thresholds.Warning(metric)) {
		return Alert{
			Metric:    metric,
			Severity:  SeverityWarning,
			Value:     value,
			Threshold: e.thresholds.Warning(metric),
			CreatedAt: now,
		}, true
	}
	return Alert{}, false
}

// raise records the alert unless an unexpired alert already exists for the
// same (agent, metric) pair. Returns true if the alert was recorded.
func (e *Engine) raise(alert Alert) bool {
	if e.hasActive(alert.Agent, alert.Metric, alert.CreatedAt) {
		logger.Debug("alert suppressed by active duplicate",
			"agent", alert.Subject(),
			"metric", alert.Metric.String())
		return false
	}

	e.active = append(e.active, alert)
	e.history = append(e.history, alert)
	if len(e.history) > alertHistoryLimit {
		e.history = e.history[len(e.history)-alertHistoryLimit:]
	}

	logger.Info("alert raised",
		"agent", alert.Subject(),
		"metric", alert.Metric.String(),
		"severity", alert.Severity.String(),
		"value", alert.Value,
		"threshold", alert.Threshold)

	return true
}

// hasActive reports whether an unexpired alert exists for the pair.
func (e *Engine) hasActive(agent string, metric Metric, now time.Time) bool {
	for i := range e.active {
		a := &e.active[i]
		if a.Agent == agent && a.Metric == metric && !a.Expired(now, AlertTTL) {
			return true
		}
	}
	return false
}

// Active returns unexpired alerts, newest last, optionally filtered by
// severity (empty severity returns all).
func (e *Engine) Active(severity Severity, now time.Time) []Alert {
	e.pruneExpired(now)

	result := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		if severity == "" || a.Severity == severity {
			result = append(result, a)
		}
	}
	return result
}

// ActiveCount returns the number of unexpired alerts.
func (e *Engine) ActiveCount(now time.Time) int {
	e.pruneExpired(now)
	return len(e.active)
}

// Clear permanently removes active alerts for the given agent, or all
// active alerts when agent is empty. Cleared alerts remain in history.
// Returns the number of alerts removed.
func (e *Engine) Clear(agent string) int {
	if agent == "" {
		n := len(e.active)
		e.active = nil
		return n
	}

	agent = NormalizeAgentName(agent)
	kept := e.active[:0]
	cleared := 0
	for _, a := range e.active {
		if a.Agent == agent {
			cleared++
			continue
		}
		kept = append(kept, a)
	}
	e.active = kept
	return cleared
}

// History returns a copy of the retained alert history, oldest first.
func (e *Engine) History() []Alert {
	result := make([]Alert, len(e.history))
	copy(result, e.history)
	return result
}

// pruneExpired drops expired alerts from the active set. They stay in
// history.
func (e *Engine) pruneExpired(now time.Time) {
	kept := e.active[:0]
	for _, a := range e.active {
		if !a.Expired(now, AlertTTL) {
			kept = append(kept, a)
		}
	}
	e.active = kept
}

// restore replaces engine state from persisted alerts.
func (e *Engine) restore(active, history []Alert) {
	e.active = append([]Alert(nil), active...)
	e.history = append([]Alert(nil), history...)
	if len(e.history) > alertHistoryLimit {
		e.history = e.history[len(e.history)-alertHistoryLimit:]
	}
}

// reset drops all alert state.
func (e *Engine) reset() {
	e.active = nil
	e.history = nil
}
