package coherence

import (
	"fmt"
	"time"
)

// Severity represents the severity level of an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid returns true if the severity is a recognized level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

// Metric identifies a monitored coordination metric.
type Metric string

const (
	MetricLatency    Metric = "latency"
	MetricAckRate    Metric = "ack_rate"
	MetricFidelity   Metric = "fidelity"
	MetricInactivity Metric = "inactivity"
	MetricCoherence  Metric = "coherence"
)

// String returns the string representation of the metric.
func (m Metric) String() string {
	return string(m)
}

// Operator returns the breach comparison for the metric's polarity.
// Latency and inactivity cross upward (higher is worse); ack rate,
// fidelity, and coherence cross downward (lower is worse, and a value
// exactly at the threshold does not breach).
func (m Metric) Operator() Operator {
	switch m {
	case MetricLatency, MetricInactivity:
		return OpGreaterOrEqual
	default:
		return OpLessThan
	}
}

// Operator defines the comparison applied between a metric value and a
// threshold to decide whether the threshold is breached.
type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpLessThan       Operator = "<"
)

// Compare evaluates the comparison between value and threshold.
// Returns true if the threshold is breached.
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OpGreaterOrEqual:
		return value >= threshold
	case OpLessThan:
		return value < threshold
	default:
		return false
	}
}

// Alert records a threshold breach for an (agent, metric) pair.
// A team-level alert has an empty Agent.
type Alert struct {
	// Agent is the normalized agent name, or empty for team-level alerts.
	Agent string `json:"agent,omitempty"`

	// Metric is the metric that breached its threshold.
	Metric Metric `json:"metric"`

	// Severity is WARNING or CRITICAL depending on the threshold crossed.
	Severity Severity `json:"severity"`

	// Message is the human-readable alert description.
	Message string `json:"message"`

	// Value is the metric value at evaluation time.
	Value float64 `json:"value"`

	// Threshold is the threshold that was crossed.
	Threshold float64 `json:"threshold"`

	// CreatedAt is when the alert was raised.
	CreatedAt time.Time `json:"created_at"`
}

// IsTeam returns true for team-level alerts.
func (a *Alert) IsTeam() bool {
	return a.Agent == ""
}

// Subject returns the display name of the alert subject.
func (a *Alert) Subject() string {
	if a.IsTeam() {
		return "TEAM"
	}
	return a.Agent
}

// Expired reports whether the alert has aged past the active window.
func (a *Alert) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(a.CreatedAt) > ttl
}

// Format returns a one-line summary suitable for logs and CLI output.
func (a *Alert) Format() string {
	return fmt.Sprintf("[%s] [%s] %s (value: %.2f, threshold: %.2f)",
		a.Severity, a.Subject(), a.Message, a.Value, a.Threshold)
}
