package coherence

import "fmt"

// Thresholds holds the warning/critical pairs used for alert evaluation.
// A Thresholds value is immutable after construction; Validate enforces the
// polarity-aware ordering of each pair.
type Thresholds struct {
	// LatencyWarning and LatencyCritical are average response latency
	// thresholds in seconds. Higher is worse.
	LatencyWarning  float64 `json:"latency_warning" mapstructure:"latency_warning"`
	LatencyCritical float64 `json:"latency_critical" mapstructure:"latency_critical"`

	// AckRateWarning and AckRateCritical are acknowledgment rate
	// thresholds in percent. Lower is worse.
	AckRateWarning  float64 `json:"ack_rate_warning" mapstructure:"ack_rate_warning"`
	AckRateCritical float64 `json:"ack_rate_critical" mapstructure:"ack_rate_critical"`

	// FidelityWarning and FidelityCritical are context fidelity thresholds
	// in percent. Lower is worse.
	FidelityWarning  float64 `json:"fidelity_warning" mapstructure:"fidelity_warning"`
	FidelityCritical float64 `json:"fidelity_critical" mapstructure:"fidelity_critical"`

	// InactiveWarning and InactiveCritical are idle time thresholds in
	// seconds since last activity. Higher is worse.
	InactiveWarning  float64 `json:"inactive_warning" mapstructure:"inactive_warning"`
	InactiveCritical float64 `json:"inactive_critical" mapstructure:"inactive_critical"`

	// CoherenceWarning and CoherenceCritical are team score thresholds.
	// Lower is worse.
	CoherenceWarning  float64 `json:"coherence_warning" mapstructure:"coherence_warning"`
	CoherenceCritical float64 `json:"coherence_critical" mapstructure:"coherence_critical"`
}

// DefaultThresholds returns the documented default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyWarning:    30.0,
		LatencyCritical:   60.0,
		AckRateWarning:    80.0,
		AckRateCritical:   60.0,
		FidelityWarning:   90.0,
		FidelityCritical:  70.0,
		InactiveWarning:   120.0,
		InactiveCritical:  300.0,
		CoherenceWarning:  75.0,
		CoherenceCritical: 50.0,
	}
}

// Validate checks that every warning threshold is strictly less severe than
// its critical counterpart. For metrics where higher is worse the warning
// must be below the critical; for metrics where lower is worse the warning
// must be above the critical.
func (t Thresholds) Validate() error {
	type pair struct {
		metric   Metric
		warning  float64
		critical float64
	}

	for _, p := range []pair{
		{MetricLatency, t.LatencyWarning, t.LatencyCritical},
		{MetricAckRate, t.AckRateWarning, t.AckRateCritical},
		{MetricFidelity, t.FidelityWarning, t.FidelityCritical},
		{MetricInactivity, t.InactiveWarning, t.InactiveCritical},
		{MetricCoherence, t.CoherenceWarning, t.CoherenceCritical},
	} {
		switch p.metric.Operator() {
		case OpGreaterOrEqual:
			if p.warning >= p.critical {
				return &InvalidInputError{
					Field:  string(p.metric),
					Reason: fmt.Sprintf("warning (%.2f) must be less than critical (%.2f)", p.warning, p.critical),
				}
			}
		case OpLessThan:
			if p.warning <= p.critical {
				return &InvalidInputError{
					Field:  string(p.metric),
					Reason: fmt.Sprintf("warning (%.2f) must be greater than critical (%.2f)", p.warning, p.critical),
				}
			}
		}
	}
	return nil
}

// Warning returns the warning threshold for the given metric.
func (t Thresholds) Warning(m Metric) float64 {
	switch m {
	case MetricLatency:
		return t.LatencyWarning
	case MetricAckRate:
		return t.AckRateWarning
	case MetricFidelity:
		return t.FidelityWarning
	case MetricInactivity:
		return t.InactiveWarning
	case MetricCoherence:
		return t.CoherenceWarning
	default:
		return 0
	}
}

// Critical returns the critical threshold for the given metric.
func (t Thresholds) Critical(m Metric) float64 {
	switch m {
	case MetricLatency:
		return t.LatencyCritical
	case MetricAckRate:
		return t.AckRateCritical
	case MetricFidelity:
		return t.FidelityCritical
	case MetricInactivity:
		return t.InactiveCritical
	case MetricCoherence:
		return t.CoherenceCritical
	default:
		return 0
	}
}

// InvalidInputError indicates a caller supplied a value outside the valid
// input domain (negative latency, mis-ordered threshold pair).
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input for " + e.Field + ": " + e.Reason
}
