package telemetry

import "regexp"

// RorchestratorMetrics is a thin facade over the Level-1 emit API, one
// method per instrument declared in modules.go. Keeping the instrument
// names in one place means callers never hand-type a metric string.
type RorchestratorMetrics struct{}

// NewRorchestratorMetrics returns a facade bound to the global registry.
func NewRorchestratorMetrics() *RorchestratorMetrics {
	return &RorchestratorMetrics{}
}

func (RorchestratorMetrics) FlowOutcome(flowName, outcomeKind string) {
	Counter("rorchestrator.flow.outcomes", "flow_name", flowName, "outcome_kind", outcomeKind)
}

func (RorchestratorMetrics) FlowLatency(flowName, outcomeKind string, ms float64) {
	Histogram("rorchestrator.flow.latency.ms", ms, "flow_name", flowName, "outcome_kind", outcomeKind)
}

func (RorchestratorMetrics) StepOutcome(flowName, moduleType, outcomeKind string) {
	Counter("rorchestrator.step.outcomes",
		"flow_name", flowName, "module_type", moduleType, "outcome_kind", outcomeKind)
}

func (RorchestratorMetrics) StepLatency(flowName, moduleType, outcomeKind string, ms float64) {
	Histogram("rorchestrator.step.latency.ms", ms,
		"flow_name", flowName, "module_type", moduleType, "outcome_kind", outcomeKind)
}

// skipCodeDigitRun matches six or more consecutive digits, the signal for a
// skip_code that embeds an unbounded identifier (an attempt id, a row
// number) rather than a fixed enum member.
var skipCodeDigitRun = regexp.MustCompile(`[0-9]{6,}`)

// sanitizeSkipCode collapses any skip_code that could blow up cardinality
// down to a fixed "OTHER" bucket: more than five consecutive digits, a
// colon (often used to embed a dynamic suffix), or anything over 64 bytes.
func sanitizeSkipCode(skipCode string) string {
	if len(skipCode) > 64 {
		return "OTHER"
	}
	for i := 0; i < len(skipCode); i++ {
		if skipCode[i] == ':' {
			return "OTHER"
		}
	}
	if skipCodeDigitRun.MatchString(skipCode) {
		return "OTHER"
	}
	return skipCode
}

func (RorchestratorMetrics) StepSkipped(flowName, moduleType, skipCode string) {
	Counter("rorchestrator.step.skipped.reasons",
		"flow_name", flowName, "module_type", moduleType, "skip_code", sanitizeSkipCode(skipCode))
}

func (RorchestratorMetrics) JoinOutcome(flowName, outcomeKind string) {
	Counter("rorchestrator.join.outcomes", "flow_name", flowName, "outcome_kind", outcomeKind)
}

func (RorchestratorMetrics) JoinLatency(flowName, outcomeKind string, ms float64) {
	Histogram("rorchestrator.join.latency.ms", ms, "flow_name", flowName, "outcome_kind", outcomeKind)
}

func (RorchestratorMetrics) QosTierSelected(flowName, qosTier string) {
	Counter("rorchestrator.qos.tier.selected", "flow_name", flowName, "qos_tier", qosTier)
}

func (RorchestratorMetrics) LKGFallback(flowName string) {
	Counter("rorchestrator.config.lkg.fallbacks", "flow_name", flowName)
}
