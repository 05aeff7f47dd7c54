package configsnap

import "github.com/WAcry/ROrchestrator-sub004/telemetry"

// telemetryLKGMetrics adapts the package-wide rorchestrator metrics facade
// to the narrow lkgMetrics surface LKGProvider depends on.
type telemetryLKGMetrics struct {
	m *telemetry.RorchestratorMetrics
}

// NewTelemetryLKGMetrics returns an lkgMetrics implementation that records
// fallbacks through the global telemetry registry.
func NewTelemetryLKGMetrics() lkgMetrics {
	return telemetryLKGMetrics{m: telemetry.NewRorchestratorMetrics()}
}

func (t telemetryLKGMetrics) RecordLKGFallback(flowName string) {
	t.m.LKGFallback(flowName)
}
