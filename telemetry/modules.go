package telemetry

// This file declares the metric instruments emitted by the flow
// orchestration core. It lives in the telemetry package to avoid an
// import cycle with the package that emits through it (configsnap's
// telemetry adapter, for LKG fallbacks).

func init() {
	DeclareMetrics("rorchestrator", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "rorchestrator.flow.outcomes",
				Type:   "counter",
				Help:   "Flow execution outcomes",
				Labels: []string{"flow_name", "outcome_kind"},
			},
			{
				Name:    "rorchestrator.flow.latency.ms",
				Type:    "histogram",
				Help:    "Flow execution latency in milliseconds",
				Labels:  []string{"flow_name", "outcome_kind"},
				Unit:    "ms",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			{
				Name:   "rorchestrator.step.outcomes",
				Type:   "counter",
				Help:   "Step execution outcomes",
				Labels: []string{"flow_name", "module_type", "outcome_kind"},
			},
			{
				Name:    "rorchestrator.step.latency.ms",
				Type:    "histogram",
				Help:    "Step execution latency in milliseconds",
				Labels:  []string{"flow_name", "module_type", "outcome_kind"},
				Unit:    "ms",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			{
				Name:   "rorchestrator.step.skipped.reasons",
				Type:   "counter",
				Help:   "Steps skipped, by sanitized reason code",
				Labels: []string{"flow_name", "module_type", "skip_code"},
			},
			{
				Name:   "rorchestrator.join.outcomes",
				Type:   "counter",
				Help:   "Join evaluation outcomes",
				Labels: []string{"flow_name", "outcome_kind"},
			},
			{
				Name:    "rorchestrator.join.latency.ms",
				Type:    "histogram",
				Help:    "Join evaluation latency in milliseconds",
				Labels:  []string{"flow_name", "outcome_kind"},
				Unit:    "ms",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			{
				Name:   "rorchestrator.qos.tier.selected",
				Type:   "counter",
				Help:   "QoS tier selections per flow",
				Labels: []string{"flow_name", "qos_tier"},
			},
			{
				Name:   "rorchestrator.config.lkg.fallbacks",
				Type:   "counter",
				Help:   "Times a flow's configuration fell back to the last-known-good snapshot",
				Labels: []string{"flow_name"},
			},
		},
	})
}
