package engine

import (
	"time"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
	"github.com/WAcry/ROrchestrator-sub004/patch"
	"github.com/WAcry/ROrchestrator-sub004/plan"
	"github.com/WAcry/ROrchestrator-sub004/resilience"
)

// Metrics is the narrow surface ExecutionEngine needs from telemetry,
// mirroring resilience.MetricsCollector's inject-an-interface pattern so
// the engine never imports a concrete metrics backend.
type Metrics interface {
	FlowOutcome(flowName, outcomeKind string)
	FlowLatency(flowName, outcomeKind string, ms float64)
	StepOutcome(flowName, moduleType, outcomeKind string)
	StepLatency(flowName, moduleType, outcomeKind string, ms float64)
	StepSkipped(flowName, moduleType, skipCode string)
	JoinOutcome(flowName, outcomeKind string)
	JoinLatency(flowName, outcomeKind string, ms float64)
	QosTierSelected(flowName, qosTier string)
}

type noopMetrics struct{}

func (noopMetrics) FlowOutcome(string, string)                  {}
func (noopMetrics) FlowLatency(string, string, float64)         {}
func (noopMetrics) StepOutcome(string, string, string)          {}
func (noopMetrics) StepLatency(string, string, string, float64) {}
func (noopMetrics) StepSkipped(string, string, string)          {}
func (noopMetrics) JoinOutcome(string, string)                  {}
func (noopMetrics) JoinLatency(string, string, float64)         {}
func (noopMetrics) QosTierSelected(string, string)              {}

// BulkheadLimits maps a limitKey to its configured maximum in-flight
// permits. A key absent (or <= 0) is treated as unbounded: the engine skips
// bulkhead acquisition entirely for that key.
type BulkheadLimits map[string]int

// ExecutionEngine walks a compiled plan against an evaluated flow.
type ExecutionEngine struct {
	catalog   *plan.ModuleCatalog
	bulkhead  *resilience.Bulkhead
	limits    BulkheadLimits
	selectors patch.SelectorRegistry
	metrics   Metrics
	now       func() time.Time
}

// NewExecutionEngine builds an engine bound to catalog, with optional
// bulkhead/limits/selectors/metrics. A nil bulkhead disables admission
// control entirely (every module runs unthrottled); a nil metrics uses a
// no-op implementation.
func NewExecutionEngine(catalog *plan.ModuleCatalog, opts ...EngineOption) *ExecutionEngine {
	e := &ExecutionEngine{
		catalog: catalog,
		limits:  make(BulkheadLimits),
		metrics: noopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EngineOption configures an ExecutionEngine built by NewExecutionEngine.
type EngineOption func(*ExecutionEngine)

func WithBulkhead(b *resilience.Bulkhead, limits BulkheadLimits) EngineOption {
	return func(e *ExecutionEngine) {
		e.bulkhead = b
		e.limits = limits
	}
}

func WithSelectors(s patch.SelectorRegistry) EngineOption {
	return func(e *ExecutionEngine) { e.selectors = s }
}

func WithMetrics(m Metrics) EngineOption {
	return func(e *ExecutionEngine) { e.metrics = m }
}

// Execute walks bp/pt's nodes in plan order against req, recording outcomes
// onto fc and, if fc has an ExecExplain sink attached, a structured trace of
// what happened. Pre-node guards check cancellation and deadline before
// every node; a stage's own fan-out never aborts the chain (its per-module
// outcomes live in ExecExplain and name lookups, not in a single value).
func (e *ExecutionEngine) Execute(bp *blueprint.Blueprint, pt *plan.PlanTemplate, req any, fc *FlowContext, evaluated *patch.EvaluatedFlow, qosTier string) outcome.Outcome[any] {
	flowStart := e.now()
	names := make([]string, len(pt.Nodes))
	for i, n := range pt.Nodes {
		names[i] = n.Name
	}
	fc.initNodeOutcomes(names)

	if fc.explain != nil {
		fc.explain.PlanHash = pt.PlanHash
		fc.explain.QosTier = qosTier
	}
	e.metrics.QosTierSelected(pt.FlowName, qosTier)

	var lastOutput any = req
	var final outcome.Outcome[any]

	i := 0
	for i < len(pt.Nodes) {
		if fc.Err() != nil {
			final = outcome.NewCanceled[any]("UPSTREAM_CANCELED")
			fc.setNodeOutcome(i, final)
			break
		}
		if fc.DeadlineExceeded(e.now()) {
			final = outcome.NewTimeout[any]("DEADLINE_EXCEEDED")
			fc.setNodeOutcome(i, final)
			break
		}

		node := pt.Nodes[i]
		switch node.Kind {
		case blueprint.StepKind:
			if node.StageName != "" {
				stageName := node.StageName
				j := i
				for j < len(pt.Nodes) && pt.Nodes[j].StageName == stageName {
					j++
				}
				e.runStage(fc, bp, stageName, evaluated, lastOutput)
				i = j
				continue
			}
			o, dur := e.runStep(fc, node, lastOutput)
			fc.setNodeOutcome(i, o)
			e.recordNode(fc, node, dur, o)
			if o.HasValue() {
				lastOutput = o.Value()
			}
			if isTerminalFailure(o) {
				final = o
				i = len(pt.Nodes)
			} else {
				i++
			}

		case blueprint.JoinKind:
			bNode, _ := bp.NodeByName(node.Name)
			o, dur := e.runJoin(bNode, fc)
			fc.setNodeOutcome(i, o)
			e.recordNode(fc, node, dur, o)
			e.metrics.JoinOutcome(pt.FlowName, o.Kind().String())
			e.metrics.JoinLatency(pt.FlowName, o.Kind().String(), float64(dur.Milliseconds()))
			if o.HasValue() {
				lastOutput = o.Value()
			}
			if i == len(pt.Nodes)-1 || isTerminalFailure(o) {
				final = o
				i = len(pt.Nodes)
			} else {
				i++
			}
		}
	}

	final = e.coerceDeadline(fc, final)

	flowDur := e.now().Sub(flowStart)
	if fc.explain != nil {
		fc.explain.FlowDuration = flowDur
	}
	e.metrics.FlowOutcome(pt.FlowName, final.Kind().String())
	e.metrics.FlowLatency(pt.FlowName, final.Kind().String(), float64(flowDur.Milliseconds()))

	return final
}

// coerceDeadline implements the "deadline crossed after a normal return"
// rule: the flow's terminal outcome is coerced to Timeout even if the last
// node itself returned successfully, while the node's own recorded outcome
// keeps its real value. Symmetric for cancellation.
func (e *ExecutionEngine) coerceDeadline(fc *FlowContext, o outcome.Outcome[any]) outcome.Outcome[any] {
	if fc.Err() != nil && o.Kind() != outcome.Canceled {
		return outcome.NewCanceled[any]("UPSTREAM_CANCELED")
	}
	if fc.DeadlineExceeded(e.now()) && o.Kind() != outcome.Timeout {
		return outcome.NewTimeout[any]("DEADLINE_EXCEEDED")
	}
	return o
}

func (e *ExecutionEngine) recordNode(fc *FlowContext, node plan.PlanNode, dur time.Duration, o outcome.Outcome[any]) {
	if fc.explain == nil {
		return
	}
	fc.explain.recordNode(NodeExplain{
		Kind:        node.Kind.String(),
		Name:        node.Name,
		StageName:   node.StageName,
		ModuleType:  node.ModuleType,
		Duration:    dur,
		OutcomeKind: o.Kind().String(),
		OutcomeCode: o.Code(),
	})
}
