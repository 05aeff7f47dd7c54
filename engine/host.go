package engine

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/WAcry/ROrchestrator-sub004/configsnap"
	"github.com/WAcry/ROrchestrator-sub004/core"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
	"github.com/WAcry/ROrchestrator-sub004/patch"
	"github.com/WAcry/ROrchestrator-sub004/plan"
	"github.com/WAcry/ROrchestrator-sub004/qos"
)

// planCacheKey identifies one compiled PlanTemplate: a flow at a specific
// configVersion. Revalidating a patch document never changes a flow's
// topology, but the cache is keyed this way anyway since a new configVersion
// is the trigger for considering recompilation at all.
type planCacheKey struct {
	flowName      string
	configVersion uint64
}

// planCacheCall is the single-flight slot for one planCacheKey.
type planCacheCall struct {
	done chan struct{}
	pt   *plan.PlanTemplate
	err  error
}

// FlowHost is the top-level entry point a caller drives: it binds a
// FlowRegistry, ModuleCatalog, ConfigProvider and PlanCompiler together and
// exposes the generic Execute function that runs one request through the
// full resolve-compile-evaluate-execute sequence.
type FlowHost struct {
	registry     *plan.FlowRegistry
	catalog      *plan.ModuleCatalog
	configs      configsnap.ConfigProvider
	qosProvider  qos.Provider
	compiler     *plan.PlanCompiler
	docs         *patch.DocumentCache
	engine       *ExecutionEngine
	logger       core.Logger
	now          func() time.Time

	planMu    sync.Mutex
	planCalls map[planCacheKey]*planCacheCall
}

// HostOption configures a FlowHost built by NewFlowHost.
type HostOption func(*FlowHost)

// WithQosProvider attaches a QoS tier selector. Without one, every request
// runs at qos.DefaultTier.
func WithQosProvider(p qos.Provider) HostOption {
	return func(h *FlowHost) { h.qosProvider = p }
}

// WithHostLogger attaches a logger for host-level diagnostics (plan compile
// failures, config fetch failures). Defaults to a no-op logger.
func WithHostLogger(l core.Logger) HostOption {
	return func(h *FlowHost) { h.logger = l }
}

// NewFlowHost builds a FlowHost bound to registry/catalog/configs, driving
// its ExecutionEngine via eng.
func NewFlowHost(registry *plan.FlowRegistry, catalog *plan.ModuleCatalog, configs configsnap.ConfigProvider, eng *ExecutionEngine, opts ...HostOption) *FlowHost {
	h := &FlowHost{
		registry:  registry,
		catalog:   catalog,
		configs:   configs,
		compiler:  plan.NewPlanCompiler(catalog),
		docs:      patch.NewDocumentCache(),
		engine:    eng,
		logger:    &core.NoOpLogger{},
		now:       time.Now,
		planCalls: make(map[planCacheKey]*planCacheCall),
	}
	for _, opt := range opts {
		opt(h)
	}
	if caw, ok := h.logger.(core.ComponentAwareLogger); ok {
		h.logger = caw.WithComponent("engine")
	}
	return h
}

// resolvePlan compiles bp for (flowName, configVersion) at most once; later
// or concurrent callers with the same key share the first compilation.
func (h *FlowHost) resolvePlan(flowName string, configVersion uint64, bp *plan.FlowEntry) (*plan.PlanTemplate, error) {
	key := planCacheKey{flowName: flowName, configVersion: configVersion}

	h.planMu.Lock()
	if call, ok := h.planCalls[key]; ok {
		h.planMu.Unlock()
		<-call.done
		return call.pt, call.err
	}
	call := &planCacheCall{done: make(chan struct{})}
	h.planCalls[key] = call
	h.planMu.Unlock()

	pt, _, err := h.compiler.Compile(bp.Blueprint, bp.RequestType)
	call.pt, call.err = pt, err
	close(call.done)
	return call.pt, call.err
}

// renderOverlays flattens AppliedOverlay records into the short strings
// ExecExplain carries (one per applied layer).
func renderOverlays(overlays []patch.AppliedOverlay) []string {
	out := make([]string, 0, len(overlays))
	for _, o := range overlays {
		if o.Layer == patch.LayerExperiment {
			out = append(out, fmt.Sprintf("%s:%s:%s", o.Layer, o.ExperimentLayer, o.ExperimentVariant))
			continue
		}
		out = append(out, string(o.Layer))
	}
	return out
}

// Execute runs flowName for one request: it validates the caller's (Req,
// Resp) signature against the registry, fetches (and caches on fc) the
// flow's configuration snapshot, resolves or compiles its PlanTemplate,
// selects a QoS tier, evaluates the patch document, and hands the whole
// assembly to the bound ExecutionEngine. fc must already carry a non-zero
// deadline (see NewFlowContext).
func Execute[Req, Resp any](h *FlowHost, flowName string, req Req, fc *FlowContext) (outcome.Outcome[Resp], error) {
	reqType := reflect.TypeOf((*Req)(nil)).Elem()
	respType := reflect.TypeOf((*Resp)(nil)).Elem()

	entry, err := h.registry.ValidateSignature(flowName, reqType, respType)
	if err != nil {
		h.logger.Warn("flow signature mismatch", map[string]interface{}{"flow": flowName, "error": err.Error()})
		return outcome.Outcome[Resp]{}, err
	}

	snapshot, err := fc.snapshotOnce(func() (configsnap.Snapshot, error) {
		return h.configs.GetSnapshot(fc.Context(), flowName)
	})
	if err != nil {
		h.logger.Error("config snapshot fetch failed", map[string]interface{}{"flow": flowName, "error": err.Error()})
		return outcome.Outcome[Resp]{}, fmt.Errorf("config snapshot: %w", err)
	}

	doc, err := h.docs.Parse([]byte(snapshot.PatchJSON), snapshot.ConfigVersion)
	if err != nil {
		h.logger.Error("patch document parse failed", map[string]interface{}{"flow": flowName, "configVersion": snapshot.ConfigVersion, "error": err.Error()})
		return outcome.Outcome[Resp]{}, fmt.Errorf("patch document: %w", err)
	}

	pt, err := h.resolvePlan(flowName, snapshot.ConfigVersion, &entry)
	if err != nil {
		h.logger.Error("plan compile failed", map[string]interface{}{"flow": flowName, "configVersion": snapshot.ConfigVersion, "error": err.Error()})
		return outcome.Outcome[Resp]{}, fmt.Errorf("plan compile: %w", err)
	}

	tier := qos.DefaultTier
	var qosDecision qos.Decision
	if h.qosProvider != nil {
		qosDecision = h.qosProvider.SelectTier(fc)
		if qosDecision.Tier != "" {
			tier = qosDecision.Tier
		}
	}

	evaluated := patch.Evaluate(doc, patch.EvalInput{
		FlowName:       flowName,
		Variants:       fc.Options().Variants,
		QosTier:        tier,
		SnapshotNowUTC: h.now().Unix(),
		SnapshotTSUTC:  snapshot.Meta.TimestampUTC,
	})

	if fc.explain != nil {
		fc.explain.ConfigVersion = snapshot.ConfigVersion
		fc.explain.Overlays = renderOverlays(evaluated.Overlays)
		fc.explain.Variants = fc.Options().Variants
		fc.explain.QosTier = tier
		fc.explain.QosReasonCode = qosDecision.ReasonCode
		signalKeys := make([]string, 0, len(qosDecision.Signals))
		for k := range qosDecision.Signals {
			signalKeys = append(signalKeys, k)
		}
		sort.Strings(signalKeys)
		for _, k := range signalKeys {
			fc.explain.QosSignals = append(fc.explain.QosSignals, QosSignal{Key: k, Value: qosDecision.Signals[k]})
		}
		fc.explain.EmergencyIgnoredReasonCode = evaluated.EmergencyIgnoredReasonCode
	}

	result := h.engine.Execute(entry.Blueprint, pt, req, fc, evaluated, tier)
	return convertOutcome[Resp](result), nil
}

// convertOutcome re-homes an Outcome[any] onto Outcome[Resp], type-asserting
// the carried value (if any) to Resp. Panics if a value-carrying outcome's
// value isn't assertable to Resp, which indicates a plan/catalog type-check
// bug the compiler step should have already caught.
func convertOutcome[Resp any](o outcome.Outcome[any]) outcome.Outcome[Resp] {
	switch o.Kind() {
	case outcome.Ok:
		return outcome.NewOk[Resp](o.Value().(Resp))
	case outcome.Fallback:
		return outcome.NewFallback[Resp](o.Value().(Resp), o.Code())
	case outcome.Error:
		return outcome.NewError[Resp](o.Code())
	case outcome.Timeout:
		return outcome.NewTimeout[Resp](o.Code())
	case outcome.Skipped:
		return outcome.NewSkipped[Resp](o.Code())
	case outcome.Canceled:
		return outcome.NewCanceled[Resp](o.Code())
	default:
		return outcome.Outcome[Resp]{}
	}
}
