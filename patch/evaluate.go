package patch

import (
	"math"
	"sort"
	"strings"
)

// OverlayLayer names one precedence level of patch application.
type OverlayLayer string

const (
	LayerBase       OverlayLayer = "base"
	LayerExperiment OverlayLayer = "experiment"
	LayerQos        OverlayLayer = "qos"
	LayerEmergency  OverlayLayer = "emergency"
)

// AppliedOverlay records one overlay that contributed to an EvaluatedFlow, in
// application order.
type AppliedOverlay struct {
	Layer             OverlayLayer
	ExperimentLayer   string
	ExperimentVariant string
}

// ParamLeaf is one leaf of the effective params tree, attributed to the
// highest-precedence layer that set it.
type ParamLeaf struct {
	Path  string
	Value any
	Layer OverlayLayer
}

// ModuleDecision is one stage module's merged, unevaluated configuration.
// Gate evaluation and eligibility/priority/fanout decisions belong to the
// execution engine; the evaluator only produces this merged shape and the
// shadow/non-shadow split.
type ModuleDecision struct {
	ID                  string
	Type                string
	Enabled             bool
	DisabledByEmergency bool
	Priority            int
	LimitKey            string
	Gate                *Gate
	ShadowSampleBps     int
	MemoKey             string
}

// EvaluatedStage is one stage's merged module list, split into the modules
// that affect the flow's outcome and the shadow modules that don't.
type EvaluatedStage struct {
	StageName     string
	FanoutMax     *int
	Modules       []ModuleDecision
	ShadowModules []ModuleDecision
}

// EvaluatedFlow is the patch evaluator's output for one flow.
type EvaluatedFlow struct {
	FlowName                   string
	Overlays                   []AppliedOverlay
	ParamLeaves                []ParamLeaf
	Stages                     map[string]*EvaluatedStage
	EmergencyIgnoredReasonCode string
}

// Params reconstructs the nested params tree from the flattened, attributed
// leaves (dotted paths split on ".").
func (f *EvaluatedFlow) Params() map[string]any {
	root := make(map[string]any)
	for _, leaf := range f.ParamLeaves {
		segments := strings.Split(leaf.Path, ".")
		cur := root
		for i, seg := range segments {
			if i == len(segments)-1 {
				cur[seg] = leaf.Value
				continue
			}
			next, ok := cur[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[seg] = next
			}
			cur = next
		}
	}
	return root
}

// EvalInput bundles the per-request context Evaluate needs.
type EvalInput struct {
	FlowName      string
	Variants      map[string]string
	QosTier       string
	SnapshotNowUTC int64 // unix seconds; "now" for emergency TTL comparison
	SnapshotTSUTC  int64 // unix seconds; snapshot timestamp emergency TTL is relative to
}

// Evaluate applies doc.Flows[in.FlowName]'s overlays, in order base ->
// experiment -> qos -> emergency, producing the merged EvaluatedFlow. A
// missing flow entry yields an empty evaluation with no overlays recorded.
func Evaluate(doc *Document, in EvalInput) *EvaluatedFlow {
	result := &EvaluatedFlow{
		FlowName: in.FlowName,
		Stages:   make(map[string]*EvaluatedStage),
	}

	flowPatch, ok := doc.Flows[in.FlowName]
	if !ok {
		return result
	}

	acc := newStageAccumulator()
	result.Overlays = append(result.Overlays, AppliedOverlay{Layer: LayerBase})
	mergeParamsInto(&result.ParamLeaves, "", flowPatch.Params, LayerBase)
	acc.applyFlowPatchStages(flowPatch.Stages, LayerBase, false)

	for _, exp := range flowPatch.Experiments {
		variant, present := in.Variants[exp.Layer]
		if !present || variant != exp.Variant {
			continue
		}
		result.Overlays = append(result.Overlays, AppliedOverlay{
			Layer:             LayerExperiment,
			ExperimentLayer:   exp.Layer,
			ExperimentVariant: exp.Variant,
		})
		mergeParamsInto(&result.ParamLeaves, "", exp.Patch.Params, LayerExperiment)
		acc.applyFlowPatchStages(exp.Patch.Stages, LayerExperiment, false)
	}

	if flowPatch.Qos != nil {
		if tier, ok := flowPatch.Qos.Tiers[in.QosTier]; ok {
			result.Overlays = append(result.Overlays, AppliedOverlay{Layer: LayerQos})
			mergeParamsInto(&result.ParamLeaves, "", tier.Patch.Params, LayerQos)
			acc.applyFlowPatchStages(tier.Patch.Stages, LayerQos, false)
		}
	}

	if flowPatch.Emergency != nil {
		deadline := in.SnapshotTSUTC + int64(flowPatch.Emergency.TTLMinutes)*60
		if in.SnapshotNowUTC <= deadline {
			result.Overlays = append(result.Overlays, AppliedOverlay{Layer: LayerEmergency})
			mergeParamsInto(&result.ParamLeaves, "", flowPatch.Emergency.Patch.Params, LayerEmergency)
			acc.applyFlowPatchStages(flowPatch.Emergency.Patch.Stages, LayerEmergency, true)
		} else {
			result.EmergencyIgnoredReasonCode = "EMERGENCY_TTL_EXPIRED"
		}
	}

	sort.Slice(result.ParamLeaves, func(i, j int) bool { return result.ParamLeaves[i].Path < result.ParamLeaves[j].Path })
	result.Stages = acc.finalize()
	return result
}

// mergeParamsInto deep-merges overlay onto dst, a flat list of
// path-attributed leaves. A leaf set by overlay replaces any earlier leaf at
// the same path, and a scalar or array also replaces any earlier leaves
// nested beneath its path, so each path keeps only the leaf of the
// highest-precedence layer that set it. Scalars and arrays replace; objects
// recurse.
func mergeParamsInto(dst *[]ParamLeaf, prefix string, overlay map[string]any, layer OverlayLayer) {
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := overlay[k]
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		nested, isObject := v.(map[string]any)
		kept := (*dst)[:0]
		for _, leaf := range *dst {
			if leaf.Path == path || (!isObject && strings.HasPrefix(leaf.Path, path+".")) {
				continue
			}
			kept = append(kept, leaf)
		}
		*dst = kept
		if isObject {
			mergeParamsInto(dst, path, nested, layer)
			continue
		}
		*dst = append(*dst, ParamLeaf{Path: path, Value: v, Layer: layer})
	}
}

// stageAccumulator merges StagePatch content across overlay layers, matching
// modules by id (field-wise merge) and appending unmatched ids in
// declaration order, per spec.md §4.4 step 5.
type stageAccumulator struct {
	order map[string][]string // stageName -> module id declaration order
	byID  map[string]map[string]*moduleBuild
	fanout map[string]*int
	stageOrder []string
}

type moduleBuild struct {
	id                  string
	use                 string
	with                map[string]any
	enabled             *bool
	priority            *int
	limitKey            string
	gate                *Gate
	shadow              *ShadowSpec
	memoKey             string
	disabledByEmergency bool
}

func newStageAccumulator() *stageAccumulator {
	return &stageAccumulator{
		order:  make(map[string][]string),
		byID:   make(map[string]map[string]*moduleBuild),
		fanout: make(map[string]*int),
	}
}

func (a *stageAccumulator) applyFlowPatchStages(stages map[string]StagePatch, layer OverlayLayer, isEmergency bool) {
	names := make([]string, 0, len(stages))
	for name := range stages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, stageName := range names {
		a.applyStagePatch(stageName, stages[stageName], isEmergency)
	}
}

func (a *stageAccumulator) applyStagePatch(stageName string, sp StagePatch, isEmergency bool) {
	if _, ok := a.byID[stageName]; !ok {
		a.byID[stageName] = make(map[string]*moduleBuild)
		a.stageOrder = append(a.stageOrder, stageName)
	}
	if sp.FanoutMax != nil {
		v := *sp.FanoutMax
		a.fanout[stageName] = &v
	}
	for _, spec := range sp.Modules {
		build, exists := a.byID[stageName][spec.ID]
		if !exists {
			build = &moduleBuild{id: spec.ID}
			a.byID[stageName][spec.ID] = build
			a.order[stageName] = append(a.order[stageName], spec.ID)
		}
		if spec.Use != "" {
			build.use = spec.Use
		}
		if spec.With != nil {
			build.with = spec.With
		}
		if spec.Enabled != nil {
			build.enabled = spec.Enabled
			if isEmergency && !*spec.Enabled {
				build.disabledByEmergency = true
			}
		}
		if spec.Priority != nil {
			build.priority = spec.Priority
		}
		if spec.LimitKey != "" {
			build.limitKey = spec.LimitKey
		}
		if spec.Gate != nil {
			build.gate = spec.Gate
		}
		if spec.Shadow != nil {
			build.shadow = spec.Shadow
		}
		if spec.MemoKey != "" {
			build.memoKey = spec.MemoKey
		}
	}
}

func (a *stageAccumulator) finalize() map[string]*EvaluatedStage {
	out := make(map[string]*EvaluatedStage, len(a.stageOrder))
	for _, stageName := range a.stageOrder {
		stage := &EvaluatedStage{StageName: stageName, FanoutMax: a.fanout[stageName]}
		for _, id := range a.order[stageName] {
			build := a.byID[stageName][id]
			limitKey := build.limitKey
			if limitKey == "" {
				limitKey = build.use
			}
			enabled := true
			if build.enabled != nil {
				enabled = *build.enabled
			}
			priority := 0
			if build.priority != nil {
				priority = *build.priority
			}
			decision := ModuleDecision{
				ID:                  build.id,
				Type:                build.use,
				Enabled:             enabled,
				DisabledByEmergency: build.disabledByEmergency,
				Priority:            priority,
				LimitKey:            limitKey,
				Gate:                build.gate,
				MemoKey:             build.memoKey,
			}
			if build.shadow != nil && build.shadow.Sample > 0 {
				decision.ShadowSampleBps = sampleToBps(build.shadow.Sample)
				stage.ShadowModules = append(stage.ShadowModules, decision)
			} else {
				stage.Modules = append(stage.Modules, decision)
			}
		}
		out[stageName] = stage
	}
	return out
}

// sampleToBps converts a 0..1 shadow sample fraction to basis points
// (0..10000), rounding and clamping per spec.md §4.4 step 6.
func sampleToBps(sample float64) int {
	bps := int(math.Round(sample * 10000))
	if bps < 0 {
		return 0
	}
	if bps > 10000 {
		return 10000
	}
	return bps
}
