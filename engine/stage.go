package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
	"github.com/WAcry/ROrchestrator-sub004/patch"
	"github.com/WAcry/ROrchestrator-sub004/plan"
)

// stageDecision is one module's eligibility verdict before fan-out.
type stageDecision struct {
	module     patch.ModuleDecision
	selected   bool
	skipCode   string
	gate       patch.GateDecision
	isOverride bool
}

// runStage fans a stage's eligible modules out concurrently. It never
// returns an outcome of its own: a stage's result lives in its per-module
// ExecExplain records and node-outcome-by-name lookups, not in a single
// value, per the "stage outcome is not a single value" rule.
func (e *ExecutionEngine) runStage(fc *FlowContext, bp *blueprint.Blueprint, stageName string, evaluated *patch.EvaluatedFlow, input any) {
	declaredTypes := make(map[string]bool)
	for _, n := range bp.StageNodes(stageName) {
		declaredTypes[n.ModuleType] = true
	}
	allowDynamic := false
	if bp.Stages != nil {
		if contract, ok := bp.Stages[stageName]; ok && contract != nil {
			allowDynamic = contract.AllowDynamicModules
		}
	}

	var modules, shadowModules []patch.ModuleDecision
	var fanoutMax int
	if es, ok := evaluated.Stages[stageName]; ok && es != nil {
		modules = es.Modules
		shadowModules = es.ShadowModules
		if es.FanoutMax != nil {
			fanoutMax = *es.FanoutMax
		}
	}

	decisions := make([]stageDecision, 0, len(modules))
	for _, m := range modules {
		if !allowDynamic && !declaredTypes[m.Type] {
			continue
		}
		dec := e.classify(fc, m)
		dec.isOverride = !declaredTypes[m.Type]
		decisions = append(decisions, dec)
	}

	e.applyFanoutTrim(decisions, fanoutMax)

	var wg sync.WaitGroup
	for i := range decisions {
		dec := decisions[i]
		if !dec.selected {
			e.recordStageModule(fc, stageName, dec.module, outcome.NewSkipped[any](dec.skipCode), 0, false, dec.gate, false, dec.isOverride)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runStageModule(fc, stageName, dec.module, input, false, dec.gate, dec.isOverride)
		}()
	}

	for _, sm := range shadowModules {
		if !allowDynamic && !declaredTypes[sm.Type] {
			continue
		}
		sm := sm
		go e.runStageModule(fc, stageName, sm, input, true, patch.GateDecision{}, !declaredTypes[sm.Type])
	}

	wg.Wait()
}

// classify applies the eligibility filter (step 1 of §4.8's stage node):
// disabled modules and gate denials are skipped before priority/fanout ever
// sees them.
func (e *ExecutionEngine) classify(fc *FlowContext, m patch.ModuleDecision) stageDecision {
	if m.DisabledByEmergency || !m.Enabled {
		return stageDecision{module: m, selected: false, skipCode: "DISABLED"}
	}
	if m.Gate != nil {
		gd := patch.EvaluateGate(*m.Gate, fc.Options().Variants, e.selectors, fc)
		if !gd.Allowed {
			return stageDecision{module: m, selected: false, skipCode: "GATE_FALSE", gate: gd}
		}
		return stageDecision{module: m, selected: true, gate: gd}
	}
	return stageDecision{module: m, selected: true}
}

// applyFanoutTrim sorts selected decisions by (priority desc, declaration
// order asc) and demotes everything past fanoutMax to FANOUT_TRIM, in
// place. fanoutMax <= 0 means no trim.
func (e *ExecutionEngine) applyFanoutTrim(decisions []stageDecision, fanoutMax int) {
	if fanoutMax <= 0 {
		return
	}
	type ranked struct {
		origIdx int
	}
	var selectedIdx []ranked
	for i, d := range decisions {
		if d.selected {
			selectedIdx = append(selectedIdx, ranked{i})
		}
	}
	sort.SliceStable(selectedIdx, func(i, j int) bool {
		return decisions[selectedIdx[i].origIdx].module.Priority > decisions[selectedIdx[j].origIdx].module.Priority
	})
	if len(selectedIdx) <= fanoutMax {
		return
	}
	for _, r := range selectedIdx[fanoutMax:] {
		decisions[r.origIdx].selected = false
		decisions[r.origIdx].skipCode = "FANOUT_TRIM"
	}
}

// runStageModule acquires a bulkhead permit (if the module's limitKey has a
// configured capacity), honors per-request memoization, executes the
// module, and records the result. Used for both main-path and shadow
// modules; shadow modules are fired by the caller without being waited on.
func (e *ExecutionEngine) runStageModule(fc *FlowContext, stageName string, d patch.ModuleDecision, input any, isShadow bool, gate patch.GateDecision, isOverride bool) {
	limitKey := d.LimitKey
	if limitKey == "" {
		limitKey = d.Type
	}

	if capacity, ok := e.limits[limitKey]; ok && capacity > 0 {
		release, err := e.bulkhead.Acquire(fc.Context(), limitKey, capacity)
		if err != nil {
			e.recordStageModule(fc, stageName, d, outcome.NewSkipped[any]("BULKHEAD_TIMEOUT"), 0, isShadow, gate, false, isOverride)
			return
		}
		defer release()
	}

	var o outcome.Outcome[any]
	var dur time.Duration
	memoHit := false

	if d.MemoKey != "" {
		key := stageName + "|" + d.MemoKey
		start := time.Now()
		result, hit := fc.memo.getOrRun(key, func() outcome.Outcome[any] {
			out, _ := e.executeStageModule(fc, d, input)
			return out
		})
		o, dur, memoHit = result, time.Since(start), hit
	} else {
		o, dur = e.executeStageModule(fc, d, input)
	}

	e.recordStageModule(fc, stageName, d, o, dur, isShadow, gate, memoHit, isOverride)
}

// executeStageModule instantiates and runs d's module, panic-safe like
// runStep.
func (e *ExecutionEngine) executeStageModule(fc *FlowContext, d patch.ModuleDecision, input any) (o outcome.Outcome[any], dur time.Duration) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome.NewError[any]("UNHANDLED_EXCEPTION")
		}
		dur = time.Since(start)
	}()

	module, err := e.catalog.Create(d.Type, fc.Services())
	if err != nil {
		return outcome.NewError[any]("UNHANDLED_EXCEPTION"), time.Since(start)
	}
	mctx := &plan.ModuleContext{
		Ctx:      fc,
		Args:     input,
		ModuleID: d.ID,
		TypeName: d.Type,
		Services: fc.Services(),
	}
	result := module.ExecuteAsync(mctx)
	return e.mapModuleOutcome(fc, result), time.Since(start)
}

// recordStageModule writes the ExecExplain record and emits metrics for one
// stage module, selected or skipped, shadow or not.
func (e *ExecutionEngine) recordStageModule(fc *FlowContext, stageName string, d patch.ModuleDecision, o outcome.Outcome[any], dur time.Duration, isShadow bool, gate patch.GateDecision, memoHit bool, isOverride bool) {
	limitKey := d.LimitKey
	if limitKey == "" {
		limitKey = d.Type
	}

	flowName := ""
	if fc.explain != nil {
		flowName = fc.explain.FlowName
		fc.explain.recordStageModule(stageName, StageModuleExplain{
			ID:               d.ID,
			Type:             d.Type,
			LimitKey:         limitKey,
			Priority:         d.Priority,
			Duration:         dur,
			OutcomeKind:      o.Kind().String(),
			OutcomeCode:      o.Code(),
			GateDecisionCode: string(gate.Code),
			GateReasonCode:   string(gate.ReasonCode),
			GateSelectorName: gate.SelectorName,
			IsShadow:         isShadow,
			ShadowSampleBps:  d.ShadowSampleBps,
			IsOverride:       isOverride,
			MemoHit:          memoHit,
		})
	}
	if e.metrics == nil {
		return
	}
	e.metrics.StepOutcome(flowName, d.Type, o.Kind().String())
	e.metrics.StepLatency(flowName, d.Type, o.Kind().String(), float64(dur.Milliseconds()))
	if o.Kind() == outcome.Skipped {
		e.metrics.StepSkipped(flowName, d.Type, o.Code())
	}
}
