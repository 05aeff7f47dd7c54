package engine

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
	"github.com/WAcry/ROrchestrator-sub004/patch"
)

func buildStageBlueprint(t *testing.T, moduleIDs ...string) *blueprint.Blueprint {
	t.Helper()
	b := blueprint.NewBuilder("test-flow")
	b.Stage("s1", nil, func(sb *blueprint.StageBuilder) {
		for _, id := range moduleIDs {
			sb.Step(id, "upper")
		}
	})
	blueprint.Join(b, "final", func(jc blueprint.JoinContext) (string, error) {
		return "done", nil
	})
	bp, err := blueprint.Build[string](b)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return bp
}

func enabledDecision(id string) patch.ModuleDecision {
	return patch.ModuleDecision{ID: id, Type: "upper", Enabled: true}
}

func runStageForTest(t *testing.T, bp *blueprint.Blueprint, stage *patch.EvaluatedStage) (*FlowContext, map[string][]StageModuleExplain) {
	t.Helper()
	e := newTestEngine(t)
	fc := NewFlowContext(context.Background(), nil, time.Now().Add(time.Minute), RequestOptions{})
	fc.EnableExplain(NewExecExplain("test-flow", ExplainFull, ExplainFull))

	evaluated := &patch.EvaluatedFlow{
		FlowName: "test-flow",
		Stages:   map[string]*patch.EvaluatedStage{"s1": stage},
	}
	e.runStage(fc, bp, "s1", evaluated, "ab")
	return fc, fc.Explain().StageModules
}

func TestRunStageExecutesAllSelectedModulesConcurrently(t *testing.T) {
	bp := buildStageBlueprint(t, "m1", "m2", "m3")
	stage := &patch.EvaluatedStage{
		StageName: "s1",
		Modules:   []patch.ModuleDecision{enabledDecision("m1"), enabledDecision("m2"), enabledDecision("m3")},
	}
	_, recs := runStageForTest(t, bp, stage)

	got := recs["s1"]
	if len(got) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(got))
	}
	for _, r := range got {
		if r.OutcomeKind != outcome.Ok.String() {
			t.Errorf("module %s outcome = %s, want Ok", r.ID, r.OutcomeKind)
		}
	}
}

func TestRunStageSkipsDisabledModule(t *testing.T) {
	bp := buildStageBlueprint(t, "m1", "m2")
	d2 := enabledDecision("m2")
	d2.Enabled = false
	stage := &patch.EvaluatedStage{
		StageName: "s1",
		Modules:   []patch.ModuleDecision{enabledDecision("m1"), d2},
	}
	_, recs := runStageForTest(t, bp, stage)

	got := recs["s1"]
	var skipCode string
	for _, r := range got {
		if r.Type == "upper" && r.OutcomeKind == outcome.Skipped.String() {
			skipCode = r.OutcomeCode
		}
	}
	if skipCode != "DISABLED" {
		t.Errorf("skip code = %q, want DISABLED", skipCode)
	}
}

func TestRunStageGateFalseSkipsModule(t *testing.T) {
	bp := buildStageBlueprint(t, "m1")
	d := enabledDecision("m1")
	gate := &patch.Gate{Type: patch.GateExperiment, Layer: "exp", In: []string{"on"}}
	d.Gate = gate
	stage := &patch.EvaluatedStage{StageName: "s1", Modules: []patch.ModuleDecision{d}}

	_, recs := runStageForTest(t, bp, stage)
	got := recs["s1"]
	if len(got) != 1 || got[0].OutcomeCode != "GATE_FALSE" {
		t.Fatalf("records = %+v, want single GATE_FALSE", got)
	}
}

func TestApplyFanoutTrimKeepsHighestPriorityInDeclarationOrder(t *testing.T) {
	decisions := []stageDecision{
		{module: patch.ModuleDecision{ID: "low", Priority: 1}, selected: true},
		{module: patch.ModuleDecision{ID: "high", Priority: 10}, selected: true},
		{module: patch.ModuleDecision{ID: "mid", Priority: 5}, selected: true},
	}
	e := newTestEngine(t)
	e.applyFanoutTrim(decisions, 2)

	var kept []string
	for _, d := range decisions {
		if d.selected {
			kept = append(kept, d.module.ID)
		}
	}
	sort.Strings(kept)
	want := []string{"high", "mid"}
	sort.Strings(want)
	if len(kept) != 2 || kept[0] != want[0] || kept[1] != want[1] {
		t.Errorf("kept = %v, want %v", kept, want)
	}
	for _, d := range decisions {
		if d.module.ID == "low" {
			if d.selected || d.skipCode != "FANOUT_TRIM" {
				t.Errorf("low decision = %+v, want selected=false skipCode=FANOUT_TRIM", d)
			}
		}
	}
}

func TestApplyFanoutTrimNoopWhenUnset(t *testing.T) {
	decisions := []stageDecision{
		{module: patch.ModuleDecision{ID: "a"}, selected: true},
		{module: patch.ModuleDecision{ID: "b"}, selected: true},
	}
	e := newTestEngine(t)
	e.applyFanoutTrim(decisions, 0)
	for _, d := range decisions {
		if !d.selected {
			t.Errorf("decision %+v was trimmed, want untouched", d)
		}
	}
}
