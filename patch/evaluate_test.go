package patch

import "testing"

func mustIntPtr(n int) *int    { return &n }
func mustBoolPtr(b bool) *bool { return &b }

func TestEvaluateEmptyWhenFlowMissing(t *testing.T) {
	doc := &Document{SchemaVersion: "v1", Flows: map[string]FlowPatch{}}
	ef := Evaluate(doc, EvalInput{FlowName: "missing"})
	if len(ef.Overlays) != 0 {
		t.Errorf("Overlays = %v, want empty for unregistered flow", ef.Overlays)
	}
}

func TestEvaluateAppliesOverlaysInOrder(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Params: map[string]any{"greeting": "hi"},
				Experiments: []Experiment{
					{Layer: "l1", Variant: "B", Patch: FlowPatchSubset{Params: map[string]any{"greeting": "hey"}}},
				},
				Qos: &QosPatch{Tiers: map[string]QosTierPatch{
					"conserve": {Patch: FlowPatchSubset{Params: map[string]any{"greeting": "sup"}}},
				}},
			},
		},
	}
	ef := Evaluate(doc, EvalInput{
		FlowName: "greet",
		Variants: map[string]string{"l1": "B"},
		QosTier:  "conserve",
	})
	if len(ef.Overlays) != 3 {
		t.Fatalf("Overlays = %v, want 3 layers applied", ef.Overlays)
	}
	if ef.Overlays[0].Layer != LayerBase || ef.Overlays[1].Layer != LayerExperiment || ef.Overlays[2].Layer != LayerQos {
		t.Errorf("Overlays order = %v", ef.Overlays)
	}
	params := ef.Params()
	if params["greeting"] != "sup" {
		t.Errorf("greeting = %v, want qos overlay to win (sup)", params["greeting"])
	}
}

func TestEvaluateEmergencyTTLExpired(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Emergency: &EmergencyPatch{
					Reason: "overload", Operator: "oncall", TTLMinutes: 30,
					Patch: FlowPatchSubset{Params: map[string]any{"greeting": "emergency"}},
				},
			},
		},
	}
	ef := Evaluate(doc, EvalInput{
		FlowName:       "greet",
		SnapshotTSUTC:  946684800, // 2000-01-01T00:00:00Z
		SnapshotNowUTC: 1893456000, // far future
	})
	if ef.EmergencyIgnoredReasonCode != "EMERGENCY_TTL_EXPIRED" {
		t.Errorf("EmergencyIgnoredReasonCode = %q, want EMERGENCY_TTL_EXPIRED", ef.EmergencyIgnoredReasonCode)
	}
	for _, o := range ef.Overlays {
		if o.Layer == LayerEmergency {
			t.Error("expired emergency overlay should not be recorded as applied")
		}
	}
}

func TestEvaluateEmergencyTTLStillValid(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Emergency: &EmergencyPatch{
					Reason: "overload", Operator: "oncall", TTLMinutes: 30,
					Patch: FlowPatchSubset{Params: map[string]any{"greeting": "emergency"}},
				},
			},
		},
	}
	ef := Evaluate(doc, EvalInput{
		FlowName:       "greet",
		SnapshotTSUTC:  1000,
		SnapshotNowUTC: 1000 + 10*60,
	})
	if ef.EmergencyIgnoredReasonCode != "" {
		t.Errorf("EmergencyIgnoredReasonCode = %q, want empty (TTL not expired)", ef.EmergencyIgnoredReasonCode)
	}
	if ef.Params()["greeting"] != "emergency" {
		t.Errorf("greeting = %v, want emergency overlay applied", ef.Params()["greeting"])
	}
}

func TestEvaluateStageModuleMergeByID(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {
						FanoutMax: mustIntPtr(1),
						Modules: []ModuleSpec{
							{ID: "m1", Use: "greeter", Priority: mustIntPtr(0)},
							{ID: "m2", Use: "greeter", Priority: mustIntPtr(10)},
						},
					},
				},
				Emergency: &EmergencyPatch{
					TTLMinutes: 60,
					Patch: FlowPatchSubset{Stages: map[string]StagePatch{
						"s1": {Modules: []ModuleSpec{{ID: "m1", Enabled: mustBoolPtr(false)}}},
					}},
				},
			},
		},
	}
	ef := Evaluate(doc, EvalInput{FlowName: "greet", SnapshotNowUTC: 0, SnapshotTSUTC: 0})
	stage := ef.Stages["s1"]
	if stage == nil {
		t.Fatal("Stages[s1] missing")
	}
	if stage.FanoutMax == nil || *stage.FanoutMax != 1 {
		t.Errorf("FanoutMax = %v, want 1", stage.FanoutMax)
	}
	var m1, m2 *ModuleDecision
	for i := range stage.Modules {
		if stage.Modules[i].ID == "m1" {
			m1 = &stage.Modules[i]
		}
		if stage.Modules[i].ID == "m2" {
			m2 = &stage.Modules[i]
		}
	}
	if m1 == nil || m2 == nil {
		t.Fatalf("expected both m1 and m2 in stage.Modules, got %+v", stage.Modules)
	}
	if m1.Enabled || !m1.DisabledByEmergency {
		t.Errorf("m1 = %+v, want disabled by emergency", m1)
	}
	if !m2.Enabled {
		t.Errorf("m2 = %+v, want enabled", m2)
	}
	if m2.Priority != 10 {
		t.Errorf("m2.Priority = %d, want 10", m2.Priority)
	}
}

func TestEvaluateShadowSplitAndBpsRounding(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {Modules: []ModuleSpec{
						{ID: "shadow_full", Use: "greeter", Shadow: &ShadowSpec{Sample: 1.0}},
						{ID: "shadow_none", Use: "greeter", Shadow: &ShadowSpec{Sample: 0}},
						{ID: "normal", Use: "greeter"},
					}},
				},
			},
		},
	}
	ef := Evaluate(doc, EvalInput{FlowName: "greet"})
	stage := ef.Stages["s1"]
	if len(stage.ShadowModules) != 1 || stage.ShadowModules[0].ID != "shadow_full" {
		t.Fatalf("ShadowModules = %+v, want only shadow_full", stage.ShadowModules)
	}
	if stage.ShadowModules[0].ShadowSampleBps != 10000 {
		t.Errorf("ShadowSampleBps = %d, want 10000", stage.ShadowModules[0].ShadowSampleBps)
	}
	names := map[string]bool{}
	for _, m := range stage.Modules {
		names[m.ID] = true
	}
	if !names["shadow_none"] || !names["normal"] {
		t.Errorf("Modules = %+v, want shadow_none and normal", stage.Modules)
	}
}

func TestEvaluateNoOverlaysYieldsBaseUnchanged(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {Modules: []ModuleSpec{{ID: "m1", Use: "greeter", Priority: mustIntPtr(3)}}},
				},
			},
		},
	}
	ef := Evaluate(doc, EvalInput{FlowName: "greet"})
	stage := ef.Stages["s1"]
	if len(stage.Modules) != 1 || stage.Modules[0].ID != "m1" || stage.Modules[0].Priority != 3 {
		t.Errorf("stage.Modules = %+v, want base module unchanged", stage.Modules)
	}
	if len(ef.Overlays) != 1 || ef.Overlays[0].Layer != LayerBase {
		t.Errorf("Overlays = %v, want only base applied", ef.Overlays)
	}
}
