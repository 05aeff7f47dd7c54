package patch

import "testing"

func baseDocFixture() *Document {
	return &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {Modules: []ModuleSpec{
						{ID: "m1", Use: "greeter", Priority: mustIntPtr(1)},
						{ID: "m2", Use: "greeter"},
					}},
				},
			},
		},
	}
}

func TestDiffSelfIsZero(t *testing.T) {
	doc := baseDocFixture()
	entries := Diff(doc, doc)
	if len(entries) != 0 {
		t.Errorf("Diff(doc, doc) = %+v, want empty", entries)
	}
}

func TestDiffReorderedModulesIsZero(t *testing.T) {
	before := baseDocFixture()
	after := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {Modules: []ModuleSpec{
						{ID: "m2", Use: "greeter"},
						{ID: "m1", Use: "greeter", Priority: mustIntPtr(1)},
					}},
				},
			},
		},
	}
	entries := Diff(before, after)
	if len(entries) != 0 {
		t.Errorf("Diff on reorder = %+v, want empty (matched by id, not position)", entries)
	}
}

func TestDiffModuleMovedAcrossStagesYieldsRemovedAndAdded(t *testing.T) {
	before := baseDocFixture()
	after := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {Modules: []ModuleSpec{{ID: "m2", Use: "greeter"}}},
					"s2": {Modules: []ModuleSpec{{ID: "m1", Use: "greeter", Priority: mustIntPtr(1)}}},
				},
			},
		},
	}
	entries := Diff(before, after)
	var hasRemoved, hasAdded bool
	for _, e := range entries {
		if e.ModuleID == "m1" && e.Stage == "s1" && e.Kind == DiffRemoved {
			hasRemoved = true
		}
		if e.ModuleID == "m1" && e.Stage == "s2" && e.Kind == DiffAdded {
			hasAdded = true
		}
		if e.Kind == DiffUseChanged && e.ModuleID == "m1" {
			t.Error("a cross-stage move should not be reported as use_changed")
		}
	}
	if !hasRemoved || !hasAdded {
		t.Errorf("entries = %+v, want removed(s1,m1) and added(s2,m1)", entries)
	}
}

func TestDiffFieldChangedOnPriority(t *testing.T) {
	before := baseDocFixture()
	after := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {Modules: []ModuleSpec{
						{ID: "m1", Use: "greeter", Priority: mustIntPtr(9)},
						{ID: "m2", Use: "greeter"},
					}},
				},
			},
		},
	}
	entries := Diff(before, after)
	found := false
	for _, e := range entries {
		if e.ModuleID == "m1" && e.Kind == DiffFieldChanged && e.Path == "priority" {
			found = true
			if e.Before != 1 || e.After != 9 {
				t.Errorf("entry = %+v, want before=1 after=9", e)
			}
		}
	}
	if !found {
		t.Errorf("entries = %+v, want field_changed on priority for m1", entries)
	}
}

func TestDiffUseChanged(t *testing.T) {
	before := baseDocFixture()
	after := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{
					"s1": {Modules: []ModuleSpec{
						{ID: "m1", Use: "other_module", Priority: mustIntPtr(1)},
						{ID: "m2", Use: "greeter"},
					}},
				},
			},
		},
	}
	entries := Diff(before, after)
	found := false
	for _, e := range entries {
		if e.ModuleID == "m1" && e.Kind == DiffUseChanged {
			found = true
		}
	}
	if !found {
		t.Errorf("entries = %+v, want use_changed for m1", entries)
	}
}

func TestDiffEntriesAreSortedDeterministically(t *testing.T) {
	before := &Document{SchemaVersion: "v1", Flows: map[string]FlowPatch{}}
	after := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"b_flow": {Stages: map[string]StagePatch{"s1": {Modules: []ModuleSpec{{ID: "x", Use: "greeter"}}}}},
			"a_flow": {Stages: map[string]StagePatch{"s1": {Modules: []ModuleSpec{{ID: "x", Use: "greeter"}}}}},
		},
	}
	entries := Diff(before, after)
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	if entries[0].Flow != "a_flow" || entries[1].Flow != "b_flow" {
		t.Errorf("entries not sorted by flow: %+v", entries)
	}
}

func TestDiffExperimentOverlayScopedSeparatelyFromBase(t *testing.T) {
	before := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{"s1": {Modules: []ModuleSpec{{ID: "m1", Use: "greeter"}}}},
			},
		},
	}
	after := &Document{
		SchemaVersion: "v1",
		Flows: map[string]FlowPatch{
			"greet": {
				Stages: map[string]StagePatch{"s1": {Modules: []ModuleSpec{{ID: "m1", Use: "greeter"}}}},
				Experiments: []Experiment{
					{Layer: "l1", Variant: "B", Patch: FlowPatchSubset{
						Stages: map[string]StagePatch{"s1": {Modules: []ModuleSpec{{ID: "m1", Use: "greeter_v2"}}}},
					}},
				},
			},
		},
	}
	entries := Diff(before, after)
	var found bool
	for _, e := range entries {
		if e.Kind == DiffUseChanged && e.ExperimentLayer == "l1" && e.ExperimentVariant == "B" {
			found = true
		}
		if e.ExperimentLayer == "" && e.Kind == DiffUseChanged {
			t.Error("base m1 unchanged, should not report use_changed in base scope")
		}
	}
	if !found {
		t.Errorf("entries = %+v, want use_changed scoped to experiment l1=B", entries)
	}
}
