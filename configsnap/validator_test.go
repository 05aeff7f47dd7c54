package configsnap

import (
	"testing"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
)

func testBlueprints() map[string]*blueprint.Blueprint {
	return map[string]*blueprint.Blueprint{
		"greet": {
			FlowName: "greet",
			Nodes: []blueprint.Node{
				{Kind: blueprint.StepKind, Name: "fetch", StageName: "s1"},
				{Kind: blueprint.JoinKind, Name: "respond"},
			},
			Stages: map[string]*blueprint.StageContract{"s1": {}},
		},
	}
}

func TestBlueprintValidatorAcceptsCleanPatch(t *testing.T) {
	v := NewBlueprintValidator(testBlueprints(), func(string) bool { return true })
	snap := Snapshot{ConfigVersion: 1, PatchJSON: `{"schemaVersion":"v1","flows":{"greet":{"stages":{"s1":{"modules":[{"id":"m1","use":"greeter"}]}}}}}`}
	if err := v.Validate(snap); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestBlueprintValidatorRejectsUnknownStage(t *testing.T) {
	v := NewBlueprintValidator(testBlueprints(), func(string) bool { return true })
	snap := Snapshot{ConfigVersion: 1, PatchJSON: `{"schemaVersion":"v1","flows":{"greet":{"stages":{"bogus":{"modules":[{"id":"m1","use":"greeter"}]}}}}}`}
	err := v.Validate(snap)
	if err == nil {
		t.Fatal("expected error for stage not declared in blueprint")
	}
	var verr *ValidationError
	if !errorsAsValidation(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.FlowName != "greet" {
		t.Errorf("FlowName = %q, want greet", verr.FlowName)
	}
}

func TestBlueprintValidatorRejectsMalformedJSON(t *testing.T) {
	v := NewBlueprintValidator(testBlueprints(), func(string) bool { return true })
	snap := Snapshot{ConfigVersion: 1, PatchJSON: `{not json`}
	if err := v.Validate(snap); err == nil {
		t.Fatal("expected parse error for malformed JSON")
	}
}

func errorsAsValidation(err error, target **ValidationError) bool {
	if ve, ok := err.(*ValidationError); ok {
		*target = ve
		return true
	}
	return false
}
