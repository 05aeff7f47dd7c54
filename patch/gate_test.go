package patch

import "testing"

func TestEvaluateGateExperimentMatch(t *testing.T) {
	g := Gate{Type: GateExperiment, Layer: "l1", In: []string{"A", "B"}}
	d := EvaluateGate(g, map[string]string{"l1": "B"}, nil, nil)
	if !d.Allowed || d.ReasonCode != ReasonVariantMatch {
		t.Errorf("d = %+v, want allowed VARIANT_MATCH", d)
	}
}

func TestEvaluateGateExperimentMismatch(t *testing.T) {
	g := Gate{Type: GateExperiment, Layer: "l1", In: []string{"A"}}
	d := EvaluateGate(g, map[string]string{"l1": "B"}, nil, nil)
	if d.Allowed || d.ReasonCode != ReasonVariantMismatch {
		t.Errorf("d = %+v, want denied VARIANT_MISMATCH", d)
	}
}

func TestEvaluateGateExperimentAbsentVariant(t *testing.T) {
	g := Gate{Type: GateExperiment, Layer: "l1", In: []string{"A"}}
	d := EvaluateGate(g, map[string]string{}, nil, nil)
	if d.Allowed || d.ReasonCode != ReasonVariantMismatch {
		t.Errorf("d = %+v, want denied VARIANT_MISMATCH", d)
	}
}

func TestEvaluateGateSelectorMissing(t *testing.T) {
	g := Gate{Type: GateSelector, Selector: "nope"}
	d := EvaluateGate(g, nil, SelectorRegistry{}, nil)
	if d.Allowed || d.ReasonCode != ReasonSelectorMissing || d.SelectorName != "nope" {
		t.Errorf("d = %+v, want denied SELECTOR_MISSING", d)
	}
}

func TestEvaluateGateSelectorTrueFalse(t *testing.T) {
	registry := SelectorRegistry{"always_true": func(any) bool { return true }, "always_false": func(any) bool { return false }}
	d := EvaluateGate(Gate{Type: GateSelector, Selector: "always_true"}, nil, registry, nil)
	if !d.Allowed || d.ReasonCode != ReasonSelectorTrue {
		t.Errorf("d = %+v, want allowed SELECTOR_TRUE", d)
	}
	d2 := EvaluateGate(Gate{Type: GateSelector, Selector: "always_false"}, nil, registry, nil)
	if d2.Allowed || d2.ReasonCode != ReasonSelectorFalse {
		t.Errorf("d2 = %+v, want denied SELECTOR_FALSE", d2)
	}
}

func TestEvaluateGateAllShortCircuitsOnFirstDeny(t *testing.T) {
	registry := SelectorRegistry{
		"a": func(any) bool { return true },
		"b": func(any) bool { return false },
	}
	g := Gate{Type: GateAll, Children: []Gate{
		{Type: GateSelector, Selector: "a"},
		{Type: GateSelector, Selector: "b"},
	}}
	d := EvaluateGate(g, nil, registry, nil)
	if d.Allowed {
		t.Errorf("All with one false child should deny, got %+v", d)
	}
}

func TestEvaluateGateAnyShortCircuitsOnFirstAllow(t *testing.T) {
	registry := SelectorRegistry{
		"a": func(any) bool { return false },
		"b": func(any) bool { return true },
	}
	g := Gate{Type: GateAny, Children: []Gate{
		{Type: GateSelector, Selector: "a"},
		{Type: GateSelector, Selector: "b"},
	}}
	d := EvaluateGate(g, nil, registry, nil)
	if !d.Allowed {
		t.Errorf("Any with one true child should allow, got %+v", d)
	}
}

func TestEvaluateGateNotInverts(t *testing.T) {
	registry := SelectorRegistry{"a": func(any) bool { return true }}
	g := Gate{Type: GateNot, Child: &Gate{Type: GateSelector, Selector: "a"}}
	d := EvaluateGate(g, nil, registry, nil)
	if d.Allowed {
		t.Errorf("Not(true) should deny, got %+v", d)
	}
}
