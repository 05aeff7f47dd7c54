package blueprint

import (
	"errors"
	"testing"
)

func TestBuildSimpleFlow(t *testing.T) {
	b := NewBuilder("greet")
	b.Step("fetch_user", "user_fetcher")
	Join(b, "respond", func(jc JoinContext) (string, error) {
		return "hi", nil
	})

	bp, err := Build[string](b)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if bp.FlowName != "greet" {
		t.Errorf("FlowName = %q, want greet", bp.FlowName)
	}
	if len(bp.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(bp.Nodes))
	}
	if bp.Nodes[1].Kind != JoinKind {
		t.Errorf("terminal node kind = %v, want JoinKind", bp.Nodes[1].Kind)
	}
}

func TestBuildRejectsEmptyBlueprint(t *testing.T) {
	b := NewBuilder("empty")
	_, err := Build[string](b)
	if !errors.Is(err, ErrEmptyBlueprint) {
		t.Errorf("err = %v, want ErrEmptyBlueprint", err)
	}
}

func TestBuildRejectsNonJoinTerminal(t *testing.T) {
	b := NewBuilder("bad")
	b.Step("only_step", "some_module")
	_, err := Build[string](b)
	if !errors.Is(err, ErrTerminalNotJoin) {
		t.Errorf("err = %v, want ErrTerminalNotJoin", err)
	}
}

func TestBuildRejectsResponseTypeMismatch(t *testing.T) {
	b := NewBuilder("mismatch")
	Join(b, "respond", func(jc JoinContext) (int, error) {
		return 1, nil
	})
	_, err := Build[string](b)
	if !errors.Is(err, ErrResponseTypeMismatch) {
		t.Errorf("err = %v, want ErrResponseTypeMismatch", err)
	}
}

func TestBuildRejectsDuplicateNodeNames(t *testing.T) {
	b := NewBuilder("dup")
	b.Step("a", "mod")
	b.Step("a", "mod2")
	Join(b, "respond", func(jc JoinContext) (string, error) { return "", nil })
	_, err := Build[string](b)
	if !errors.Is(err, ErrDuplicateNodeName) {
		t.Errorf("err = %v, want ErrDuplicateNodeName", err)
	}
}

func TestStageNodesAndNames(t *testing.T) {
	b := NewBuilder("fanout")
	b.Stage("s1", &StageContract{FanoutMax: 2}, func(sb *StageBuilder) {
		sb.Step("m1", "mtype")
		sb.Step("m2", "mtype")
	})
	Join(b, "respond", func(jc JoinContext) (string, error) { return "", nil })
	bp, err := Build[string](b)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	names := bp.StageNames()
	if len(names) != 1 || names[0] != "s1" {
		t.Errorf("StageNames() = %v, want [s1]", names)
	}
	nodes := bp.StageNodes("s1")
	if len(nodes) != 2 {
		t.Fatalf("len(StageNodes(s1)) = %d, want 2", len(nodes))
	}
	contract, ok := bp.Stages["s1"]
	if !ok || contract.FanoutMax != 2 {
		t.Errorf("Stages[s1] = %+v, ok=%v, want FanoutMax=2", contract, ok)
	}
}

func TestNodeByName(t *testing.T) {
	b := NewBuilder("lookup")
	b.Step("a", "mod")
	Join(b, "respond", func(jc JoinContext) (string, error) { return "", nil })
	bp, err := Build[string](b)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	n, ok := bp.NodeByName("a")
	if !ok || n.ModuleType != "mod" {
		t.Errorf("NodeByName(a) = %+v, ok=%v", n, ok)
	}
	if _, ok := bp.NodeByName("missing"); ok {
		t.Error("NodeByName(missing) should report false")
	}
}
