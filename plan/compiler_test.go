package plan

import (
	"errors"
	"reflect"
	"testing"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/core"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

type userFetcher struct{}

func (userFetcher) ExecuteAsync(mctx *ModuleContext) outcome.Outcome[int] {
	return outcome.NewOk(len(mctx.Args.(string)))
}

func buildCatalog(t *testing.T) *ModuleCatalog {
	t.Helper()
	c := NewModuleCatalog()
	if err := RegisterModule[string, int](c, "user_fetcher", func(services any) (TypedModule[string, int], error) {
		return userFetcher{}, nil
	}); err != nil {
		t.Fatalf("RegisterModule() error = %v", err)
	}
	return c
}

func chainedBlueprint(t *testing.T) *blueprint.Blueprint {
	t.Helper()
	b := blueprint.NewBuilder("greet")
	b.Step("fetch_user", "user_fetcher")
	blueprint.Join(b, "respond", func(jc blueprint.JoinContext) (string, error) {
		return "hi", nil
	})
	bp, err := blueprint.Build[string](b)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return bp
}

func TestCompileSucceedsAndTypeChecks(t *testing.T) {
	catalog := buildCatalog(t)
	bp := chainedBlueprint(t)
	compiler := NewPlanCompiler(catalog)

	pt, pe, err := compiler.Compile(bp, reflect.TypeOf(""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(pt.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(pt.Nodes))
	}
	if pt.Nodes[0].OutputType != reflect.TypeOf(0) {
		t.Errorf("step output type = %v, want int", pt.Nodes[0].OutputType)
	}
	if pt.Nodes[1].OutputType != reflect.TypeOf("") {
		t.Errorf("join output type = %v, want string", pt.Nodes[1].OutputType)
	}
	if len(pe.Nodes) != 2 || pe.PlanHash != pt.PlanHash {
		t.Errorf("PlanExplain = %+v, want matching hash and 2 nodes", pe)
	}
	if len(pt.PlanHash) != 16 {
		t.Errorf("PlanHash = %q, want 16 hex chars", pt.PlanHash)
	}
}

func TestCompileFailsOnUnregisteredModuleType(t *testing.T) {
	catalog := NewModuleCatalog()
	bp := chainedBlueprint(t)
	compiler := NewPlanCompiler(catalog)

	_, _, err := compiler.Compile(bp, reflect.TypeOf(""))
	if !errors.Is(err, core.ErrModuleNotRegistered) {
		t.Errorf("err = %v, want core.ErrModuleNotRegistered", err)
	}
	if !errors.Is(err, core.ErrPlanCompileFailed) {
		t.Errorf("err = %v, want core.ErrPlanCompileFailed", err)
	}
}

func TestCompileFailsOnArgsTypeMismatch(t *testing.T) {
	catalog := buildCatalog(t)
	bp := chainedBlueprint(t)
	compiler := NewPlanCompiler(catalog)

	// request type is int, but user_fetcher expects string
	_, _, err := compiler.Compile(bp, reflect.TypeOf(0))
	if !errors.Is(err, core.ErrTypeMismatch) {
		t.Errorf("err = %v, want core.ErrTypeMismatch", err)
	}
}

func TestPlanHashDeterministic(t *testing.T) {
	catalog := buildCatalog(t)
	compiler := NewPlanCompiler(catalog)

	pt1, _, err := compiler.Compile(chainedBlueprint(t), reflect.TypeOf(""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	pt2, _, err := compiler.Compile(chainedBlueprint(t), reflect.TypeOf(""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if pt1.PlanHash != pt2.PlanHash {
		t.Errorf("PlanHash not deterministic: %s != %s", pt1.PlanHash, pt2.PlanHash)
	}
}

func TestPlanHashChangesOnRename(t *testing.T) {
	catalog := buildCatalog(t)
	compiler := NewPlanCompiler(catalog)

	pt1, _, err := compiler.Compile(chainedBlueprint(t), reflect.TypeOf(""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	b := blueprint.NewBuilder("greet")
	b.Step("fetch_user_renamed", "user_fetcher")
	blueprint.Join(b, "respond", func(jc blueprint.JoinContext) (string, error) { return "hi", nil })
	renamed, err := blueprint.Build[string](b)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	pt2, _, err := compiler.Compile(renamed, reflect.TypeOf(""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if pt1.PlanHash == pt2.PlanHash {
		t.Error("renaming a step should change the plan hash")
	}
}

func TestCompileStageSiblingsShareStageInputType(t *testing.T) {
	catalog := buildCatalog(t)
	b := blueprint.NewBuilder("fanout")
	b.Stage("s1", nil, func(sb *blueprint.StageBuilder) {
		sb.Step("m1", "user_fetcher")
		sb.Step("m2", "user_fetcher")
	})
	blueprint.Join(b, "respond", func(jc blueprint.JoinContext) (string, error) { return "", nil })
	bp, err := blueprint.Build[string](b)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	compiler := NewPlanCompiler(catalog)
	_, _, err = compiler.Compile(bp, reflect.TypeOf(""))
	if err != nil {
		t.Fatalf("Compile() error = %v, want both siblings to type-check against the stage's shared input", err)
	}
}
