package plan

import (
	"errors"
	"reflect"
	"testing"

	"github.com/WAcry/ROrchestrator-sub004/core"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

type echoModule struct{}

func (echoModule) ExecuteAsync(mctx *ModuleContext) outcome.Outcome[string] {
	return outcome.NewOk(mctx.Args.(string))
}

func TestModuleCatalogRegisterAndLookup(t *testing.T) {
	c := NewModuleCatalog()
	err := RegisterModule[string, string](c, "echo", func(services any) (TypedModule[string, string], error) {
		return echoModule{}, nil
	})
	if err != nil {
		t.Fatalf("RegisterModule() error = %v", err)
	}
	argsType, respType, ok := c.Lookup("echo")
	if !ok {
		t.Fatal("Lookup(echo) = false, want true")
	}
	if argsType != reflect.TypeOf("") || respType != reflect.TypeOf("") {
		t.Errorf("Lookup(echo) types = (%v,%v), want (string,string)", argsType, respType)
	}
}

func TestModuleCatalogRejectsDuplicateRegistration(t *testing.T) {
	c := NewModuleCatalog()
	register := func() error {
		return RegisterModule[string, string](c, "echo", func(services any) (TypedModule[string, string], error) {
			return echoModule{}, nil
		})
	}
	if err := register(); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	err := register()
	if !errors.Is(err, core.ErrModuleAlreadyExists) {
		t.Errorf("err = %v, want core.ErrModuleAlreadyExists", err)
	}
}

func TestModuleCatalogCreateUnregisteredFails(t *testing.T) {
	c := NewModuleCatalog()
	_, err := c.Create("missing", nil)
	if !errors.Is(err, core.ErrModuleNotRegistered) {
		t.Errorf("err = %v, want core.ErrModuleNotRegistered", err)
	}
}

func TestModuleCatalogCreateInvokesFactoryAndBoxesOutcome(t *testing.T) {
	c := NewModuleCatalog()
	if err := RegisterModule[string, string](c, "echo", func(services any) (TypedModule[string, string], error) {
		return echoModule{}, nil
	}); err != nil {
		t.Fatalf("RegisterModule() error = %v", err)
	}
	m, err := c.Create("echo", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got := m.ExecuteAsync(&ModuleContext{Args: "hello"})
	if got.Kind() != outcome.Ok || got.Value().(string) != "hello" {
		t.Errorf("ExecuteAsync() = %+v, want Ok(hello)", got)
	}
}
