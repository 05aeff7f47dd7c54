// Package plan compiles an immutable blueprint.Blueprint into a frozen,
// type-checked, hashed PlanTemplate, and holds the two write-once registries
// a FlowHost needs to do so: the FlowRegistry (flow name -> topology plus
// request/response types) and the ModuleCatalog (module type name -> factory).
package plan

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/WAcry/ROrchestrator-sub004/core"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

// Module is a typed computation unit: Args -> Outcome<Resp>, supplied by a
// ModuleCatalog factory and invoked by the execution engine.
type Module interface {
	ExecuteAsync(mctx *ModuleContext) outcome.Outcome[any]
}

// ModuleContext is what a module receives on invocation. Ctx carries the
// request's cancellation and deadline; Services is the opaque service
// provider handed through from FlowContext.
type ModuleContext struct {
	Ctx      ModuleCancelContext
	Args     any
	ModuleID string
	TypeName string
	Services any
}

// ModuleCancelContext is the minimal cancellation/deadline surface a module
// needs. context.Context satisfies it.
type ModuleCancelContext interface {
	Done() <-chan struct{}
	Err() error
}

// Factory builds a Module instance from the request-scoped service provider.
type Factory func(services any) (Module, error)

type catalogEntry struct {
	ArgsType     reflect.Type
	ResponseType reflect.Type
	Factory      Factory
}

// ModuleCatalog is a write-once-per-type, many-readers registry of module
// factories keyed by type name.
type ModuleCatalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
}

// NewModuleCatalog returns an empty catalog.
func NewModuleCatalog() *ModuleCatalog {
	return &ModuleCatalog{entries: make(map[string]catalogEntry)}
}

// Register adds typeName to the catalog. Registering an existing type name
// fails with core.ErrModuleAlreadyExists.
func (c *ModuleCatalog) Register(typeName string, argsType, responseType reflect.Type, factory Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[typeName]; exists {
		return fmt.Errorf("%w: %q", core.ErrModuleAlreadyExists, typeName)
	}
	c.entries[typeName] = catalogEntry{ArgsType: argsType, ResponseType: responseType, Factory: factory}
	return nil
}

// RegisterModule is a generic convenience over Register: it derives
// argsType/responseType from TArgs/TResp via reflection and wraps factory
// into the catalog's boxed Module interface.
func RegisterModule[TArgs, TResp any](c *ModuleCatalog, typeName string, factory func(services any) (TypedModule[TArgs, TResp], error)) error {
	argsType := reflect.TypeOf((*TArgs)(nil)).Elem()
	respType := reflect.TypeOf((*TResp)(nil)).Elem()
	return c.Register(typeName, argsType, respType, func(services any) (Module, error) {
		m, err := factory(services)
		if err != nil {
			return nil, err
		}
		return boxedModule[TArgs, TResp]{inner: m}, nil
	})
}

// TypedModule is the generic module shape a domain package implements;
// RegisterModule boxes it into the catalog's untyped Module interface.
type TypedModule[TArgs, TResp any] interface {
	ExecuteAsync(mctx *ModuleContext) outcome.Outcome[TResp]
}

type boxedModule[TArgs, TResp any] struct {
	inner TypedModule[TArgs, TResp]
}

func (b boxedModule[TArgs, TResp]) ExecuteAsync(mctx *ModuleContext) outcome.Outcome[any] {
	typed := b.inner.ExecuteAsync(mctx)
	switch typed.Kind() {
	case outcome.Ok:
		return outcome.NewOk[any](typed.Value())
	case outcome.Fallback:
		return outcome.NewFallback[any](typed.Value(), typed.Code())
	case outcome.Error:
		return outcome.NewError[any](typed.Code())
	case outcome.Timeout:
		return outcome.NewTimeout[any](typed.Code())
	case outcome.Skipped:
		return outcome.NewSkipped[any](typed.Code())
	case outcome.Canceled:
		return outcome.NewCanceled[any](typed.Code())
	default:
		return outcome.Outcome[any]{}
	}
}

// Lookup returns the registered entry for typeName.
func (c *ModuleCatalog) Lookup(typeName string) (argsType, responseType reflect.Type, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[typeName]
	if !ok {
		return nil, nil, false
	}
	return e.ArgsType, e.ResponseType, true
}

// Create instantiates typeName via its registered factory. Lookup failure
// returns core.ErrModuleNotRegistered.
func (c *ModuleCatalog) Create(typeName string, services any) (Module, error) {
	c.mu.RLock()
	e, ok := c.entries[typeName]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrModuleNotRegistered, typeName)
	}
	return e.Factory(services)
}
