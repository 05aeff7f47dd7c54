package plan

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/core"
)

// FlowEntry is one flow's registered shape: its topology plus the Go types
// the FlowHost must validate a caller's generic execute<Req,Resp> call
// against.
type FlowEntry struct {
	Blueprint     *blueprint.Blueprint
	RequestType   reflect.Type
	ResponseType  reflect.Type
	ParamsType    reflect.Type
	PatchType     reflect.Type
	DefaultParams any
}

// FlowRegistry is a write-once-per-name, many-readers map of flowName to
// FlowEntry. Once registered, entries are immutable.
type FlowRegistry struct {
	mu    sync.RWMutex
	flows map[string]FlowEntry
}

// NewFlowRegistry returns an empty registry.
func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{flows: make(map[string]FlowEntry)}
}

// Register adds entry under name. Registering an existing name fails with
// core.ErrFlowAlreadyRegistered.
func (r *FlowRegistry) Register(name string, entry FlowEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flows[name]; exists {
		return fmt.Errorf("%w: %q", core.ErrFlowAlreadyRegistered, name)
	}
	r.flows[name] = entry
	return nil
}

// RegisterFlow is a generic convenience that derives RequestType/ResponseType
// from Req/Resp via reflection.
func RegisterFlow[Req, Resp any](r *FlowRegistry, name string, bp *blueprint.Blueprint, opts ...FlowEntryOption) error {
	entry := FlowEntry{
		Blueprint:    bp,
		RequestType:  reflect.TypeOf((*Req)(nil)).Elem(),
		ResponseType: reflect.TypeOf((*Resp)(nil)).Elem(),
	}
	for _, opt := range opts {
		opt(&entry)
	}
	return r.Register(name, entry)
}

// FlowEntryOption customizes an entry built by RegisterFlow.
type FlowEntryOption func(*FlowEntry)

// WithParamsType records a flow's declared params type for patch-arg binding.
func WithParamsType(t reflect.Type) FlowEntryOption {
	return func(e *FlowEntry) { e.ParamsType = t }
}

// WithPatchType records a flow's declared patch-subset type, if distinct.
func WithPatchType(t reflect.Type) FlowEntryOption {
	return func(e *FlowEntry) { e.PatchType = t }
}

// WithDefaultParams attaches default params applied when a patch supplies none.
func WithDefaultParams(v any) FlowEntryOption {
	return func(e *FlowEntry) { e.DefaultParams = v }
}

// Lookup returns the entry registered under name.
func (r *FlowRegistry) Lookup(name string) (FlowEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.flows[name]
	return e, ok
}

// ValidateSignature checks that reqType/respType match the registered
// entry's types, returning core.ErrTypeMismatch on mismatch and
// core.ErrFlowNotRegistered if name isn't registered.
func (r *FlowRegistry) ValidateSignature(name string, reqType, respType reflect.Type) (FlowEntry, error) {
	entry, ok := r.Lookup(name)
	if !ok {
		return FlowEntry{}, fmt.Errorf("%w: %q", core.ErrFlowNotRegistered, name)
	}
	if entry.RequestType != reqType || entry.ResponseType != respType {
		return FlowEntry{}, fmt.Errorf("%w: flow %q registered as (%s,%s), called as (%s,%s)",
			core.ErrTypeMismatch, name, entry.RequestType, entry.ResponseType, reqType, respType)
	}
	return entry, nil
}
