// Package engine walks a compiled plan.PlanTemplate against an
// patch.EvaluatedFlow, producing an Outcome for the caller and, optionally,
// a structured ExecExplain record of what happened.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/WAcry/ROrchestrator-sub004/configsnap"
	"github.com/WAcry/ROrchestrator-sub004/core"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

// RequestOptions is the caller-supplied, per-request shape that feeds gate
// evaluation and patch overlay selection.
type RequestOptions struct {
	Variants          map[string]string
	UserID            string
	RequestAttributes map[string]any
}

// FlowContext is the per-request state threaded through one execute call
// chain. It is built by the caller with NewFlowContext and passed to
// Execute, consumed by exactly that one call chain, and is not safe for
// reuse across requests.
type FlowContext struct {
	ctx      context.Context
	services any
	deadline time.Time
	options  RequestOptions

	mu           sync.RWMutex
	nodeOutcomes []outcome.Outcome[any]
	nodeIndex    map[string]int

	memo *requestMemo

	explain *ExecExplain

	snapshotMu      sync.Mutex
	snapshotFetched bool
	snapshot        configsnap.Snapshot
	snapshotErr     error
}

// NewFlowContext builds a FlowContext bound to ctx (for cancellation),
// services (opaque, handed through to modules), and an absolute deadline,
// which MUST be non-zero: a zero deadline is a programmer error and
// NewFlowContext panics with core.ErrZeroDeadline.
func NewFlowContext(ctx context.Context, services any, deadline time.Time, options RequestOptions) *FlowContext {
	if deadline.IsZero() {
		panic(core.ErrZeroDeadline)
	}
	return &FlowContext{
		ctx:      ctx,
		services: services,
		deadline: deadline,
		options:  options,
		memo:     newRequestMemo(),
	}
}

// Services returns the opaque service provider handed through to modules.
func (fc *FlowContext) Services() any { return fc.services }

// Options returns the caller's per-request options.
func (fc *FlowContext) Options() RequestOptions { return fc.options }

// Deadline returns the absolute deadline this request must complete by.
func (fc *FlowContext) Deadline() time.Time { return fc.deadline }

// DeadlineExceeded reports whether now is at or past the request deadline.
func (fc *FlowContext) DeadlineExceeded(now time.Time) bool {
	return !fc.deadline.IsZero() && !now.Before(fc.deadline)
}

// Done satisfies plan.ModuleCancelContext by delegating to the bound
// context.Context's cancellation signal.
func (fc *FlowContext) Done() <-chan struct{} { return fc.ctx.Done() }

// Err satisfies plan.ModuleCancelContext.
func (fc *FlowContext) Err() error { return fc.ctx.Err() }

// Context returns the underlying context.Context, for callers (modules)
// that need it directly, e.g. to pass to an I/O call.
func (fc *FlowContext) Context() context.Context { return fc.ctx }

// initNodeOutcomes sizes the node-outcome table to n entries (all
// Unspecified) and builds the name->index map, per plan node order. Called
// once by ExecutionEngine.Execute before walking the plan.
func (fc *FlowContext) initNodeOutcomes(names []string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.nodeOutcomes = make([]outcome.Outcome[any], len(names))
	fc.nodeIndex = make(map[string]int, len(names))
	for i, name := range names {
		fc.nodeIndex[name] = i
	}
}

// setNodeOutcome records the outcome for the node at position i.
func (fc *FlowContext) setNodeOutcome(i int, o outcome.Outcome[any]) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.nodeOutcomes[i] = o
}

// Outcome implements blueprint.JoinContext: look up a prior node's recorded
// outcome by name.
func (fc *FlowContext) Outcome(name string) (outcome.Outcome[any], bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	i, ok := fc.nodeIndex[name]
	if !ok {
		return outcome.Outcome[any]{}, false
	}
	return fc.nodeOutcomes[i], true
}

// EnableExplain attaches an ExecExplain sink to this request. Must be called
// before Execute for the recording to take effect.
func (fc *FlowContext) EnableExplain(e *ExecExplain) { fc.explain = e }

// Explain returns the attached ExecExplain sink, or nil if none was enabled.
func (fc *FlowContext) Explain() *ExecExplain { return fc.explain }

// snapshotOnce fetches the config snapshot for flowName via fetch at most
// once per FlowContext, so nested Execute calls against the same request see
// an identical configVersion instead of racing a second fetch.
func (fc *FlowContext) snapshotOnce(fetch func() (configsnap.Snapshot, error)) (configsnap.Snapshot, error) {
	fc.snapshotMu.Lock()
	defer fc.snapshotMu.Unlock()
	if !fc.snapshotFetched {
		fc.snapshot, fc.snapshotErr = fetch()
		fc.snapshotFetched = true
	}
	return fc.snapshot, fc.snapshotErr
}
