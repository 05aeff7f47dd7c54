package engine

import (
	"time"

	"github.com/WAcry/ROrchestrator-sub004/outcome"
	"github.com/WAcry/ROrchestrator-sub004/plan"
)

// runStep resolves and executes one standalone Step node, recovering from a
// module panic as Error("UNHANDLED_EXCEPTION"). A true fatal runtime error
// (out-of-memory, stack overflow) is unrecoverable by the Go runtime itself
// and is never caught here, matching the "fatal exceptions propagate"
// requirement without any special-casing.
func (e *ExecutionEngine) runStep(fc *FlowContext, node plan.PlanNode, args any) (o outcome.Outcome[any], dur time.Duration) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome.NewError[any]("UNHANDLED_EXCEPTION")
		}
		dur = time.Since(start)
	}()

	module, err := e.catalog.Create(node.ModuleType, fc.Services())
	if err != nil {
		return outcome.NewError[any]("UNHANDLED_EXCEPTION"), time.Since(start)
	}

	mctx := &plan.ModuleContext{
		Ctx:      fc,
		Args:     args,
		ModuleID: node.Name,
		TypeName: node.ModuleType,
		Services: fc.Services(),
	}
	result := module.ExecuteAsync(mctx)
	return e.mapModuleOutcome(fc, result), time.Since(start)
}

// mapModuleOutcome re-derives Canceled vs Timeout from the request's current
// deadline state: a module that observes cancellation can't itself tell
// whether that's because the deadline passed or the caller gave up, so the
// engine decides at the point the outcome is recorded.
func (e *ExecutionEngine) mapModuleOutcome(fc *FlowContext, o outcome.Outcome[any]) outcome.Outcome[any] {
	if o.Kind() == outcome.Canceled {
		if fc.DeadlineExceeded(e.now()) {
			return outcome.NewTimeout[any]("DEADLINE_EXCEEDED")
		}
		return outcome.NewCanceled[any]("UPSTREAM_CANCELED")
	}
	return o
}

// isTerminalFailure reports whether o should abort the sequential chain of
// standalone steps/joins rather than feed a value forward.
func isTerminalFailure(o outcome.Outcome[any]) bool {
	switch o.Kind() {
	case outcome.Error, outcome.Timeout, outcome.Canceled:
		return true
	default:
		return false
	}
}
