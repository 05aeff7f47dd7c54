package engine

import (
	"time"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

// runJoin runs a join node's user function, recovering a panic into
// Error("UNHANDLED_EXCEPTION") the same way runStep does for modules.
func (e *ExecutionEngine) runJoin(node blueprint.Node, fc *FlowContext) (o outcome.Outcome[any], dur time.Duration) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome.NewError[any]("UNHANDLED_EXCEPTION")
		}
		dur = time.Since(start)
	}()

	v, err := node.JoinFn(fc)
	if err != nil {
		return outcome.NewError[any]("UNHANDLED_EXCEPTION"), time.Since(start)
	}
	if v == nil {
		return outcome.NewError[any]("UNHANDLED_EXCEPTION"), time.Since(start)
	}
	return outcome.NewOk[any](v), time.Since(start)
}
