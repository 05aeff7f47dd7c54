// Package blueprint describes the static topology of a flow: an immutable
// ordered list of step and join nodes, grouped into contiguous stages. A
// Blueprint carries no runtime configuration; overlays and fan-out decisions
// are applied later by the patch evaluator and execution engine against a
// compiled PlanTemplate.
package blueprint

import (
	"reflect"

	"github.com/WAcry/ROrchestrator-sub004/outcome"
)

// Kind identifies which shape a Node has.
type Kind int

const (
	// StepKind nodes resolve and run exactly one module.
	StepKind Kind = iota
	// JoinKind nodes run a user function over prior node outcomes.
	JoinKind
)

func (k Kind) String() string {
	switch k {
	case StepKind:
		return "Step"
	case JoinKind:
		return "Join"
	default:
		return "Unknown"
	}
}

// JoinContext is the minimal view a join function needs of the in-flight
// request: read-only access to prior node outcomes by name. Engine's
// FlowContext satisfies this interface; blueprint never imports engine.
type JoinContext interface {
	Outcome(name string) (outcome.Outcome[any], bool)
}

// JoinFunc combines upstream outcomes into a single typed result.
type JoinFunc[TOut any] func(JoinContext) (TOut, error)

// Node is one element of a Blueprint's topology.
type Node struct {
	Kind Kind
	Name string

	// StageName is non-empty when this node belongs to a contiguous fan-out
	// stage; empty for a standalone sequential step or join.
	StageName string

	// ModuleType names the catalog entry a Step node resolves. Unused by Join.
	ModuleType string

	// JoinFn runs for a Join node. Its argument is a boxed JoinContext and its
	// return is boxed to `any`; OutputType records the function's declared
	// return type so the plan compiler and engine can type-check access to it.
	JoinFn func(JoinContext) (any, error)

	// OutputType is the join function's declared return type. Unused by Step;
	// a Step's output type is resolved later from the module catalog.
	OutputType reflect.Type
}

// StageContract bounds what a stage's modules may do at runtime. The
// blueprint only records these bounds; the patch evaluator and execution
// engine enforce them against the effective configuration.
type StageContract struct {
	// AllowDynamicModules permits modules not declared as blueprint Step
	// nodes to be added to this stage by a patch.
	AllowDynamicModules bool

	// AllowShadowModules permits shadow execution within this stage.
	AllowShadowModules bool

	// AllowedModuleTypes restricts which catalog types may run in this
	// stage. Empty means unrestricted.
	AllowedModuleTypes []string

	// FanoutMin and FanoutMax bound the stage's configured fanoutMax. Zero
	// means "no bound" for both.
	FanoutMin int
	FanoutMax int
}

// Blueprint is the immutable, ordered topology of one flow.
type Blueprint struct {
	FlowName string
	Nodes    []Node

	// Stages maps stageName to its contract, for stages that declared one.
	// A stage with no explicit contract has no entry here.
	Stages map[string]*StageContract

	// ResponseType is the type the terminal join node must produce.
	ResponseType reflect.Type
}

// StageNames returns the distinct stage names in first-appearance order.
func (b *Blueprint) StageNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, n := range b.Nodes {
		if n.StageName == "" {
			continue
		}
		if _, ok := seen[n.StageName]; ok {
			continue
		}
		seen[n.StageName] = struct{}{}
		names = append(names, n.StageName)
	}
	return names
}

// StageNodes returns the nodes belonging to stageName, in declaration order.
func (b *Blueprint) StageNodes(stageName string) []Node {
	var nodes []Node
	for _, n := range b.Nodes {
		if n.StageName == stageName {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// NodeByName returns the node with the given name, if any.
func (b *Blueprint) NodeByName(name string) (Node, bool) {
	for _, n := range b.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}
