package blueprint

import (
	"fmt"
	"reflect"
)

// Builder accumulates nodes for one flow and produces an immutable Blueprint
// on Build. Stage/Step/Join calls are chainable; the first validation error
// encountered is sticky and surfaces from Build.
type Builder struct {
	flowName string
	nodes    []Node
	names    map[string]struct{}
	stages   map[string]*StageContract
	err      error
}

// NewBuilder starts a Blueprint for flowName.
func NewBuilder(flowName string) *Builder {
	return &Builder{
		flowName: flowName,
		names:    make(map[string]struct{}),
		stages:   make(map[string]*StageContract),
	}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) addNode(n Node) {
	if n.Name == "" {
		b.fail(ErrEmptyNodeName)
		return
	}
	if _, dup := b.names[n.Name]; dup {
		b.fail(fmt.Errorf("%w: %q", ErrDuplicateNodeName, n.Name))
		return
	}
	b.names[n.Name] = struct{}{}
	b.nodes = append(b.nodes, n)
}

// Step appends a standalone Step node (outside any stage).
func (b *Builder) Step(name, moduleType string) *Builder {
	if moduleType == "" {
		b.fail(ErrEmptyModuleType)
		return b
	}
	b.addNode(Node{Kind: StepKind, Name: name, ModuleType: moduleType})
	return b
}

// Stage opens a contiguous fan-out stage named stageName. contract may be nil
// for no explicit bounds. body declares the stage's member steps via the
// StageBuilder it receives.
func (b *Builder) Stage(stageName string, contract *StageContract, body func(*StageBuilder)) *Builder {
	if stageName == "" {
		b.fail(fmt.Errorf("%w: stage name must not be empty", ErrEmptyNodeName))
		return b
	}
	if contract != nil {
		b.stages[stageName] = contract
	}
	sb := &StageBuilder{b: b, stageName: stageName}
	if body != nil {
		body(sb)
	}
	return b
}

// StageBuilder declares the member Step nodes of one stage.
type StageBuilder struct {
	b         *Builder
	stageName string
}

// Step appends a Step node to this stage.
func (s *StageBuilder) Step(name, moduleType string) *StageBuilder {
	if moduleType == "" {
		s.b.fail(ErrEmptyModuleType)
		return s
	}
	s.b.addNode(Node{Kind: StepKind, Name: name, StageName: s.stageName, ModuleType: moduleType})
	return s
}

// Join appends a Join node to b, reading prior outcomes and producing a
// TOut-typed result. Join is a package-level function (not a Builder method)
// because Go methods cannot carry their own type parameters.
func Join[TOut any](b *Builder, name string, fn JoinFunc[TOut]) *Builder {
	if name == "" {
		b.fail(ErrEmptyNodeName)
		return b
	}
	outputType := reflect.TypeOf((*TOut)(nil)).Elem()
	boxed := func(jc JoinContext) (any, error) {
		v, err := fn(jc)
		return v, err
	}
	b.addNode(Node{Kind: JoinKind, Name: name, JoinFn: boxed, OutputType: outputType})
	return b
}

// StageJoin appends a Join node that is part of stageName rather than
// standing alone between stages.
func StageJoin[TOut any](s *StageBuilder, name string, fn JoinFunc[TOut]) *StageBuilder {
	if name == "" {
		s.b.fail(ErrEmptyNodeName)
		return s
	}
	outputType := reflect.TypeOf((*TOut)(nil)).Elem()
	boxed := func(jc JoinContext) (any, error) {
		return fn(jc)
	}
	s.b.addNode(Node{Kind: JoinKind, Name: name, StageName: s.stageName, JoinFn: boxed, OutputType: outputType})
	return s
}

// Build finalizes b into an immutable Blueprint whose terminal join output
// type must equal TResp. It enforces: at least one node, unique names
// (checked incrementally by addNode), and a terminal Join whose declared
// output type matches TResp.
func Build[TResp any](b *Builder) (*Blueprint, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.nodes) == 0 {
		return nil, ErrEmptyBlueprint
	}
	last := b.nodes[len(b.nodes)-1]
	if last.Kind != JoinKind {
		return nil, fmt.Errorf("%w: flow %q ends with %s node %q", ErrTerminalNotJoin, b.flowName, last.Kind, last.Name)
	}
	responseType := reflect.TypeOf((*TResp)(nil)).Elem()
	if last.OutputType != responseType {
		return nil, fmt.Errorf("%w: flow %q join %q produces %s, want %s",
			ErrResponseTypeMismatch, b.flowName, last.Name, last.OutputType, responseType)
	}

	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	stages := make(map[string]*StageContract, len(b.stages))
	for k, v := range b.stages {
		stages[k] = v
	}

	return &Blueprint{
		FlowName:     b.flowName,
		Nodes:        nodes,
		Stages:       stages,
		ResponseType: responseType,
	}, nil
}
