package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/core"
)

// PlanNode is the compiled, frozen form of a blueprint.Node: its OutputType
// has been resolved (from the module catalog for a Step, or from the
// declared join function for a Join).
type PlanNode struct {
	Kind       blueprint.Kind
	Name       string
	StageName  string
	ModuleType string
	OutputType reflect.Type
}

// PlanTemplate is the compiled form of a Blueprint: a frozen node list plus
// a deterministic 64-bit fingerprint of its shape.
type PlanTemplate struct {
	FlowName string
	Nodes    []PlanNode
	PlanHash string // 16 uppercase hex digits
}

// PlanNodeExplain is one tooling-facing record of a compiled node.
type PlanNodeExplain struct {
	Kind       string
	Name       string
	StageName  string
	ModuleType string
	OutputType string
}

// PlanExplain is the compiler's tooling output: one record per node.
type PlanExplain struct {
	FlowName string
	PlanHash string
	Nodes    []PlanNodeExplain
}

// PlanCompiler compiles blueprints against a fixed ModuleCatalog.
type PlanCompiler struct {
	catalog *ModuleCatalog
}

// NewPlanCompiler returns a compiler bound to catalog.
func NewPlanCompiler(catalog *ModuleCatalog) *PlanCompiler {
	return &PlanCompiler{catalog: catalog}
}

// Compile type-checks bp's steps against the catalog and produces its
// PlanTemplate and PlanExplain. reqType is the flow's declared request type,
// which feeds the first step (or stage) as its input type.
//
// Type-checking rule: a standalone step's args type must equal the output
// type of the immediately preceding node (or reqType, if first). A step
// inside a stage takes as its args type whatever type was flowing into the
// stage as a whole (the output of the node preceding the stage, or reqType),
// since stage siblings fan out over the same input rather than chaining into
// each other. A join's output type is always its declared type and becomes
// the input type for whatever follows it.
func (c *PlanCompiler) Compile(bp *blueprint.Blueprint, reqType reflect.Type) (*PlanTemplate, *PlanExplain, error) {
	nodes := make([]PlanNode, len(bp.Nodes))
	explainNodes := make([]PlanNodeExplain, len(bp.Nodes))

	lastOutputType := reqType
	stageInputType := reqType
	currentStage := ""

	for i, n := range bp.Nodes {
		var outputType reflect.Type
		switch n.Kind {
		case blueprint.StepKind:
			argsType, respType, ok := c.catalog.Lookup(n.ModuleType)
			if !ok {
				return nil, nil, c.fail(bp.FlowName, n.Name, n.ModuleType, core.ErrModuleNotRegistered)
			}
			var expected reflect.Type
			if n.StageName != "" {
				if n.StageName != currentStage {
					currentStage = n.StageName
					stageInputType = lastOutputType
				}
				expected = stageInputType
			} else {
				currentStage = ""
				expected = lastOutputType
			}
			if argsType != expected {
				return nil, nil, c.failTypeMismatch(bp.FlowName, n.Name, n.ModuleType, expected, argsType)
			}
			outputType = respType
			if n.StageName == "" {
				lastOutputType = outputType
			}
		case blueprint.JoinKind:
			currentStage = ""
			outputType = n.OutputType
			lastOutputType = outputType
		}

		nodes[i] = PlanNode{
			Kind:       n.Kind,
			Name:       n.Name,
			StageName:  n.StageName,
			ModuleType: n.ModuleType,
			OutputType: outputType,
		}
		explainNodes[i] = PlanNodeExplain{
			Kind:       n.Kind.String(),
			Name:       n.Name,
			StageName:  n.StageName,
			ModuleType: n.ModuleType,
			OutputType: typeName(outputType),
		}
	}

	hash := computePlanHash(bp.FlowName, nodes)
	return &PlanTemplate{FlowName: bp.FlowName, Nodes: nodes, PlanHash: hash},
		&PlanExplain{FlowName: bp.FlowName, PlanHash: hash, Nodes: explainNodes},
		nil
}

func (c *PlanCompiler) fail(flowName, nodeName, moduleType string, cause error) error {
	return core.NewError("plan.Compile", "plan_compile_failed", fmt.Errorf("%w: %w", core.ErrPlanCompileFailed, cause)).
		WithID(nodeName).
		WithMessage(fmt.Sprintf("flow %q: module type %q", flowName, moduleType))
}

func (c *PlanCompiler) failTypeMismatch(flowName, nodeName, moduleType string, expected, got reflect.Type) error {
	return core.NewError("plan.Compile", "plan_compile_failed", fmt.Errorf("%w: %w", core.ErrPlanCompileFailed, core.ErrTypeMismatch)).
		WithID(nodeName).
		WithMessage(fmt.Sprintf("flow %q: module type %q expects args %s, upstream produces %s",
			flowName, moduleType, typeName(expected), typeName(got)))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// computePlanHash fingerprints (flowName, [kind,name,stageName,moduleType,
// outputType] per node) with sha256, truncated to 8 bytes and rendered as 16
// uppercase hex digits, mirroring the truncated-sha256 cache-key convention
// used elsewhere in this codebase.
func computePlanHash(flowName string, nodes []PlanNode) string {
	var sb strings.Builder
	sb.WriteString(flowName)
	sb.WriteByte('\n')
	for _, n := range nodes {
		sb.WriteString(strconv.Itoa(int(n.Kind)))
		sb.WriteByte('|')
		sb.WriteString(n.Name)
		sb.WriteByte('|')
		sb.WriteString(n.StageName)
		sb.WriteByte('|')
		sb.WriteString(n.ModuleType)
		sb.WriteByte('|')
		sb.WriteString(typeName(n.OutputType))
		sb.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:8]))
}
