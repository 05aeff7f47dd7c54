// Package patch parses the JSON configuration patch wire format and applies
// its layered overlays (base, experiment, qos, emergency) against a flow's
// blueprint-declared stages to produce an EvaluatedFlow the execution engine
// can walk.
package patch

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is the only schemaVersion this evaluator accepts.
const SchemaVersion = "v1"

// Document is the root of the patch wire format.
type Document struct {
	SchemaVersion string               `json:"schemaVersion"`
	Limits        *Limits              `json:"limits,omitempty"`
	Flows         map[string]FlowPatch `json:"flows"`
}

// Limits carries process-wide bulkhead sizing.
type Limits struct {
	ModuleConcurrency *ModuleConcurrency `json:"moduleConcurrency,omitempty"`
}

// ModuleConcurrency maps a bulkhead limitKey to its capacity.
type ModuleConcurrency struct {
	MaxInFlight map[string]int `json:"maxInFlight,omitempty"`
}

// FlowPatch is one flow's patch content: the base overlay plus the
// experiment/qos/emergency overlays layered on top of it.
type FlowPatch struct {
	Params      map[string]any        `json:"params,omitempty"`
	Stages      map[string]StagePatch `json:"stages,omitempty"`
	Experiments []Experiment          `json:"experiments,omitempty"`
	Qos         *QosPatch             `json:"qos,omitempty"`
	Emergency   *EmergencyPatch       `json:"emergency,omitempty"`
}

// FlowPatchSubset is the shape an overlay ("patch" field of an experiment,
// qos tier, or emergency block) carries: the same params/stages fields as a
// base FlowPatch, but never another nested layer of experiments/qos/emergency.
type FlowPatchSubset struct {
	Params map[string]any        `json:"params,omitempty"`
	Stages map[string]StagePatch `json:"stages,omitempty"`
}

// Experiment is one entry of flows.<flow>.experiments.
type Experiment struct {
	Layer   string          `json:"layer"`
	Variant string          `json:"variant"`
	Patch   FlowPatchSubset `json:"patch"`
}

// QosPatch carries the per-tier overlays of flows.<flow>.qos.
type QosPatch struct {
	Tiers map[string]QosTierPatch `json:"tiers"`
}

// QosTierPatch is one QoS tier's overlay.
type QosTierPatch struct {
	Patch FlowPatchSubset `json:"patch"`
}

// EmergencyPatch is the flow's (at most one) emergency overlay.
type EmergencyPatch struct {
	Reason     string          `json:"reason"`
	Operator   string          `json:"operator"`
	TTLMinutes int             `json:"ttl_minutes"`
	Patch      FlowPatchSubset `json:"patch"`
}

// StagePatch is one stage's overlay content.
type StagePatch struct {
	FanoutMax *int         `json:"fanoutMax,omitempty"`
	Modules   []ModuleSpec `json:"modules,omitempty"`
}

// ModuleSpec is one module entry within a stage's modules array. Pointer
// fields distinguish "unset" from "set to the zero value", which matters for
// field-wise overlay merging.
type ModuleSpec struct {
	ID       string         `json:"id"`
	Use      string         `json:"use,omitempty"`
	With     map[string]any `json:"with,omitempty"`
	Enabled  *bool          `json:"enabled,omitempty"`
	Priority *int           `json:"priority,omitempty"`
	LimitKey string         `json:"limitKey,omitempty"`
	Gate     *Gate          `json:"gate,omitempty"`
	Shadow   *ShadowSpec    `json:"shadow,omitempty"`
	MemoKey  string         `json:"memoKey,omitempty"`
}

// ShadowSpec configures shadow execution for a module.
type ShadowSpec struct {
	Sample float64 `json:"sample"`
}

// GateType discriminates the Gate sum type.
type GateType string

const (
	GateExperiment GateType = "experiment"
	GateSelector   GateType = "selector"
	GateAll        GateType = "all"
	GateAny        GateType = "any"
	GateNot        GateType = "not"
)

// Gate is the sum type ExperimentGate | Selector | All | Any | Not.
type Gate struct {
	Type GateType

	// ExperimentGate fields.
	Layer string
	In    []string

	// Selector fields.
	Selector string

	// All/Any fields.
	Children []Gate

	// Not field.
	Child *Gate
}

// UnmarshalJSON decodes whichever gate shape is present in data.
func (g *Gate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Layer    string            `json:"layer"`
		In       []string          `json:"in"`
		Selector string            `json:"selector"`
		All      []json.RawMessage `json:"all"`
		Any      []json.RawMessage `json:"any"`
		Not      json.RawMessage   `json:"not"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Layer != "" || raw.In != nil:
		g.Type = GateExperiment
		g.Layer = raw.Layer
		g.In = raw.In
	case raw.Selector != "":
		g.Type = GateSelector
		g.Selector = raw.Selector
	case raw.All != nil:
		if len(raw.All) == 0 {
			return ErrGateEmptyComposite
		}
		g.Type = GateAll
		g.Children = make([]Gate, len(raw.All))
		for i, c := range raw.All {
			if err := json.Unmarshal(c, &g.Children[i]); err != nil {
				return err
			}
		}
	case raw.Any != nil:
		if len(raw.Any) == 0 {
			return ErrGateEmptyComposite
		}
		g.Type = GateAny
		g.Children = make([]Gate, len(raw.Any))
		for i, c := range raw.Any {
			if err := json.Unmarshal(c, &g.Children[i]); err != nil {
				return err
			}
		}
	case raw.Not != nil:
		g.Type = GateNot
		child := &Gate{}
		if err := json.Unmarshal(raw.Not, child); err != nil {
			return err
		}
		g.Child = child
	default:
		return fmt.Errorf("%w: unrecognized gate shape: %s", ErrGateUnknownType, data)
	}
	return nil
}

// MarshalJSON encodes g back into whichever shape its Type implies.
func (g Gate) MarshalJSON() ([]byte, error) {
	switch g.Type {
	case GateExperiment:
		return json.Marshal(struct {
			Layer string   `json:"layer"`
			In    []string `json:"in"`
		}{g.Layer, g.In})
	case GateSelector:
		return json.Marshal(struct {
			Selector string `json:"selector"`
		}{g.Selector})
	case GateAll:
		return json.Marshal(struct {
			All []Gate `json:"all"`
		}{g.Children})
	case GateAny:
		return json.Marshal(struct {
			Any []Gate `json:"any"`
		}{g.Children})
	case GateNot:
		return json.Marshal(struct {
			Not *Gate `json:"not"`
		}{g.Child})
	default:
		return nil, fmt.Errorf("patch: gate has no type set")
	}
}
