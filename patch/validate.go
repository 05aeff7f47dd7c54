package patch

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"

	"github.com/WAcry/ROrchestrator-sub004/blueprint"
)

// Severity ranks a Finding.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
	SeverityInfo  Severity = "info"
)

// Finding codes, exhaustive for the core (spec.md §6).
const (
	CodeParseError               = "CFG_PARSE_ERROR"
	CodeSchemaVersionUnsupported = "CFG_SCHEMA_VERSION_UNSUPPORTED"
	CodeUnknownField             = "CFG_UNKNOWN_FIELD"
	CodeFlowsNotObject           = "CFG_FLOWS_NOT_OBJECT"
	CodeFlowNotRegistered        = "CFG_FLOW_NOT_REGISTERED"
	CodeFlowPatchNotObject       = "CFG_FLOW_PATCH_NOT_OBJECT"
	CodeStagesNotObject          = "CFG_STAGES_NOT_OBJECT"
	CodeStageNotInBlueprint      = "CFG_STAGE_NOT_IN_BLUEPRINT"
	CodeStagePatchNotObject      = "CFG_STAGE_PATCH_NOT_OBJECT"
	CodeModulesNotArray          = "CFG_MODULES_NOT_ARRAY"
	CodeModuleIDMissing          = "CFG_MODULE_ID_MISSING"
	CodeModuleIDDuplicate        = "CFG_MODULE_ID_DUPLICATE"
	CodeModuleIDInvalidFormat    = "CFG_MODULE_ID_INVALID_FORMAT"
	CodeModuleTypeMissing        = "CFG_MODULE_TYPE_MISSING"
	CodeModuleTypeNotRegistered  = "CFG_MODULE_TYPE_NOT_REGISTERED"
	CodeModuleArgsMissing        = "CFG_MODULE_ARGS_MISSING"
	CodeModuleArgsBindFailed     = "CFG_MODULE_ARGS_BIND_FAILED"
	CodeModuleArgsUnknownField   = "CFG_MODULE_ARGS_UNKNOWN_FIELD"
	CodeParamsBindFailed         = "CFG_PARAMS_BIND_FAILED"
	CodeParamsUnknownField       = "CFG_PARAMS_UNKNOWN_FIELD"
	CodeExperimentMappingInvalid   = "CFG_EXPERIMENT_MAPPING_INVALID"
	CodeExperimentMappingDuplicate = "CFG_EXPERIMENT_MAPPING_DUPLICATE"
	CodeExperimentPatchInvalid     = "CFG_EXPERIMENT_PATCH_INVALID"
	CodeGateUnknownType            = "CFG_GATE_UNKNOWN_TYPE"
	CodeGateEmptyComposite         = "CFG_GATE_EMPTY_COMPOSITE"
	CodeGateExperimentInvalid      = "CFG_GATE_EXPERIMENT_INVALID"
)

// Finding is one validation result, ordered by (Severity, Code, Path, Message).
type Finding struct {
	Severity Severity
	Code     string
	Path     string
	Message  string
}

// Report is the sorted, deterministic output of Validate.
type Report struct {
	Findings []Finding
}

// IsValid is the logical AND of "no finding at SeverityError".
func (r *Report) IsValid() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

var moduleIDFormat = regexp.MustCompile(`^[a-z0-9_]+$`)

var knownTopLevelFields = map[string]bool{"schemaVersion": true, "limits": true, "flows": true}
var knownFlowFields = map[string]bool{"params": true, "stages": true, "experiments": true, "qos": true, "emergency": true}
var knownStageFields = map[string]bool{"fanoutMax": true, "modules": true}

// ModuleTypeChecker reports whether typeName is registered, so Validate can
// emit CFG_MODULE_TYPE_NOT_REGISTERED without patch importing plan directly
// (plan already depends on blueprint; patch stays a sibling of plan).
type ModuleTypeChecker func(typeName string) bool

// Validate checks raw (the original JSON bytes, for unknown-field detection)
// and doc (the already-parsed Document) against bp's declared stages,
// returning a deterministically ordered Report. It never returns an error:
// structural problems become findings, per spec.md §4.4's failure semantics.
func Validate(raw []byte, doc *Document, bp *blueprint.Blueprint, flowName string, typeRegistered ModuleTypeChecker) *Report {
	var findings []Finding

	var topLevel map[string]json.RawMessage
	_ = json.Unmarshal(raw, &topLevel)
	for key := range topLevel {
		if !knownTopLevelFields[key] {
			findings = append(findings, Finding{SeverityError, CodeUnknownField, key, "unknown top-level field"})
		}
	}

	flowPatch, hasFlow := doc.Flows[flowName]
	if !hasFlow {
		return &Report{Findings: sortFindings(findings)}
	}

	var rawFlows map[string]json.RawMessage
	_ = json.Unmarshal(topLevel["flows"], &rawFlows)
	var rawFlow map[string]json.RawMessage
	_ = json.Unmarshal(rawFlows[flowName], &rawFlow)
	for key := range rawFlow {
		if !knownFlowFields[key] {
			path := "flows." + flowName + "." + key
			findings = append(findings, Finding{SeverityError, CodeUnknownField, path, "unknown flow-patch field"})
		}
	}

	declaredStages := make(map[string]bool)
	for _, name := range bp.StageNames() {
		declaredStages[name] = true
	}

	findings = append(findings, validateStages(flowName, flowPatch.Stages, declaredStages, typeRegistered)...)
	findings = append(findings, validateExperiments(flowName, flowPatch.Experiments, declaredStages, typeRegistered)...)

	return &Report{Findings: sortFindings(findings)}
}

func validateStages(flowName string, stages map[string]StagePatch, declaredStages map[string]bool, typeRegistered ModuleTypeChecker) []Finding {
	var findings []Finding
	seenIDs := make(map[string][]string) // id -> stage names it appeared in, for duplicate reporting

	stageNames := make([]string, 0, len(stages))
	for name := range stages {
		stageNames = append(stageNames, name)
	}
	sort.Strings(stageNames)

	for _, stageName := range stageNames {
		sp := stages[stageName]
		path := "flows." + flowName + ".stages." + stageName
		if !declaredStages[stageName] {
			findings = append(findings, Finding{SeverityError, CodeStageNotInBlueprint, path, "stage not declared in blueprint"})
		}
		for _, m := range sp.Modules {
			if m.ID == "" {
				findings = append(findings, Finding{SeverityError, CodeModuleIDMissing, path + ".modules", "module id missing"})
				continue
			}
			seenIDs[m.ID] = append(seenIDs[m.ID], stageName)
			if !moduleIDFormat.MatchString(m.ID) {
				findings = append(findings, Finding{SeverityWarn, CodeModuleIDInvalidFormat, path + ".modules." + m.ID, "module id must match [a-z0-9_]+"})
			}
			if m.Use != "" && typeRegistered != nil && !typeRegistered(m.Use) {
				findings = append(findings, Finding{SeverityError, CodeModuleTypeNotRegistered, path + ".modules." + m.ID, "module type " + m.Use + " not registered"})
			}
		}
	}

	for id, stagesSeen := range seenIDs {
		if len(stagesSeen) > 1 {
			for _, stageName := range stagesSeen {
				path := "flows." + flowName + ".stages." + stageName + ".modules." + id
				findings = append(findings, Finding{SeverityError, CodeModuleIDDuplicate, path, "module id duplicated across stages"})
			}
		}
	}

	return findings
}

func validateExperiments(flowName string, experiments []Experiment, declaredStages map[string]bool, typeRegistered ModuleTypeChecker) []Finding {
	var findings []Finding
	seen := make(map[string]bool)
	for i, e := range experiments {
		path := "flows." + flowName + ".experiments[" + strconv.Itoa(i) + "]"
		if e.Layer == "" || e.Variant == "" {
			findings = append(findings, Finding{SeverityError, CodeExperimentMappingInvalid, path, "experiment mapping requires non-empty layer and variant"})
			continue
		}
		key := e.Layer + "=" + e.Variant
		if seen[key] {
			findings = append(findings, Finding{SeverityError, CodeExperimentMappingDuplicate, path, "duplicate layer/variant mapping"})
		}
		seen[key] = true
		findings = append(findings, validateStages(flowName, e.Patch.Stages, declaredStages, typeRegistered)...)
	}
	return findings
}

func sortFindings(findings []Finding) []Finding {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Message < b.Message
	})
	return findings
}
