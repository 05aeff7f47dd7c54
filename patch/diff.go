package patch

import "sort"

// DiffKind classifies one PatchDiff entry.
type DiffKind string

const (
	DiffAdded       DiffKind = "added"
	DiffRemoved     DiffKind = "removed"
	DiffUseChanged  DiffKind = "use_changed"
	DiffFieldChanged DiffKind = "field_changed"
)

// DiffEntry is one structural difference between two patches, scoped to a
// single module within a single stage of a single flow (optionally within an
// experiment overlay).
type DiffEntry struct {
	Flow              string
	Stage             string
	ModuleID          string
	Kind              DiffKind
	Path              string
	ExperimentLayer   string
	ExperimentVariant string
	Before            any
	After             any
}

// Diff compares two patch documents module-by-module within each flow's base
// stages and within each experiment overlay (matched by layer and variant),
// emitting DiffAdded/DiffRemoved/DiffUseChanged/DiffFieldChanged
// entries in the deterministic order spec.md §5 requires: by (flow, stage,
// moduleId, kind, path, experimentLayer, experimentVariant).
//
// Reordering modules within a stage (same ids/fields) yields zero diff, since
// comparison is keyed by id, not position. Moving a module across stages
// yields removed+added rather than use_changed, since the two stages are
// compared independently.
func Diff(before, after *Document) []DiffEntry {
	var entries []DiffEntry

	flowNames := unionKeys(before.Flows, after.Flows)
	for _, flowName := range flowNames {
		beforeFlow := before.Flows[flowName]
		afterFlow := after.Flows[flowName]
		entries = append(entries, diffStages(flowName, "", "", beforeFlow.Stages, afterFlow.Stages)...)
		entries = append(entries, diffExperiments(flowName, beforeFlow.Experiments, afterFlow.Experiments)...)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Flow != b.Flow {
			return a.Flow < b.Flow
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		if a.ModuleID != b.ModuleID {
			return a.ModuleID < b.ModuleID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.ExperimentLayer != b.ExperimentLayer {
			return a.ExperimentLayer < b.ExperimentLayer
		}
		return a.ExperimentVariant < b.ExperimentVariant
	})
	return entries
}

func diffExperiments(flowName string, before, after []Experiment) []DiffEntry {
	var entries []DiffEntry
	beforeByKey := make(map[string]Experiment)
	for _, e := range before {
		beforeByKey[e.Layer+"="+e.Variant] = e
	}
	afterByKey := make(map[string]Experiment)
	for _, e := range after {
		afterByKey[e.Layer+"="+e.Variant] = e
	}
	for key, b := range beforeByKey {
		a, ok := afterByKey[key]
		var afterStages map[string]StagePatch
		if ok {
			afterStages = a.Patch.Stages
		}
		sub := diffStages(flowName, b.Layer, b.Variant, b.Patch.Stages, afterStages)
		entries = append(entries, sub...)
	}
	for key, a := range afterByKey {
		if _, ok := beforeByKey[key]; ok {
			continue
		}
		sub := diffStages(flowName, a.Layer, a.Variant, nil, a.Patch.Stages)
		entries = append(entries, sub...)
	}
	return entries
}

func diffStages(flowName, expLayer, expVariant string, before, after map[string]StagePatch) []DiffEntry {
	var entries []DiffEntry
	stageNames := unionKeysStagePatch(before, after)
	for _, stageName := range stageNames {
		b, bOK := before[stageName]
		a, aOK := after[stageName]
		var bModules, aModules []ModuleSpec
		if bOK {
			bModules = b.Modules
		}
		if aOK {
			aModules = a.Modules
		}
		entries = append(entries, diffModules(flowName, stageName, expLayer, expVariant, bModules, aModules)...)
	}
	return entries
}

func diffModules(flowName, stageName, expLayer, expVariant string, before, after []ModuleSpec) []DiffEntry {
	var entries []DiffEntry
	beforeByID := make(map[string]ModuleSpec)
	for _, m := range before {
		beforeByID[m.ID] = m
	}
	afterByID := make(map[string]ModuleSpec)
	for _, m := range after {
		afterByID[m.ID] = m
	}

	for id, b := range beforeByID {
		a, ok := afterByID[id]
		if !ok {
			entries = append(entries, DiffEntry{Flow: flowName, Stage: stageName, ModuleID: id, Kind: DiffRemoved,
				ExperimentLayer: expLayer, ExperimentVariant: expVariant, Before: b})
			continue
		}
		if b.Use != a.Use {
			entries = append(entries, DiffEntry{Flow: flowName, Stage: stageName, ModuleID: id, Kind: DiffUseChanged,
				Path: "use", ExperimentLayer: expLayer, ExperimentVariant: expVariant, Before: b.Use, After: a.Use})
		}
		entries = append(entries, diffScalarField(flowName, stageName, id, expLayer, expVariant, "priority", ptrToAny(b.Priority), ptrToAny(a.Priority))...)
		entries = append(entries, diffScalarField(flowName, stageName, id, expLayer, expVariant, "enabled", ptrToAny(b.Enabled), ptrToAny(a.Enabled))...)
		entries = append(entries, diffScalarField(flowName, stageName, id, expLayer, expVariant, "limitKey", b.LimitKey, a.LimitKey)...)
		entries = append(entries, diffScalarField(flowName, stageName, id, expLayer, expVariant, "memoKey", b.MemoKey, a.MemoKey)...)
	}
	for id, a := range afterByID {
		if _, ok := beforeByID[id]; ok {
			continue
		}
		entries = append(entries, DiffEntry{Flow: flowName, Stage: stageName, ModuleID: id, Kind: DiffAdded,
			ExperimentLayer: expLayer, ExperimentVariant: expVariant, After: a})
	}
	return entries
}

func diffScalarField(flowName, stageName, moduleID, expLayer, expVariant, path string, before, after any) []DiffEntry {
	if before == after {
		return nil
	}
	if bs, ok := before.(string); ok {
		if as, ok2 := after.(string); ok2 && bs == "" && as == "" {
			return nil
		}
	}
	return []DiffEntry{{
		Flow: flowName, Stage: stageName, ModuleID: moduleID, Kind: DiffFieldChanged,
		Path: path, ExperimentLayer: expLayer, ExperimentVariant: expVariant, Before: before, After: after,
	}}
}

func ptrToAny[T comparable](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func unionKeys(a, b map[string]FlowPatch) []string {
	seen := make(map[string]struct{})
	var keys []string
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func unionKeysStagePatch(a, b map[string]StagePatch) []string {
	seen := make(map[string]struct{})
	var keys []string
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
