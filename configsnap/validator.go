package configsnap

import (
	"github.com/WAcry/ROrchestrator-sub004/blueprint"
	"github.com/WAcry/ROrchestrator-sub004/patch"
)

// ConfigValidator checks a raw patch document for structural validity
// before the LKG wrapper will adopt it as the new last-known-good snapshot.
type ConfigValidator interface {
	Validate(snapshot Snapshot) error
}

// BlueprintValidator validates a snapshot's patch JSON by parsing it and
// running it through patch.Validate against a fixed set of registered flow
// blueprints. A finding at SeverityError fails validation; warnings and
// info findings do not.
type BlueprintValidator struct {
	cache          *patch.DocumentCache
	blueprints     map[string]*blueprint.Blueprint
	typeRegistered patch.ModuleTypeChecker
}

// NewBlueprintValidator builds a validator over the given flow blueprints.
// typeRegistered reports whether a module type name is registered in the
// catalog; pass nil to skip that check (useful before the catalog is fully
// populated, e.g. during early bootstrap).
func NewBlueprintValidator(blueprints map[string]*blueprint.Blueprint, typeRegistered patch.ModuleTypeChecker) *BlueprintValidator {
	return &BlueprintValidator{
		cache:          patch.NewDocumentCache(),
		blueprints:     blueprints,
		typeRegistered: typeRegistered,
	}
}

func (v *BlueprintValidator) Validate(snapshot Snapshot) error {
	raw := []byte(snapshot.PatchJSON)
	doc, err := v.cache.Parse(raw, snapshot.ConfigVersion)
	if err != nil {
		return err
	}

	for flowName, bp := range v.blueprints {
		report := patch.Validate(raw, doc, bp, flowName, v.typeRegistered)
		if !report.IsValid() {
			return &ValidationError{FlowName: flowName, Report: report}
		}
	}
	return nil
}

var _ ConfigValidator = (*BlueprintValidator)(nil)

// ValidationError wraps a failing Report with the flow it failed against.
type ValidationError struct {
	FlowName string
	Report   *patch.Report
}

func (e *ValidationError) Error() string {
	msg := "configuration invalid for flow " + e.FlowName
	for _, f := range e.Report.Findings {
		if f.Severity == patch.SeverityError {
			return msg + ": " + f.Code + " at " + f.Path + ": " + f.Message
		}
	}
	return msg
}
