package configsnap

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/WAcry/ROrchestrator-sub004/core"
)

// lkgMetrics is the narrow surface the LKG wrapper needs from telemetry,
// mirroring the MetricsCollector-as-dependency pattern used elsewhere in the
// resilience layer so configsnap never imports a concrete metrics backend.
type lkgMetrics interface {
	RecordLKGFallback(flowName string)
}

type noopLKGMetrics struct{}

func (noopLKGMetrics) RecordLKGFallback(string) {}

// LKGProvider wraps an inner ConfigProvider with last-known-good fallback.
// On each GetSnapshot call: if the inner snapshot's ConfigVersion matches the
// cached good version, the cached snapshot is returned without revalidation.
// Otherwise the candidate is validated; a valid candidate is atomically
// adopted as the new good snapshot, an invalid one falls back to the last
// good snapshot tagged with LKG evidence. If no good snapshot has ever been
// cached and the first candidate is invalid, the validation error propagates
// as a fatal configuration error wrapping core.ErrConfigUnavailable.
type LKGProvider struct {
	inner     ConfigProvider
	validator ConfigValidator
	logger    core.Logger
	metrics   lkgMetrics

	good atomic.Pointer[Snapshot]
}

// NewLKGProvider wraps inner with LKG fallback governed by validator.
func NewLKGProvider(inner ConfigProvider, validator ConfigValidator, logger core.Logger, metrics lkgMetrics) *LKGProvider {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if metrics == nil {
		metrics = noopLKGMetrics{}
	}
	return &LKGProvider{inner: inner, validator: validator, logger: logger, metrics: metrics}
}

func (p *LKGProvider) GetSnapshot(ctx context.Context, flowName string) (Snapshot, error) {
	candidate, err := p.inner.GetSnapshot(ctx, flowName)
	if err != nil {
		if good := p.good.Load(); good != nil {
			return p.fallbackSnapshot(flowName, *good, 0), nil
		}
		return Snapshot{}, core.NewError("configsnap.GetSnapshot", "config", fmt.Errorf("%w: %w", core.ErrConfigUnavailable, err)).WithID(flowName)
	}

	if good := p.good.Load(); good != nil && good.ConfigVersion == candidate.ConfigVersion {
		return *good, nil
	}

	if err := p.validator.Validate(candidate); err != nil {
		good := p.good.Load()
		if good == nil {
			return Snapshot{}, core.NewError("configsnap.GetSnapshot", "config", fmt.Errorf("%w: %w", core.ErrConfigUnavailable, err)).
				WithID(flowName).
				WithMessage("no last-known-good snapshot available")
		}
		p.logger.Warn("config candidate failed validation, serving last-known-good", map[string]interface{}{
			"flow":              flowName,
			"candidate_version": candidate.ConfigVersion,
			"last_good_version": good.ConfigVersion,
			"error":             err.Error(),
		})
		p.metrics.RecordLKGFallback(flowName)
		return p.fallbackSnapshot(flowName, *good, candidate.ConfigVersion), nil
	}

	candidate.Meta.Source = SourceStatic
	p.good.Store(&candidate)
	return candidate, nil
}

func (p *LKGProvider) fallbackSnapshot(flowName string, good Snapshot, candidateVersion uint64) Snapshot {
	good.Meta.Source = SourceLKG
	good.Meta.LKG = &LKGEvidence{
		Fallback:               true,
		LastGoodConfigVersion:  good.ConfigVersion,
		CandidateConfigVersion: candidateVersion,
	}
	return good
}

var _ ConfigProvider = (*LKGProvider)(nil)
