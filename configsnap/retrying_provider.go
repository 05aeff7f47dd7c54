package configsnap

import (
	"context"

	"github.com/WAcry/ROrchestrator-sub004/resilience"
)

// RetryingConfigProvider wraps a ConfigProvider that can fail transiently
// (a remote config fetch, typically) with exponential backoff and, when a
// circuit breaker is supplied, breaker-gated retry. It sits underneath
// LKGProvider: LKGProvider absorbs persistent failures into last-known-good,
// this wrapper absorbs transient ones before LKGProvider ever sees them.
type RetryingConfigProvider struct {
	inner  ConfigProvider
	config *resilience.RetryConfig
	cb     *resilience.CircuitBreaker
}

// NewRetryingConfigProvider wraps inner with the given retry policy. A nil
// config falls back to resilience.DefaultRetryConfig.
func NewRetryingConfigProvider(inner ConfigProvider, config *resilience.RetryConfig) *RetryingConfigProvider {
	if config == nil {
		config = resilience.DefaultRetryConfig()
	}
	return &RetryingConfigProvider{inner: inner, config: config}
}

// WithCircuitBreaker gates retries through cb, short-circuiting the fetch
// once the breaker opens instead of burning the full retry budget on a
// backend that is already known to be down.
func (p *RetryingConfigProvider) WithCircuitBreaker(cb *resilience.CircuitBreaker) *RetryingConfigProvider {
	p.cb = cb
	return p
}

func (p *RetryingConfigProvider) GetSnapshot(ctx context.Context, flowName string) (Snapshot, error) {
	var result Snapshot
	fetch := func() error {
		snap, err := p.inner.GetSnapshot(ctx, flowName)
		if err != nil {
			return err
		}
		result = snap
		return nil
	}

	var err error
	if p.cb != nil {
		err = resilience.RetryWithCircuitBreaker(ctx, p.config, p.cb, fetch)
	} else {
		err = resilience.Retry(ctx, p.config, fetch)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return result, nil
}

var _ ConfigProvider = (*RetryingConfigProvider)(nil)
