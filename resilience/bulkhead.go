package resilience

import (
	"context"
	"sync"

	"github.com/WAcry/ROrchestrator-sub004/core"
)

// BulkheadMetrics reports admission and rejection counts per limit key,
// following the same MetricsCollector-as-dependency shape as CircuitBreaker.
type BulkheadMetrics interface {
	RecordAdmitted(limitKey string)
	RecordRejected(limitKey string)
}

type noopBulkheadMetrics struct{}

func (noopBulkheadMetrics) RecordAdmitted(string) {}
func (noopBulkheadMetrics) RecordRejected(string) {}

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	// Logger for admission rejections.
	Logger core.Logger

	// Metrics collector for monitoring.
	Metrics BulkheadMetrics
}

// DefaultBulkheadConfig returns sensible no-op defaults.
func DefaultBulkheadConfig() *BulkheadConfig {
	return &BulkheadConfig{
		Logger:  &core.NoOpLogger{},
		Metrics: noopBulkheadMetrics{},
	}
}

// semaphore is a fixed-capacity counting semaphore for one limit key.
type semaphore struct {
	tokens chan struct{}
}

func newSemaphore(capacity int) *semaphore {
	return &semaphore{tokens: make(chan struct{}, capacity)}
}

// Bulkhead admits concurrent work under a per-key capacity limit, isolating
// one module's concurrency budget from another's the way a ship's bulkheads
// isolate flooding to one compartment. Capacities are declared lazily: the
// first Acquire for a limitKey fixes that key's capacity for the lifetime of
// the Bulkhead.
type Bulkhead struct {
	config *BulkheadConfig

	mu    sync.Mutex
	limbs map[string]*semaphore
}

// NewBulkhead creates a Bulkhead. A nil config uses DefaultBulkheadConfig.
func NewBulkhead(config *BulkheadConfig) *Bulkhead {
	if config == nil {
		config = DefaultBulkheadConfig()
	}
	if config.Logger == nil {
		config.Logger = &core.NoOpLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = noopBulkheadMetrics{}
	}
	return &Bulkhead{config: config, limbs: make(map[string]*semaphore)}
}

func (b *Bulkhead) limb(limitKey string, capacity int) *semaphore {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.limbs[limitKey]; ok {
		return s
	}
	s := newSemaphore(capacity)
	b.limbs[limitKey] = s
	return s
}

// Acquire admits one unit of concurrent work under limitKey, blocking until a
// slot is free, ctx is done, or ctx's deadline expires. On success it
// returns a release func that must be called exactly once to free the slot.
// On failure it returns core.ErrBulkheadTimeout wrapped with context, or the
// ctx error if ctx was already done.
func (b *Bulkhead) Acquire(ctx context.Context, limitKey string, capacity int) (func(), error) {
	s := b.limb(limitKey, capacity)

	select {
	case s.tokens <- struct{}{}:
		b.config.Metrics.RecordAdmitted(limitKey)
		released := false
		release := func() {
			if released {
				return
			}
			released = true
			<-s.tokens
		}
		return release, nil
	case <-ctx.Done():
		b.config.Metrics.RecordRejected(limitKey)
		b.config.Logger.Warn("bulkhead acquisition timed out", map[string]interface{}{
			"limit_key": limitKey,
			"capacity":  capacity,
		})
		return nil, core.NewError("resilience.Bulkhead.Acquire", "timeout", core.ErrBulkheadTimeout).WithID(limitKey)
	}
}

// InFlight returns the number of units currently admitted under limitKey.
func (b *Bulkhead) InFlight(limitKey string) int {
	b.mu.Lock()
	s, ok := b.limbs[limitKey]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	return len(s.tokens)
}
