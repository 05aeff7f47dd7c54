/*
Package telemetry provides production-grade observability for the GoMind framework.

Architecture Overview:

The telemetry package is designed with a three-layer architecture:

1. Simple API Layer - Developer-facing functions (Emit, Counter, Histogram, Gauge)
2. Registry Layer - Thread-safe global registry with lifecycle management
3. Provider Layer - OpenTelemetry integration for actual metric export

Thread Safety:

All public functions in this package are thread-safe and can be called
concurrently from multiple goroutines. The package uses several techniques
to ensure safety:
  - atomic.Value for lock-free reads of the global registry
  - sync.Once for one-time initialization
  - sync.Map for concurrent metric registration

Performance Considerations:

The package is optimized for high-throughput metric emission:
  - Lock-free fast path for metric emission
  - Bounded cardinality to prevent memory explosion
  - Circuit breaker that drops metrics while it is open

Design Principles:

1. Progressive Disclosure - Simple API with advanced features when needed
2. Fail-Safe - Telemetry failures never crash the application
3. Zero-Config - Works with sensible defaults out of the box
4. Production-Ready - Built-in protection against common issues

Usage:

Initialize once in main:

	telemetry.Initialize(telemetry.UseProfile(telemetry.ProfileDevelopment))
	defer telemetry.Shutdown(context.Background())

Then emit metrics from anywhere:

	telemetry.Counter("requests.total", "status", "success")
	telemetry.Histogram("latency.ms", 123.5, "endpoint", "/api")

EmitWithContext also takes a context; no context-scoped provider can be
installed, so it emits through the global registry exactly like Emit:

	telemetry.EmitWithContext(ctx, "payment.amount", 99.99)

Safety Features:

  - Cardinality Limiting: Prevents unbounded label combinations
  - Circuit Breaker: Drops metrics while open (when enabled). Emit reports a
    failure to it only for a metric the breaker itself rejected, and provider
    export errors are not reported to it, so it does not open on backend
    failures by itself
  - PII Redaction: Config carries PIIRedaction and PIIPatterns; no emission
    path reads them, so labels are not redacted
  - Rate Limiting: Prevents error log spam
  - Graceful Degradation: Continues operating even with failures

Configuration Profiles:

The package includes three pre-configured profiles:
  - ProfileDevelopment: sampling rate 1.0, circuit breaker off
  - ProfileStaging: sampling rate 0.1, circuit breaker on, PII redaction flag set
  - ProfileProduction: sampling rate 0.001, circuit breaker on, explicit
    per-label cardinality limits

A profile's SamplingRate is not applied by Emit; only EmitWithOptions with
WithSampleRate samples. Every profile gets per-label cardinality limits
(the registry's defaults when the profile sets none).
*/
package telemetry