package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// BootstrapConfig holds the ambient, process-wide settings the core needs
// before it can run a single request: default deadlines, QoS tier fallback,
// bulkhead sizing, LKG grace, and logging/telemetry bootstrap. It follows
// the same three-layer precedence as the rest of the ambient stack:
// defaults, then environment variables (RORCH_* prefixed), then functional
// options (highest priority).
type BootstrapConfig struct {
	// DefaultDeadline is the configured default request deadline. It is
	// loaded and validated here only; NewFlowContext always takes an
	// explicit deadline and does not read it.
	DefaultDeadline time.Duration `env:"RORCH_DEFAULT_DEADLINE" default:"30s"`

	// DefaultQosTier is the configured fallback QoS tier. It is loaded and
	// validated here only; FlowHost does not read it and uses qos.DefaultTier
	// when no QosProvider is configured.
	DefaultQosTier string `env:"RORCH_DEFAULT_QOS_TIER" default:"full"`

	// DefaultBulkheadCapacity is the configured default bulkhead capacity
	// (zero meaning unbounded). It is loaded and validated here only; the
	// execution engine does not read it, and a limitKey with no configured
	// capacity runs without a bulkhead.
	DefaultBulkheadCapacity int `env:"RORCH_DEFAULT_BULKHEAD_CAPACITY" default:"0"`

	// LKGStaleAfter is the configured maximum age of a last-known-good
	// snapshot (zero meaning no bound). It is loaded here only;
	// LKGProvider does not consult it and serves its last-known-good
	// snapshot regardless of age.
	LKGStaleAfter time.Duration `env:"RORCH_LKG_STALE_AFTER" default:"0s"`

	// LogLevel sets the level of the ComponentLogger built by Logger().
	// LogFormat is loaded here only; ComponentLogger always writes JSON.
	LogLevel  string `env:"RORCH_LOG_LEVEL" default:"info"`
	LogFormat string `env:"RORCH_LOG_FORMAT" default:"json"`

	// TelemetryEndpoint is the configured OTLP endpoint. It is loaded here
	// only; no code outside this file reads it.
	TelemetryEndpoint string `env:"RORCH_TELEMETRY_ENDPOINT"`
	TelemetryInsecure bool   `env:"RORCH_TELEMETRY_INSECURE" default:"true"`
	ServiceName       string `env:"RORCH_SERVICE_NAME" default:"rorchestrator"`

	logger Logger
}

// Option configures a BootstrapConfig.
type Option func(*BootstrapConfig)

// WithDefaultDeadline overrides DefaultDeadline.
func WithDefaultDeadline(d time.Duration) Option {
	return func(c *BootstrapConfig) { c.DefaultDeadline = d }
}

// WithDefaultQosTier overrides DefaultQosTier.
func WithDefaultQosTier(tier string) Option {
	return func(c *BootstrapConfig) { c.DefaultQosTier = tier }
}

// WithDefaultBulkheadCapacity overrides DefaultBulkheadCapacity.
func WithDefaultBulkheadCapacity(n int) Option {
	return func(c *BootstrapConfig) { c.DefaultBulkheadCapacity = n }
}

// WithLKGStaleAfter overrides LKGStaleAfter.
func WithLKGStaleAfter(d time.Duration) Option {
	return func(c *BootstrapConfig) { c.LKGStaleAfter = d }
}

// WithLogLevel overrides LogLevel.
func WithLogLevel(level string) Option {
	return func(c *BootstrapConfig) { c.LogLevel = level }
}

// WithLogFormat overrides LogFormat.
func WithLogFormat(format string) Option {
	return func(c *BootstrapConfig) { c.LogFormat = format }
}

// WithTelemetryEndpoint overrides TelemetryEndpoint.
func WithTelemetryEndpoint(endpoint string) Option {
	return func(c *BootstrapConfig) { c.TelemetryEndpoint = endpoint }
}

// WithServiceName overrides ServiceName.
func WithServiceName(name string) Option {
	return func(c *BootstrapConfig) { c.ServiceName = name }
}

// WithLogger attaches a pre-built logger, bypassing LogLevel/LogFormat.
func WithLogger(logger Logger) Option {
	return func(c *BootstrapConfig) { c.logger = logger }
}

// defaultBootstrapConfig returns the struct-tag defaults without consulting
// the environment — used by LoadFromEnv as the starting point.
func defaultBootstrapConfig() *BootstrapConfig {
	return &BootstrapConfig{
		DefaultDeadline:         30 * time.Second,
		DefaultQosTier:          "full",
		DefaultBulkheadCapacity: 0,
		LKGStaleAfter:           0,
		LogLevel:                "info",
		LogFormat:                "json",
		TelemetryInsecure:       true,
		ServiceName:             "rorchestrator",
	}
}

// LoadFromEnv overlays environment variables onto the current values,
// following the RORCH_* naming convention recorded in each field's `env`
// struct tag above.
func (c *BootstrapConfig) LoadFromEnv() error {
	if v := os.Getenv("RORCH_DEFAULT_DEADLINE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RORCH_DEFAULT_DEADLINE: %w", err)
		}
		c.DefaultDeadline = d
	}
	if v := os.Getenv("RORCH_DEFAULT_QOS_TIER"); v != "" {
		c.DefaultQosTier = v
	}
	if v := os.Getenv("RORCH_DEFAULT_BULKHEAD_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RORCH_DEFAULT_BULKHEAD_CAPACITY: %w", err)
		}
		c.DefaultBulkheadCapacity = n
	}
	if v := os.Getenv("RORCH_LKG_STALE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RORCH_LKG_STALE_AFTER: %w", err)
		}
		c.LKGStaleAfter = d
	}
	if v := os.Getenv("RORCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("RORCH_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("RORCH_TELEMETRY_ENDPOINT"); v != "" {
		c.TelemetryEndpoint = v
	}
	if v := os.Getenv("RORCH_TELEMETRY_INSECURE"); v != "" {
		c.TelemetryInsecure = parseBool(v)
	}
	if v := os.Getenv("RORCH_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	return nil
}

// Validate checks the configuration for internally inconsistent values.
func (c *BootstrapConfig) Validate() error {
	if c.DefaultDeadline <= 0 {
		return fmt.Errorf("%w: RORCH_DEFAULT_DEADLINE must be positive", ErrInvalidConfiguration)
	}
	switch c.DefaultQosTier {
	case "full", "conserve", "emergency", "fallback":
	default:
		return fmt.Errorf("%w: unknown default QoS tier %q", ErrInvalidConfiguration, c.DefaultQosTier)
	}
	if c.DefaultBulkheadCapacity < 0 {
		return fmt.Errorf("%w: RORCH_DEFAULT_BULKHEAD_CAPACITY must be >= 0", ErrInvalidConfiguration)
	}
	return nil
}

// Logger returns the configured logger, defaulting to a ComponentLogger
// built from LogLevel when none was attached via WithLogger.
func (c *BootstrapConfig) Logger() Logger {
	if c.logger != nil {
		return c.logger
	}
	return NewComponentLogger(c.LogLevel)
}

// NewBootstrapConfig assembles a BootstrapConfig from defaults, then the
// environment, then the supplied options, validating the result.
func NewBootstrapConfig(opts ...Option) (*BootstrapConfig, error) {
	c := defaultBootstrapConfig()
	if err := c.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y":
		return true
	default:
		return false
	}
}
