package logger

import (
	"context"

	"github.com/WAcry/ROrchestrator-sub004/core"
)

// CoreAdapter wraps a Logger so it satisfies core.ComponentAwareLogger,
// letting cmd/rorchestratorctl bootstrap a single SimpleLogger and hand it to
// every core-facing component (FlowHost, providers, the execution engine)
// instead of keeping two unrelated logging backends alive side by side.
type CoreAdapter struct {
	backend   Logger
	component string
}

// NewCoreAdapter wraps backend for use as a core.ComponentAwareLogger. A nil
// backend is replaced by NewDefaultLogger().
func NewCoreAdapter(backend Logger) *CoreAdapter {
	if backend == nil {
		backend = NewDefaultLogger()
	}
	return &CoreAdapter{backend: backend}
}

// WithComponent returns an adapter whose entries are tagged with component,
// mirroring core.ComponentLogger's per-subsystem specialization.
func (a *CoreAdapter) WithComponent(component string) core.Logger {
	return &CoreAdapter{backend: a.backend, component: component}
}

func (a *CoreAdapter) fieldArgs(fields map[string]interface{}) []interface{} {
	args := make([]interface{}, 0, len(fields)+2)
	if a.component != "" {
		args = append(args, Field{Key: "component", Value: a.component})
	}
	for k, v := range fields {
		args = append(args, Field{Key: k, Value: v})
	}
	return args
}

func (a *CoreAdapter) Info(msg string, fields map[string]interface{}) {
	a.backend.Info(msg, a.fieldArgs(fields)...)
}

func (a *CoreAdapter) Error(msg string, fields map[string]interface{}) {
	a.backend.Error(msg, a.fieldArgs(fields)...)
}

func (a *CoreAdapter) Warn(msg string, fields map[string]interface{}) {
	a.backend.Warn(msg, a.fieldArgs(fields)...)
}

func (a *CoreAdapter) Debug(msg string, fields map[string]interface{}) {
	a.backend.Debug(msg, a.fieldArgs(fields)...)
}

func (a *CoreAdapter) withRequestID(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	id, ok := core.RequestIDFromContext(ctx)
	if !ok {
		return fields
	}
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["request_id"] = id
	return out
}

func (a *CoreAdapter) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	a.Info(msg, a.withRequestID(ctx, fields))
}

func (a *CoreAdapter) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	a.Error(msg, a.withRequestID(ctx, fields))
}

func (a *CoreAdapter) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	a.Warn(msg, a.withRequestID(ctx, fields))
}

func (a *CoreAdapter) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	a.Debug(msg, a.withRequestID(ctx, fields))
}

var _ core.ComponentAwareLogger = (*CoreAdapter)(nil)
