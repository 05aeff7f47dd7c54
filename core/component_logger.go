package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// ComponentLogger is a JSON structured logger implementing ComponentAwareLogger.
// It is the production counterpart to NoOpLogger: every entry carries a
// timestamp, level, component, message and the caller's fields, one JSON
// object per line.
type ComponentLogger struct {
	component string
	level     string
	out       *log.Logger
}

// NewComponentLogger creates a ComponentLogger writing to stderr at the given
// minimum level ("debug", "info", "warn", "error"; defaults to "info").
func NewComponentLogger(level string) *ComponentLogger {
	if level == "" {
		level = "info"
	}
	return &ComponentLogger{
		level: level,
		out:   log.New(os.Stderr, "", 0),
	}
}

func (c *ComponentLogger) WithComponent(component string) Logger {
	return &ComponentLogger{component: component, level: c.level, out: c.out}
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func (c *ComponentLogger) enabled(level string) bool {
	return levelRank[level] >= levelRank[c.level]
}

func (c *ComponentLogger) emit(ctx context.Context, level, msg string, fields map[string]interface{}) {
	if !c.enabled(level) {
		return
	}
	entry := map[string]interface{}{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"component": c.component,
		"msg":       msg,
	}
	for k, v := range fields {
		entry[k] = v
	}
	if ctx != nil {
		if rid, ok := ctx.Value(requestIDKey{}).(string); ok && rid != "" {
			entry["request_id"] = rid
		}
	}
	b, err := json.Marshal(entry)
	if err != nil {
		c.out.Println(fmt.Sprintf(`{"level":"error","msg":"log marshal failed: %v"}`, err))
		return
	}
	c.out.Println(string(b))
}

// requestIDKey is the context key ComponentLogger looks for to correlate log
// lines with a request. Callers that want correlation should store the
// request/flow ID under this key via WithRequestID.
type requestIDKey struct{}

// WithRequestID returns a context carrying the given request id for log
// correlation by ComponentLogger.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID, if
// any. Other Logger implementations (e.g. pkg/logger.CoreAdapter) use this
// to match ComponentLogger's correlation behavior.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func (c *ComponentLogger) Info(msg string, fields map[string]interface{})  { c.emit(nil, "info", msg, fields) }
func (c *ComponentLogger) Error(msg string, fields map[string]interface{}) { c.emit(nil, "error", msg, fields) }
func (c *ComponentLogger) Warn(msg string, fields map[string]interface{})  { c.emit(nil, "warn", msg, fields) }
func (c *ComponentLogger) Debug(msg string, fields map[string]interface{}) { c.emit(nil, "debug", msg, fields) }

func (c *ComponentLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.emit(ctx, "info", msg, fields)
}
func (c *ComponentLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.emit(ctx, "error", msg, fields)
}
func (c *ComponentLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.emit(ctx, "warn", msg, fields)
}
func (c *ComponentLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	c.emit(ctx, "debug", msg, fields)
}
