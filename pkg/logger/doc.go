// Package logger provides the dependency-free structured logger used before
// any core component is wired up: a command bootstrapping, say,
// cmd/rorchestratorctl, has no FlowContext or ComponentLogger to reach for
// yet, so it starts here instead.
//
// # Logger interface
//
//	type Logger interface {
//	    Debug(msg string, fields ...interface{})
//	    Info(msg string, fields ...interface{})
//	    Warn(msg string, fields ...interface{})
//	    Error(msg string, fields ...interface{})
//	    SetLevel(level string)
//	    WithField(key string, value interface{}) Logger
//	    WithFields(fields map[string]interface{}) Logger
//	    With(fields ...Field) Logger
//	}
//
// Fields are passed as `Field{Key, Value}` varargs, or as loose key/value
// pairs — log() accepts either shape, matching however the caller already
// has the data.
//
// # Log levels
//
// In ascending severity: DebugLevel, InfoLevel, WarnLevel, ErrorLevel.
// SetLevel parses "debug"/"info"/"warn"/"warning"/"error" case-insensitively
// and leaves the current level untouched on anything else.
//
// # Child loggers
//
//	requestLog := log.With(logger.Field{Key: "request_id", Value: "abc-123"})
//	requestLog.Info("starting flow execution")
//
// # CoreAdapter
//
// Everything past the CLI bootstrap — FlowHost, providers, the execution
// engine — takes a core.Logger, not a logger.Logger: CoreAdapter wraps a
// Logger to satisfy core.ComponentAwareLogger, translating between the
// varargs-field call shape here and core.Logger's map[string]interface{}
// shape, and tagging entries by component via WithComponent. This lets a
// single SimpleLogger instance back both call shapes instead of cmd code
// assembling two independent logging stacks.
//
// # Configuration
//
//	RORCH_LOG_LEVEL: minimum level (debug, info, warn, error), read by
//	LevelFromEnv; defaults to "info" when unset.
package logger
