package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// SimpleLogger is a minimal line-oriented Logger: one "[LEVEL] msg k=v ..."
// line per call, no dependencies beyond the standard library. It is what
// cmd/rorchestratorctl bootstraps with before any request-scoped logging
// exists.
type SimpleLogger struct {
	level  LogLevel
	fields map[string]interface{}
}

// NewSimpleLogger returns a SimpleLogger at InfoLevel with no fields set.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		level:  InfoLevel,
		fields: make(map[string]interface{}),
	}
}

// NewDefaultLogger returns the package's default Logger implementation.
func NewDefaultLogger() Logger {
	return NewSimpleLogger()
}

func (l *SimpleLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= DebugLevel {
		l.log("DEBUG", msg, fields...)
	}
}

func (l *SimpleLogger) Info(msg string, fields ...interface{}) {
	if l.level <= InfoLevel {
		l.log("INFO", msg, fields...)
	}
}

func (l *SimpleLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= WarnLevel {
		l.log("WARN", msg, fields...)
	}
}

func (l *SimpleLogger) Error(msg string, fields ...interface{}) {
	if l.level <= ErrorLevel {
		l.log("ERROR", msg, fields...)
	}
}

// SetLevel sets the minimum emitted severity. An unrecognized level is
// ignored, leaving the current level in place.
func (l *SimpleLogger) SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		l.level = DebugLevel
	case "INFO":
		l.level = InfoLevel
	case "WARN", "WARNING":
		l.level = WarnLevel
	case "ERROR":
		l.level = ErrorLevel
	}
}

func (l *SimpleLogger) WithField(key string, value interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value
	return &SimpleLogger{level: l.level, fields: newFields}
}

func (l *SimpleLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &SimpleLogger{level: l.level, fields: newFields}
}

func (l *SimpleLogger) With(fields ...Field) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for _, f := range fields {
		newFields[f.Key] = f.Value
	}
	return &SimpleLogger{level: l.level, fields: newFields}
}

func (l *SimpleLogger) log(level, msg string, fields ...interface{}) {
	parts := make([]string, 0, 2+len(l.fields)+len(fields)/2)
	parts = append(parts, fmt.Sprintf("[%s]", level))
	parts = append(parts, msg)

	for k, v := range l.fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	for i := 0; i < len(fields); {
		if f, ok := fields[i].(Field); ok {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
			i++
			continue
		}
		if i+1 < len(fields) {
			parts = append(parts, fmt.Sprintf("%v=%v", fields[i], fields[i+1]))
			i += 2
			continue
		}
		i++
	}

	log.Println(strings.Join(parts, " "))
}

// LevelFromEnv reads RORCH_LOG_LEVEL, defaulting to "info" when unset.
func LevelFromEnv() string {
	level := os.Getenv("RORCH_LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
