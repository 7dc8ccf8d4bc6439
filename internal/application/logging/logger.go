package logging

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// Logger provides structured logging for intelligence operations
type Logger interface {
	Log(level, message string, metadata map[string]interface{})
}

// Context keys for passing logger through context
type contextKey int

const (
	loggerKey contextKey = iota
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, or returns a no-op
// logger if not found
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// noOpLogger is a logger that does nothing (fallback when no logger in context)
type noOpLogger struct{}

func (l *noOpLogger) Log(level, message string, metadata map[string]interface{}) {
	// Do nothing
}

// StdLogger writes through the standard log package with sorted key=value
// metadata so lines stay stable and grep-able
type StdLogger struct {
	logger *log.Logger
}

// NewStdLogger creates a logger that writes to the given standard logger.
// Passing nil uses the default standard logger.
func NewStdLogger(logger *log.Logger) *StdLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &StdLogger{logger: logger}
}

func (l *StdLogger) Log(level, message string, metadata map[string]interface{}) {
	if len(metadata) == 0 {
		l.logger.Printf("[%s] %s", level, message)
		return
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	line := fmt.Sprintf("[%s] %s", level, message)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, metadata[k])
	}
	l.logger.Print(line)
}
