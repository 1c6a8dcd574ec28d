package logger

import "context"

// NopLogger discards all log entries. Useful for one-shot CLI invocations
// where structured output must stay clean.
type NopLogger struct{}

// NewNopLogger creates a logger that discards everything.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {}

func (l *NopLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {}

func (l *NopLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {}

func (l *NopLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {}

func (l *NopLogger) WithField(key string, value interface{}) Logger { return l }

func (l *NopLogger) WithFields(fields map[string]interface{}) Logger { return l }
