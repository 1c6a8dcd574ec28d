package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOutput configures an optional rotating log file alongside stdout.
type FileOutput struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// LogrusLogger wraps a logrus logger to implement the Logger interface.
type LogrusLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogrusLogger creates a new LogrusLogger with JSON formatter.
func NewLogrusLogger(level string) *LogrusLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Parse and set log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	return &LogrusLogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

// NewLogrusLoggerWithFile creates a LogrusLogger that writes to stdout and a
// rotating log file. Rotation is handled by lumberjack.
func NewLogrusLoggerWithFile(level string, file FileOutput) *LogrusLogger {
	l := NewLogrusLogger(level)
	if file.Path == "" {
		return l
	}

	rotator := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	}
	l.logger.SetOutput(io.MultiWriter(os.Stdout, rotator))

	return l
}

// Debug logs a debug-level message.
func (l *LogrusLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	if fields != nil {
		l.entry.WithFields(fields).Debug(msg)
	} else {
		l.entry.Debug(msg)
	}
}

// Info logs an info-level message.
func (l *LogrusLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	if fields != nil {
		l.entry.WithFields(fields).Info(msg)
	} else {
		l.entry.Info(msg)
	}
}

// Warn logs a warning-level message.
func (l *LogrusLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	if fields != nil {
		l.entry.WithFields(fields).Warn(msg)
	} else {
		l.entry.Warn(msg)
	}
}

// Error logs an error-level message.
func (l *LogrusLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	if fields != nil {
		l.entry.WithFields(fields).Error(msg)
	} else {
		l.entry.Error(msg)
	}
}

// WithField returns a new logger with the given field added.
func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

// WithFields returns a new logger with the given fields added.
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithFields(fields),
	}
}
