// Package logging contains the structured loggers used throughout fieldnav.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the logging interface handed to every component. Its methods follow the sugared zap
// naming: a `w` suffix takes key-value pairs and an `f` suffix a format template.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warnw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger whose name is this logger's name with `subname` appended.
	Sublogger(subname string) Logger
	// WithFields returns a logger that attaches the given key-value pairs to every entry.
	WithFields(keysAndValues ...interface{}) Logger
	SetLevel(level Level)
	AddAppender(appender Appender)
	Sync() error
}

// NewLogger returns a new logger that outputs Info+ logs to stdout in UTC.
func NewLogger(name string) Logger {
	const inUTC = true
	return &impl{name: name, level: NewAtomicLevelAt(INFO), inUTC: inUTC, appenders: []Appender{NewStdoutAppender()}}
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout in UTC.
func NewDebugLogger(name string) Logger {
	const inUTC = true
	return &impl{name: name, level: NewAtomicLevelAt(DEBUG), inUTC: inUTC, appenders: []Appender{NewStdoutAppender()}}
}

// NewBlankLogger returns a new logger that outputs Debug+ logs in UTC, but without any
// pre-existing appenders/outputs.
func NewBlankLogger(name string) Logger {
	const inUTC = true
	return &impl{name: name, level: NewAtomicLevelAt(DEBUG), inUTC: inUTC}
}

// NewTestLogger returns a new logger that outputs Debug+ logs to the test object in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	const inUTC = false
	logger := &impl{level: NewAtomicLevelAt(DEBUG), inUTC: inUTC}
	logger.AddAppender(NewTestAppender(tb))

	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger.AddAppender(observerCore)

	return logger, observedLogs
}
