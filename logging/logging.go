// Package logging contains the leveled, structured logger used across arcnav.
package logging

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// DefaultTimeFormatStr is the time layout every appender prints.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("arcnav")
)

// ReplaceGlobal installs the logger Global hands out, normally once the CLI has parsed its
// log flags.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// Global returns the process wide logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// newImpl builds a named logger writing to appenders from level up. Timestamps are UTC unless
// local is set.
func newImpl(name string, level Level, local bool, appenders ...Appender) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: !local, appenders: appenders}
}

// NewLogger logs info and above to stdout.
func NewLogger(name string) Logger {
	return newImpl(name, INFO, false, NewStdoutAppender())
}

// NewDebugLogger logs everything to stdout.
func NewDebugLogger(name string) Logger {
	return newImpl(name, DEBUG, false, NewStdoutAppender())
}

// NewBlankLogger logs everything but has nowhere to write until an appender is added.
func NewBlankLogger(name string) Logger {
	return newImpl(name, DEBUG, false)
}

// NewTestLogger writes to tb's log with local timestamps.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is NewTestLogger that also records every entry, so tests can assert on
// what was logged.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return newImpl("", DEBUG, true, NewTestAppender(tb), core), logs
}
