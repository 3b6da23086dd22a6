package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled logger handed to every arcnav component.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>" that shares this logger's appenders.
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	SetLevel(level Level)
	GetLevel() Level
	Sync() error
}

type (
	impl struct {
		name  string
		level AtomicLevel
		inUTC bool

		appenders []Appender
	}

	// LogEntry embeds a zapcore Entry and slice of Fields.
	LogEntry struct {
		zapcore.Entry
		fields []zapcore.Field
	}
)

func (imp *impl) NewLogEntry() *LogEntry {
	ret := &LogEntry{}
	ret.Time = time.Now()
	ret.LoggerName = imp.name
	ret.Caller = getCaller()

	return ret
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) shouldLog(logLevel Level) bool {
	return logLevel >= imp.level.Get()
}

// log hands the entry to every appender. Appender failures go to stderr since there is
// nowhere else to report them.
func (imp *impl) log(entry *LogEntry) {
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	for _, appender := range imp.appenders {
		if err := appender.Write(entry.Entry, entry.fields); err != nil {
			fmt.Fprintln(os.Stderr, "log appender:", err)
		}
	}
}

// emit builds and writes one entry when level is enabled. fill sets the message and fields.
func (imp *impl) emit(level Level, fill func(entry *LogEntry)) {
	if !imp.shouldLog(level) {
		return
	}
	entry := imp.NewLogEntry()
	entry.Level = level.AsZap()
	fill(entry)
	imp.log(entry)
}

func sprint(args []interface{}) func(*LogEntry) {
	return func(e *LogEntry) { e.Message = fmt.Sprint(args...) }
}

func sprintf(template string, args []interface{}) func(*LogEntry) {
	return func(e *LogEntry) { e.Message = fmt.Sprintf(template, args...) }
}

// withFields pairs up keysAndValues as zap fields. A trailing key without a value is kept
// with an error as its value.
func withFields(msg string, keysAndValues []interface{}) func(*LogEntry) {
	return func(e *LogEntry) {
		e.Message = msg
		e.fields = make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
		for i := 0; i < len(keysAndValues); i += 2 {
			key := fmt.Sprint(keysAndValues[i])
			if i+1 == len(keysAndValues) {
				e.fields = append(e.fields, zap.Any(key, errors.New("unpaired log key")))
				break
			}
			e.fields = append(e.fields, zap.Any(key, keysAndValues[i+1]))
		}
	}
}

func (imp *impl) Debug(args ...interface{}) { imp.emit(DEBUG, sprint(args)) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.emit(DEBUG, sprintf(template, args))
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.emit(DEBUG, withFields(msg, keysAndValues))
}

func (imp *impl) Info(args ...interface{}) { imp.emit(INFO, sprint(args)) }

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.emit(INFO, sprintf(template, args))
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.emit(INFO, withFields(msg, keysAndValues))
}

func (imp *impl) Warn(args ...interface{}) { imp.emit(WARN, sprint(args)) }

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.emit(WARN, sprintf(template, args))
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.emit(WARN, withFields(msg, keysAndValues))
}

func (imp *impl) Error(args ...interface{}) { imp.emit(ERROR, sprint(args)) }

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.emit(ERROR, sprintf(template, args))
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.emit(ERROR, withFields(msg, keysAndValues))
}

// getCaller reports the code that called one of the Logger methods, e.g.
// "planner/planner.go:120". Frames: getCaller, NewLogEntry, emit, the Logger method, caller.
func getCaller() zapcore.EntryCaller {
	const skip = 4
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
