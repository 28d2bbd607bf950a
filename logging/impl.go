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

type (
	impl struct {
		name  string
		level AtomicLevel
		inUTC bool
		// fields are attached to every entry written through this logger.
		fields []zapcore.Field

		appenders []Appender
	}

	// LogEntry embeds a zapcore Entry and slice of Fields.
	LogEntry struct {
		zapcore.Entry
		fields []zapcore.Field
	}
)

func (imp *impl) newEntry(logLevel Level, msg string) *LogEntry {
	ret := &LogEntry{}
	ret.Time = time.Now()
	ret.Level = logLevel.AsZap()
	ret.LoggerName = imp.name
	ret.Caller = getCaller()
	ret.Message = msg
	ret.fields = imp.fields

	return ret
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
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
		fields:    imp.fields,
		appenders: imp.appenders,
	}
}

func (imp *impl) WithFields(keysAndValues ...interface{}) Logger {
	fields := make([]zapcore.Field, 0, len(imp.fields)+len(keysAndValues)/2)
	fields = append(fields, imp.fields...)
	fields = append(fields, toFields(keysAndValues)...)
	return &impl{
		name:      imp.name,
		level:     imp.level,
		inUTC:     imp.inUTC,
		fields:    fields,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var errs []error
	for _, appender := range imp.appenders {
		if err := appender.Sync(); err != nil {
			errs = append(errs, err)
		}
	}

	return multierr.Combine(errs...)
}

func (imp *impl) shouldLog(logLevel Level) bool {
	return logLevel >= imp.level.Get()
}

func (imp *impl) log(entry *LogEntry) {
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}

	for _, appender := range imp.appenders {
		err := appender.Write(entry.Entry, entry.fields)
		if err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

func (imp *impl) withPairs(entry *LogEntry, keysAndValues []interface{}) *LogEntry {
	if len(keysAndValues) > 0 {
		fields := make([]zapcore.Field, 0, len(entry.fields)+len(keysAndValues)/2)
		fields = append(fields, entry.fields...)
		entry.fields = append(fields, toFields(keysAndValues)...)
	}
	return entry
}

// toFields turns `keysAndValues` into a list of fields where the odd elements are the keys and
// their following even counterpart is the value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2)
	for keyIdx := 0; keyIdx < len(keysAndValues); keyIdx += 2 {
		keyObj := keysAndValues[keyIdx]
		var keyStr string
		if stringer, ok := keyObj.(fmt.Stringer); ok {
			keyStr = stringer.String()
		} else {
			keyStr = fmt.Sprintf("%v", keyObj)
		}

		if keyIdx+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(keyStr, keysAndValues[keyIdx+1]))
		} else {
			// a dangling key still shows up rather than being dropped
			fields = append(fields, zap.Any(keyStr, errors.New("unpaired log key")))
		}
	}
	return fields
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(DEBUG) {
		imp.log(imp.withPairs(imp.newEntry(DEBUG, msg), keysAndValues))
	}
}

func (imp *impl) Info(args ...interface{}) {
	if imp.shouldLog(INFO) {
		imp.log(imp.newEntry(INFO, fmt.Sprint(args...)))
	}
}

func (imp *impl) Infof(template string, args ...interface{}) {
	if imp.shouldLog(INFO) {
		imp.log(imp.newEntry(INFO, fmt.Sprintf(template, args...)))
	}
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(INFO) {
		imp.log(imp.withPairs(imp.newEntry(INFO, msg), keysAndValues))
	}
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(WARN) {
		imp.log(imp.withPairs(imp.newEntry(WARN, msg), keysAndValues))
	}
}

// Return example: "logging/impl_test.go:36". `entryCaller` is an outParameter.
func getCaller() zapcore.EntryCaller {
	var ok bool
	var entryCaller zapcore.EntryCaller
	const skipToLogCaller = 3
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true

	runtimeFunc := runtime.FuncForPC(entryCaller.PC)
	if runtimeFunc != nil {
		entryCaller.Function = runtimeFunc.Name()
	}

	return entryCaller
}
