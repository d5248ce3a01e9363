package logging

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the interface to our internal logger.
type Logger interface {
	Debug(msg string, kvpairs ...interface{})
	Info(msg string, kvpairs ...interface{})
	Error(msg string, kvpairs ...interface{})
	SetField(key string, val interface{})
	With(kvpairs ...interface{}) Logger
}

// LogrusLogger is a thread-safe logger whose fields persist between calls.
type LogrusLogger struct {
	mtx    sync.Mutex
	logger *logrus.Entry
	fields map[string]interface{}
}

// NoopLogger implements Logger, but does nothing.
type NoopLogger struct{}

var _ Logger = (*LogrusLogger)(nil)
var _ Logger = (*NoopLogger)(nil)

//
// LogrusLogger
//

// NewLogrusLogger will instantiate a logger with the given context. Every line
// it emits carries the context as its "ctx" field, which is how lines from
// different workers are told apart.
func NewLogrusLogger(ctx string, kvpairs ...interface{}) Logger {
	var logger *logrus.Entry
	if len(ctx) > 0 {
		logger = logrus.WithField("ctx", ctx)
	} else {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogrusLogger{
		logger: logger,
		fields: serializeKVPairs(kvpairs...),
	}
}

func serializeKVPairs(kvpairs ...interface{}) map[string]interface{} {
	res := make(map[string]interface{})
	if (len(kvpairs) % 2) == 0 {
		for i := 0; i < len(kvpairs); i += 2 {
			key, ok := kvpairs[i].(string)
			if !ok {
				continue
			}
			res[key] = kvpairs[i+1]
		}
	}
	return res
}

func (l *LogrusLogger) withKVPairs(kvpairs ...interface{}) *logrus.Entry {
	entry := l.logger
	if len(l.fields) > 0 {
		entry = entry.WithFields(l.fields)
	}
	if fields := serializeKVPairs(kvpairs...); len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return entry
}

func (l *LogrusLogger) Debug(msg string, kvpairs ...interface{}) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.withKVPairs(kvpairs...).Debugln(msg)
}

func (l *LogrusLogger) Info(msg string, kvpairs ...interface{}) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.withKVPairs(kvpairs...).Infoln(msg)
}

func (l *LogrusLogger) Error(msg string, kvpairs ...interface{}) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.withKVPairs(kvpairs...).Errorln(msg)
}

func (l *LogrusLogger) SetField(key string, val interface{}) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.fields[key] = val
}

// With returns a child logger carrying this logger's fields plus the given
// key/value pairs. The parent is left untouched.
func (l *LogrusLogger) With(kvpairs ...interface{}) Logger {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range serializeKVPairs(kvpairs...) {
		fields[k] = v
	}
	return &LogrusLogger{
		logger: l.logger,
		fields: fields,
	}
}

//
// NoopLogger
//

// NewNoopLogger will instantiate a logger that does nothing when called.
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, kvpairs ...interface{}) {}
func (l *NoopLogger) Info(msg string, kvpairs ...interface{})  {}
func (l *NoopLogger) Error(msg string, kvpairs ...interface{}) {}
func (l *NoopLogger) SetField(key string, val interface{})     {}
func (l *NoopLogger) With(kvpairs ...interface{}) Logger       { return l }
