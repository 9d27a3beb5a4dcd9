package browsecache

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is the logging interface used throughout the cache. Implementations
// must be safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a logging field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// LogLevel controls which messages a DefaultLogger emits.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// DefaultLogger writes structured lines via the standard log package.
type DefaultLogger struct {
	level  LogLevel
	logger *log.Logger
}

// NewDefaultLogger creates a logger writing to stderr at the given level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		level:  level,
		logger: log.New(os.Stderr, "[BROWSECACHE] ", log.LstdFlags),
	}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.logAt(LogLevelDebug, "DEBUG", msg, fields) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.logAt(LogLevelInfo, "INFO", msg, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.logAt(LogLevelWarn, "WARN", msg, fields) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.logAt(LogLevelError, "ERROR", msg, fields) }

func (l *DefaultLogger) logAt(level LogLevel, tag, msg string, fields []Field) {
	if level < l.level {
		return
	}
	if len(fields) == 0 {
		l.logger.Printf("%s %s", tag, msg)
		return
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", f.Key, f.Value)
	}
	l.logger.Printf("%s %s %s", tag, msg, b.String())
}

// NewLoggingHooks returns hooks that log every cache event through the
// given logger. Useful for debugging cache behavior in development.
func NewLoggingHooks(logger Logger) *Hooks {
	h := NewHooks()
	h.AddOnHit(func(key string) {
		logger.Debug("cache hit", F("key", key))
	})
	h.AddOnMiss(func(key string) {
		logger.Debug("cache miss", F("key", key))
	})
	h.AddOnEvict(func(key string, reason EvictReason) {
		logger.Debug("cache evict", F("key", key), F("reason", reason))
	})
	h.AddOnInvalidate(func(pattern string, removed int) {
		logger.Debug("cache invalidate", F("pattern", pattern), F("removed", removed))
	})
	h.AddOnFault(func(kind FaultKind, key string, err error) {
		logger.Debug("cache fault", F("kind", kind.String()), F("key", key), F("error", err))
	})
	return h
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, fields ...Field) {}
func (NoOpLogger) Info(msg string, fields ...Field)  {}
func (NoOpLogger) Warn(msg string, fields ...Field)  {}
func (NoOpLogger) Error(msg string, fields ...Field) {}

var _ Logger = (*DefaultLogger)(nil)
var _ Logger = NoOpLogger{}
