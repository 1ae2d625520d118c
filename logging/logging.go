// Package logging wraps go.uber.org/zap with the level vocabulary and
// structured fields the scheduler needs for planning diagnostics, collision
// events, and tactic-ladder outcomes.
package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a planning-diagnostic log level.
type Level int

// Level values, ordered least to most severe.
const (
	Debug Level = iota
	Info
	Warn
	Error
)

// String renders l the way it appears in structured log output.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// LevelFromString parses a level name, case-insensitively.
func LevelFromString(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, errors.Errorf("logging: unrecognized level %q", s)
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the structured logger threaded through planning. It is a thin
// wrapper over *zap.SugaredLogger so call sites can attach the petal/stage/
// posid fields the scheduler's diagnostics need without importing zap
// directly everywhere.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New returns a Logger at the given minimum level, writing structured JSON
// to stderr — the teacher's standard production logging shape.
func New(minLevel Level) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(minLevel.zapLevel())
	zl, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "logging: building zap logger")
	}
	return &Logger{sugar: zl.Sugar()}, nil
}

// NewTest returns a Logger suitable for unit tests: unbuffered, human
// readable, and safe to construct repeatedly.
func NewTest() *Logger {
	zl := zap.Must(zap.NewDevelopment())
	return &Logger{sugar: zl.Sugar()}
}

// With returns a child logger with the given key/value pairs attached to
// every subsequent entry — used for "petal", "stage", "posid" context.
func (l *Logger) With(kvs ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(kvs...)}
}

// Debugw, Infow, Warnw, Errorw log a message with structured key/value
// pairs, mirroring zap's SugaredLogger idiom.
func (l *Logger) Debugw(msg string, kvs ...interface{}) { l.sugar.Debugw(msg, kvs...) }
func (l *Logger) Infow(msg string, kvs ...interface{})  { l.sugar.Infow(msg, kvs...) }
func (l *Logger) Warnw(msg string, kvs ...interface{})  { l.sugar.Warnw(msg, kvs...) }
func (l *Logger) Errorw(msg string, kvs ...interface{}) { l.sugar.Errorw(msg, kvs...) }

// Sync flushes any buffered log entries; callers should defer it at startup.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
