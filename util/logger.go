// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// zap levels for the two rungs below Info.  zap only names one debug
// level, so Debug sits one step further down.
const (
	levelVerbose = zapcore.DebugLevel
	levelDebug   = zapcore.DebugLevel - 1
)

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  It is a thin printf-style face over a zap core.
type Logger struct {
	level      LogLevel
	output     io.Writer
	timestamps bool // if true, prepend wall-clock timestamps
	color      bool // colourise level prefixes

	mu     sync.Mutex
	fields []zap.Field
	zl     *zap.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
		color:      term.IsTerminal(int(os.Stderr.Fd())),
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).  Colour
// is disabled for anything that is not a terminal.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.color = false
	if f, ok := w.(*os.File); ok {
		l.color = term.IsTerminal(int(f.Fd()))
	}
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// With returns a child logger that attaches fields to every message.
func (l *Logger) With(fields ...zap.Field) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{
		level:      l.level,
		output:     l.output,
		timestamps: l.timestamps,
		color:      l.color,
		fields:     append(append([]zap.Field(nil), l.fields...), fields...),
	}
	child.rebuild()
	return child
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl
}

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	return l.Zap().Sync()
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(zapcore.InfoLevel, format, args...)
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(zapcore.WarnLevel, format, args...)
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.write(levelVerbose, format, args...)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(levelDebug, format, args...)
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(zapcore.ErrorLevel, format, args...)
}

func (l *Logger) write(lvl zapcore.Level, format string, args ...interface{}) {
	zl := l.Zap()
	if ce := zl.Check(lvl, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// rebuild recreates the zap core.  Callers hold l.mu (or own l).
func (l *Logger) rebuild() {
	encCfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      levelEncoder(l.color),
		ConsoleSeparator: " ",
	}
	if l.timestamps {
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(l.output)),
		threshold(l.level),
	)
	l.zl = zap.New(core).With(l.fields...)
}

// threshold maps a verbosity to the lowest zap level that is printed.
func threshold(v LogLevel) zap.LevelEnablerFunc {
	min := zapcore.ErrorLevel
	switch {
	case v >= LogDebug:
		min = levelDebug
	case v == LogVerbose:
		min = levelVerbose
	case v == LogNormal:
		min = zapcore.InfoLevel
	}
	return func(lvl zapcore.Level) bool { return lvl >= min }
}

var levelColors = map[string]string{
	"DBG": "\x1b[35m",
	"VRB": "\x1b[36m",
	"INF": "\x1b[34m",
	"WRN": "\x1b[33m",
	"ERR": "\x1b[31m",
}

func levelEncoder(color bool) zapcore.LevelEncoder {
	return func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var name string
		switch {
		case lvl <= levelDebug:
			name = "DBG"
		case lvl == levelVerbose:
			name = "VRB"
		case lvl == zapcore.InfoLevel:
			name = "INF"
		case lvl == zapcore.WarnLevel:
			name = "WRN"
		default:
			name = "ERR"
		}
		if color {
			enc.AppendString(levelColors[name] + "[" + name + "]\x1b[0m")
			return
		}
		enc.AppendString("[" + name + "]")
	}
}
