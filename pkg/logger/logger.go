package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.Logger

// Init builds the process-wide Zap logger and installs it as the
// package global. level accepts the standard zap names (debug, info,
// warn, error, ...); format is "json" or "console".
func Init(level, format string) (*zap.Logger, error) {
	lvl := zap.InfoLevel
	if err := lvl.Set(strings.ToLower(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	enc, err := newEncoder(format)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl)
	global = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return global, nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.CallerKey = "caller"
	cfg.StacktraceKey = "stacktrace"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	switch strings.ToLower(format) {
	case "json":
		return zapcore.NewJSONEncoder(cfg), nil
	case "console":
		return zapcore.NewConsoleEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// L returns the global logger. Panics when Init has not run so that
// misordered startup fails loudly instead of logging into the void.
func L() *zap.Logger {
	if global == nil {
		panic("logger not initialized: call logger.Init first")
	}
	return global
}

// Sync flushes buffered entries. Safe before Init.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
