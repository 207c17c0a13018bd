package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger shared by the service and the CLI.
// Init(level) and the printf-style helpers are backed by a zap core: console
// output for development, JSON for production (see InitWithFormat).

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = build("console", os.Stdout)
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	level.SetLevel(parseLevel(l))
}

// InitWithFormat sets the level and switches the encoder ("json" or "console").
func InitWithFormat(l, format string) {
	Init(l)
	mu.Lock()
	base = build(format, os.Stdout)
	mu.Unlock()
}

func build(format string, out zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	var enc zapcore.Encoder
	if strings.EqualFold(format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(out), level), zap.AddCaller(), zap.AddCallerSkip(1))
}

func parseLevel(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func sugar() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sugar()
}

// Named returns a structured logger for a component. It shares the global level.
func Named(component string) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-1)).Named(component).Sugar()
}

func Debugf(format string, v ...interface{}) { sugar().Debugf(format, v...) }

func Infof(format string, v ...interface{}) { sugar().Infof(format, v...) }

func Warnf(format string, v ...interface{}) { sugar().Warnf(format, v...) }

func Errorf(format string, v ...interface{}) { sugar().Errorf(format, v...) }

// Fatalf logs and exits with status 1.
func Fatalf(format string, v ...interface{}) { sugar().Fatalf(format, v...) }

func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// Sync flushes buffered entries. Call with defer in main.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

// LevelString returns the current level as text.
func LevelString() string {
	return level.Level().String()
}
