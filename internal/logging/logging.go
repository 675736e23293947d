// Package logging constructs the zap logger shared by every shipcat
// component (CLI, applier, reconciler, rollout tracker, read server).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger. Under CIRCLECI it uses a JSON
// encoder (machine-parseable build logs); interactively it uses the
// console encoder for readability.
func New() *zap.Logger {
	level := zap.InfoLevel
	if os.Getenv("SHIPCAT_DEBUG") != "" {
		level = zap.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if os.Getenv("CIRCLECI") != "" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

// Named returns a child logger scoped to a component name, e.g.
// logging.New().Named("reconciler").
func Named(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name)
}
