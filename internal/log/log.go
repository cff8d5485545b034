// Package log builds the process-wide zap logger, shared by the startup
// loaders, the inference orchestrator, and the HTTP façade.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap logger, switched to debug level when
// verbose is set.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Nop returns a logger that discards everything, for tests that don't care
// about log output.
func Nop() *zap.Logger { return zap.NewNop() }
