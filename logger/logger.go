package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps the CLI verbosity flags to a zap level. Quiet wins over verbose.
func Level(verbose, quiet bool) zapcore.Level {
	switch {
	case quiet:
		return zapcore.ErrorLevel
	case verbose:
		return zapcore.DebugLevel
	default:
		return zapcore.WarnLevel
	}
}

// New builds the CLI logger. Logs go to stderr so stdout stays clean for
// JSON output.
func New(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}
