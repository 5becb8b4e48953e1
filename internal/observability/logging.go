// Package observability builds the zap loggers shared by the importer
// binaries.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/config"
)

// Output formats accepted in config.LoggingConfig.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config translates cfg into a zap.Config. Entries go to stderr so reports
// printed on stdout stay clean, and sampling is off: an import logs one line
// per wall and light, and none of them may be dropped.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error";
// cfg.Format must be FormatJSON or FormatConsole.
func Config(cfg config.LoggingConfig, service string) (zap.Config, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case FormatJSON:
		zc = zap.NewProductionConfig()
	case FormatConsole:
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if service != "" {
		zc.InitialFields = map[string]any{"service": service}
	}
	return zc, nil
}

// NewLogger builds the logger for one binary. Every entry carries a
// "service" field naming it.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	zc, err := Config(cfg, service)
	if err != nil {
		return nil, err
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
