// Package logging builds the zap loggers used across guestctl.
//
// Libraries in this module never construct their own logger. They accept a
// *zap.Logger through an option and fall back to L(), the process-wide
// logger. The CLI installs its configured logger with SetDefault before any
// command runs.
package logging

import (
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the zap encoder.
type Format string

const (
	// FormatConsole is a human-readable development encoder.
	FormatConsole Format = "console"
	// FormatJSON is the production JSON encoder.
	FormatJSON Format = "json"
)

// Options controls logger construction.
type Options struct {
	// Level is a zap level name (debug, info, warn, error). Defaults to info.
	Level string
	// Format is the output encoding. Defaults to console.
	Format Format
}

var defaultLogger atomic.Pointer[zap.Logger]

// New constructs a logger writing to stderr.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		level = parsed
	}

	var cfg zap.Config
	switch opts.Format {
	case "", FormatConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.DisableStacktrace = true
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	default:
		return nil, errors.Newf("unsupported log format: %s (supported: console, json)", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger, nil
}

// SetDefault replaces the logger returned by L. A nil logger is ignored.
func SetDefault(logger *zap.Logger) {
	if logger == nil {
		return
	}
	defaultLogger.Store(logger)
}

// L returns the process-wide logger, a no-op logger until SetDefault is
// called. It is safe for concurrent use with SetDefault.
func L() *zap.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	defaultLogger.CompareAndSwap(nil, zap.NewNop())
	return defaultLogger.Load()
}
