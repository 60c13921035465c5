// Package logging builds the one logrus.Logger instance used across the
// engine, configuring level, output, and formatting from a small Config
// struct instead of scattering logrus.New() calls through main.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Config controls logger construction.
type Config struct {
	// Debug raises the level to logrus.DebugLevel.
	Debug bool
	// OutputFile, if non-empty, tees log output to this path in addition
	// to stderr.
	OutputFile string
	// JSON selects the JSON formatter (production) over the text
	// formatter (local/dev use).
	JSON bool
}

// DefaultConfig returns the config used for normal CLI runs.
func DefaultConfig(debug bool) Config {
	return Config{Debug: debug}
}

// ProductionConfig returns the config used for unattended/CI runs: JSON
// output teed to logFile.
func ProductionConfig(logFile string) Config {
	return Config{Debug: false, JSON: true, OutputFile: logFile}
}

// New builds a *logrus.Logger per cfg. Every package in this repository
// takes a *logrus.Logger (or the narrower Logger interface below) rather
// than reaching for a package-level global, so tests can inject their own.
func New(cfg Config) (*logrus.Logger, error) {
	log := logrus.New()

	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	if cfg.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := io.Writer(os.Stderr)
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.OutputFile, err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	log.SetOutput(out)

	return log, nil
}

// Logger is the narrow interface the engine's internal packages depend
// on, satisfied by *logrus.Logger and by *logrus.Entry (so a call site
// holding fields via WithFields can be passed down unchanged).
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
}
