package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/buildgrid/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BuildPaths []string // build files or directories holding them
	Tasks      []string // requested task selectors

	Workers  int
	FailFast bool
	DryRun   bool
	DOT      bool
	Watch    bool
	// StateDB is the sqlite file used for up-to-date checks. Empty disables
	// them, so every task runs.
	StateDB string

	LogFormat       string
	LogLevel        string
	ReportFormat    string
	HealthcheckPort int
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.BuildPaths) == 0 {
		return nil, errors.New("at least one build path is required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if _, err := newLogger(&cfg, io.Discard); err != nil {
		return nil, err
	}
	if cfg.ReportFormat != "" {
		if _, err := report.ParseFormat(cfg.ReportFormat); err != nil {
			return nil, err
		}
	}
	if cfg.DOT && cfg.Watch {
		return nil, errors.New("--dot cannot be combined with --watch")
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
