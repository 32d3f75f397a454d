package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapcols/internal/cli/output"
	"github.com/leapstack-labs/leapcols/internal/sqlcheck"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if _, err := output.ParseMode(c.Output); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Validation != "" && !slices.Contains(sqlcheck.Engines(), strings.ToLower(c.Validation)) {
		errs = append(errs, fmt.Errorf("validate: unknown engine %q (want %s)", c.Validation, strings.Join(sqlcheck.Engines(), "|")))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if c.Server.ReadHeaderTimeout < 0 || c.Server.ShutdownTimeout < 0 || c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel parses a log level name (debug, info, warn, error). The empty
// string means warn.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
	return lvl, nil
}
