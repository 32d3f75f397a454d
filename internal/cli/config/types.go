// Package config provides configuration management for the leapcols CLI.
//
// Values are layered, lowest to highest precedence: built-in defaults, a
// leapcols.yaml file, LEAPCOLS_* environment variables, then flags that were
// set explicitly on the command line.
package config

import (
	"runtime"
	"time"
)

// Config holds all CLI configuration options.
type Config struct {
	Output        string       `koanf:"output"`
	Verbose       bool         `koanf:"verbose"`
	LogLevel      string       `koanf:"log_level"`
	ExtraKeywords []string     `koanf:"extra_keywords"`
	Concurrency   int          `koanf:"concurrency"`
	Validation    string       `koanf:"validate"` // engine checking syntax: "", sqlite or duckdb
	Server        ServerConfig `koanf:"server"`
	Watch         WatchConfig  `koanf:"watch"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
}

// WatchConfig holds configuration for re-running on file changes.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Default configuration values.
const (
	DefaultOutput            = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel          = "warn"
	DefaultServerAddr        = "127.0.0.1:8765"
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultMaxBodyBytes      = 1 << 20
	DefaultDebounce          = 200 * time.Millisecond
)

// DefaultConcurrency is the number of files extracted in parallel.
func DefaultConcurrency() int {
	return runtime.GOMAXPROCS(0)
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Output:      DefaultOutput,
		LogLevel:    DefaultLogLevel,
		Concurrency: DefaultConcurrency(),
		Server: ServerConfig{
			Addr:              DefaultServerAddr,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
			MaxBodyBytes:      DefaultMaxBodyBytes,
		},
		Watch: WatchConfig{Debounce: DefaultDebounce},
	}
}
