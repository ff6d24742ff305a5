package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
// Environment variables provide the defaults; flags override them.
type Config struct {
	LayoutPath string `env:"MOUNTGRID_LAYOUT"`
	// Listen is the operator HTTP address. Empty disables the server.
	Listen    string `env:"MOUNTGRID_LISTEN" envDefault:":8080"`
	LogFormat string `env:"MOUNTGRID_LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"MOUNTGRID_LOG_LEVEL" envDefault:"info"`
	Location  string `env:"MOUNTGRID_LOCATION" envDefault:"/"`
	Title     string `env:"MOUNTGRID_TITLE" envDefault:"mountgrid"`

	MountTimeout   time.Duration `env:"MOUNTGRID_MOUNT_TIMEOUT" envDefault:"30s"`
	UnmountTimeout time.Duration `env:"MOUNTGRID_UNMOUNT_TIMEOUT" envDefault:"30s"`
	MaxConcurrency int           `env:"MOUNTGRID_MAX_CONCURRENCY" envDefault:"0"`
	QueueSize      int           `env:"MOUNTGRID_QUEUE_SIZE" envDefault:"16"`

	RelayURL       string `env:"MOUNTGRID_RELAY_URL"`
	RelayNamespace string `env:"MOUNTGRID_RELAY_NAMESPACE" envDefault:"/"`

	FetchTimeout time.Duration `env:"MOUNTGRID_FETCH_TIMEOUT" envDefault:"10s"`
	FetchRetries int           `env:"MOUNTGRID_FETCH_RETRIES" envDefault:"2"`
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	var problems []string

	if cfg.LayoutPath == "" {
		problems = append(problems, "LayoutPath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	if cfg.MountTimeout < 0 || cfg.UnmountTimeout < 0 || cfg.FetchTimeout < 0 {
		problems = append(problems, "timeouts cannot be negative")
	}
	if cfg.MaxConcurrency < 0 {
		problems = append(problems, "max concurrency cannot be negative")
	}
	if cfg.QueueSize < 0 {
		problems = append(problems, "queue size cannot be negative")
	}
	if cfg.FetchRetries < 0 {
		problems = append(problems, "fetch retries cannot be negative")
	}
	if cfg.Location == "" {
		cfg.Location = "/"
	}

	if len(problems) > 0 {
		return nil, errors.New("configuration validation failed:\n- " + strings.Join(problems, "\n- "))
	}
	return &cfg, nil
}
