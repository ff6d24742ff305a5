package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/vk/mountgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the MOUNTGRID_*
// environment. It returns a populated Config, a boolean indicating if the
// program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return parse(args, output, env.Options{})
}

func parse(args []string, output io.Writer, envOpts env.Options) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var defaults app.Config
	if err := env.ParseWithOptions(&defaults, envOpts); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid environment: %v", err)}
	}

	flagSet := flag.NewFlagSet("mountgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
mountgrid - A micro-frontend composition host.

Usage:
  mountgrid [options] [LAYOUT_PATH]

Arguments:
  LAYOUT_PATH
    Path to a single .hcl/.hcl.json file or a directory containing them.

Every option defaults to its MOUNTGRID_* environment variable
(e.g. -mount-timeout reads MOUNTGRID_MOUNT_TIMEOUT).

Options:
`)
		flagSet.PrintDefaults()
	}

	cfg := defaults
	layoutFlag := flagSet.String("layout", "", "Path to the layout file or directory.")
	lFlag := flagSet.String("l", "", "Path to the layout file or directory (shorthand).")
	flagSet.StringVar(&cfg.Listen, "listen", defaults.Listen, "Address of the operator HTTP server. Empty disables it.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.StringVar(&cfg.Location, "location", defaults.Location, "Initial location.")
	flagSet.StringVar(&cfg.Title, "title", defaults.Title, "Title of the composed page.")
	flagSet.DurationVar(&cfg.MountTimeout, "mount-timeout", defaults.MountTimeout, "Time allowed for loading and mounting one application. 0 disables it.")
	flagSet.DurationVar(&cfg.UnmountTimeout, "unmount-timeout", defaults.UnmountTimeout, "Time allowed for unmounting one application. 0 disables it.")
	flagSet.IntVar(&cfg.MaxConcurrency, "max-concurrency", defaults.MaxConcurrency, "Maximum concurrent lifecycle calls per transition. 0 is unlimited.")
	flagSet.IntVar(&cfg.QueueSize, "queue-size", defaults.QueueSize, "Pending location changes buffered while a transition runs.")
	flagSet.StringVar(&cfg.RelayURL, "relay-url", defaults.RelayURL, "Socket.io navigation hub URL. Empty disables the relay.")
	flagSet.StringVar(&cfg.RelayNamespace, "relay-namespace", defaults.RelayNamespace, "Socket.io namespace of the navigation hub.")
	flagSet.DurationVar(&cfg.FetchTimeout, "fetch-timeout", defaults.FetchTimeout, "Timeout of one remote bundle request.")
	flagSet.IntVar(&cfg.FetchRetries, "fetch-retries", defaults.FetchRetries, "Retries of a failed remote bundle request.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	// -layout, then -l, then the positional argument, then MOUNTGRID_LAYOUT.
	path := defaults.LayoutPath
	switch {
	case *layoutFlag != "":
		path = *layoutFlag
	case *lFlag != "":
		path = *lFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	}
	slog.Debug("Layout path determined.", "path", path)

	if path == "" {
		slog.Debug("No layout path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg.LayoutPath = path
	cfg.LogFormat = strings.ToLower(*logFormatFlag)
	cfg.LogLevel = strings.ToLower(*logLevelFlag)

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
