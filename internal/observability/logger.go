// Package observability owns the process-wide loggers and the telemetry
// system. Loggers are advisory infrastructure: nothing in the call path may
// branch on their presence.
package observability

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger is used by CLI commands (SIMPLE profile, human output).
	CLILogger *logging.Logger

	// ServerLogger is used by the tool server (STRUCTURED profile, JSON to
	// stderr with correlation IDs).
	ServerLogger *logging.Logger
)

// InitCLILogger initializes the CLI logger. Verbose lowers the level to
// debug.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatalStderr(foundry.ExitConfigInvalid, "failed to initialize CLI logger", err)
	}

	if verbose {
		logger.SetLevel(logging.DEBUG)
	}

	CLILogger = logger
}

// InitServerLogger initializes the structured server logger.
func InitServerLogger(serviceName, logLevel string) {
	config := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: normalizeLevel(logLevel),
		Service:      serviceName,
		Environment:  "production",
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}

	logger, err := logging.New(config)
	if err != nil {
		fatalStderr(foundry.ExitConfigInvalid, "failed to initialize server logger", err)
	}

	ServerLogger = logger
}

func normalizeLevel(level string) string {
	switch level {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// fatalStderr exits with a semantic exit code before any logger exists.
func fatalStderr(exitCode foundry.ExitCode, msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}

	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(exitCode))
}
