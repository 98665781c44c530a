package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/config"
	errwrap "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/github"
	"github.com/repolens/repolens/internal/observability"
	"github.com/repolens/repolens/internal/server"
	"github.com/repolens/repolens/internal/server/handlers"
	"github.com/repolens/repolens/internal/tools"
)

var (
	serverPort int
	serverHost string
)

// signalHealthChecker implements HealthChecker for the signal system
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil // Signal handlers are registered and ready
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// upstreamHealthChecker verifies the GitHub client is configured.
type upstreamHealthChecker struct {
	client *github.Client
}

func (u upstreamHealthChecker) CheckHealth(ctx context.Context) error {
	if u.client == nil {
		return errwrap.NewConfigInvalidError("github client not initialized")
	}
	if u.client.BaseURL() == "" {
		return errwrap.NewConfigInvalidError("github base URL not configured")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP tool server",
	Long: `Start the HTTP server exposing repository analysis tools over the Model
Context Protocol, with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		if cfg == nil {
			return errwrap.NewConfigInvalidError("configuration not loaded")
		}

		host := serverHost
		if host == "" {
			host = cfg.Server.Host
		}
		port := serverPort
		if port == 0 {
			port = cfg.Server.Port
		}

		// Initialize server logger
		observability.InitServerLogger(appName, cfg.Logging.Level)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(appName, metricsPort); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", host),
			zap.Int("port", port),
			zap.Int("metrics_port", metricsPort),
			zap.String("github_base_url", cfg.GitHub.BaseURL),
			zap.Float64("rate_requests_per_second", cfg.Rate.RequestsPerSecond))

		// Build the shared GitHub client and tool registry
		client := newGitHubClient(cfg)
		registry := tools.NewRegistry(tools.Deps{
			GitHub: client,
			Sink:   github.LoggerSink{Logger: observability.ServerLogger, Tool: "server"},
			Logger: observability.ServerLogger,
		})

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("signal_handlers", signalHealthChecker{})
		hm.RegisterChecker("github_client", upstreamHealthChecker{client: client})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		// Create server
		srv := server.New(server.Options{
			Host:         host,
			Port:         port,
			Version:      versionInfo.Version,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			Registry:     registry,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// TODO: rebuild the rate limiter when rate.requests_per_second changes

			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", host),
				zap.Int("port", port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (overrides config)")
}
