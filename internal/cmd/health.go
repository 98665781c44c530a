package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/config"
	errwrap "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		observability.CLILogger.Info("Running health check...")

		// Check 1: Version info available
		if versionInfo.Version == "" {
			observability.CLILogger.Error("❌ FAIL: Version information missing")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		// Check 2: Configuration loaded and valid
		cfg := config.GetConfig()
		if cfg == nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration not loaded", errwrap.NewConfigInvalidError("Configuration not loaded"))
			return
		}
		observability.CLILogger.Info("✅ Configuration system ready")

		// Check 3: GitHub token presence (unauthenticated access is heavily rate limited)
		if cfg.GitHub.Token == "" {
			observability.CLILogger.Warn("⚠️  No GitHub token configured; unauthenticated requests are limited to 60/hour")
		} else {
			observability.CLILogger.Info("✅ GitHub token configured")
		}

		// Overall status
		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
