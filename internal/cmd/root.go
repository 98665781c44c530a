package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/observability"
)

const appName = "repolens"

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "GitHub repository analysis tool server",
	Long: `repolens serves GitHub repository analysis tools over the Model Context
Protocol and exposes the comparison tool directly on the command line.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./repolens.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Initialize CLI logger early so we can use it during config loading
	observability.InitCLILogger(appName, verbose)

	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}

	if verbose {
		if used := viper.ConfigFileUsed(); used != "" {
			observability.CLILogger.Debug("Using config file", zap.String("path", used))
		} else {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		}
		observability.CLILogger.Debug("Configuration loaded",
			zap.String("github_base_url", cfg.GitHub.BaseURL),
			zap.Float64("rate_requests_per_second", cfg.Rate.RequestsPerSecond),
			zap.Int("retry_max_attempts", cfg.Retry.MaxAttempts))
	}
}
