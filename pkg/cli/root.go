// Package cli provides the command-line interface for Stagehand
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stagehand/stagehand/pkg/config"
	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/types"
)

var (
	cfgFile     string
	projectRoot string
	verbosity   string
	version     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "Package your multi-target app for every stage",
	Long: `🎬 Stagehand - Deployment packaging for web, mobile and wearable targets

Stagehand runs the build phases of your project concurrently, optimizes
assets when the native tooling is available (and ships them unmodified
when it is not), and assembles everything into a single distributable
archive.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("🎬 Stagehand v%s\n", version)
			return
		}
		// If no subcommand, show help
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: stagehand.config.json)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(projectRoot)
		viper.SetConfigName("stagehand.config")
	}

	viper.SetEnvPrefix("STAGEHAND")
	viper.AutomaticEnv()

	// A missing config file is fine here; commands that need one
	// report it themselves.
	_ = viper.ReadInConfig()
}

// configPath resolves the configuration file path for the current
// invocation
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}

	for _, name := range []string{"stagehand.config.json", "stagehand.config.yaml", "stagehand.config.yml"} {
		candidate := filepath.Join(projectRoot, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no configuration found in %s (run 'stagehand init' to create one)", projectRoot)
}

// loadConfig loads and validates the deployment configuration
func loadConfig() (*types.DeploymentConfig, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	return config.NewManager().LoadConfig(path)
}

// newLogger builds the run logger from the verbosity flag and the
// configured log file
func newLogger(cfg *types.DeploymentConfig) logger.Logger {
	logFile := ""
	level := verbosity
	if cfg != nil && cfg.Logging != nil {
		logFile = cfg.Logging.File
		if cfg.Logging.Level != "" && !rootCmd.PersistentFlags().Changed("verbosity") {
			level = string(cfg.Logging.Level)
		}
	}
	return logger.CreateLogger(logFile, level)
}
