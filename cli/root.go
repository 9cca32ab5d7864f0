// Package cli holds the projtrack command tree.
package cli

import (
	"fmt"
	"os"

	"projtrack/config"
	"projtrack/logutils"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "projtrack",
	Short:         "Real-estate project tracker API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, backupCmd, hashPasswordCmd, checkCmd, configCmd)
}

// Execute runs the command named on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logutils.SetLevel(cfg.Log.Level)
	return cfg, nil
}
