// Package cmd provides the CLI commands for Examine.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zhhbo/Examine/internal/config"
	"github.com/zhhbo/Examine/internal/logging"
	"github.com/zhhbo/Examine/pkg/version"
)

var (
	configPath string
	debugMode  bool
)

// NewRootCmd creates the root command for the examine CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examine",
		Short: "Asynchronous document-indexing pipeline",
		Long: `Examine queues, deduplicates, and batches document add/delete
operations and commits them into a full-text store through a buffered
merge protocol, compacting the store periodically.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("examine version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", ".examine.yaml", "Path to the config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newFeedCmd())
	cmd.AddCommand(newCompactCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads the configuration and wires up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
	}
	logging.SetupDefault(logging.Config{Level: level})
	return cfg, nil
}
