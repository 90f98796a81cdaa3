package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ripesense/ripesense/cmd/ripectl/commands"
	"github.com/ripesense/ripesense/pkg/observability/logging"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	// Initialize logging
	if _, err := logging.InitLoggerFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:   "ripectl",
		Short: "RipeSense Control CLI",
		Long: `ripectl is a command-line tool for working with RipeSense, the
produce ripeness classification service.

It classifies produce photos locally, inspects taxonomy and model artifacts,
and manages the service configuration.

Common workflows:
  ripectl config validate               # Validate your configuration
  ripectl classify -i photo.jpg -p banana   # Classify a produce photo
  ripectl stages                        # Show the ripeness taxonomy
  ripectl models                        # List local model artifacts
  ripectl health                        # Check a running RipeSense API

For detailed help on any command, use:
  ripectl <command> --help`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json, yaml")

	// Add subcommands
	rootCmd.AddCommand(commands.NewConfigCmd())
	rootCmd.AddCommand(commands.NewClassifyCmd())
	rootCmd.AddCommand(commands.NewStagesCmd())
	rootCmd.AddCommand(commands.NewModelsCmd())
	rootCmd.AddCommand(commands.NewHealthCmd())
	rootCmd.AddCommand(commands.NewVersionCmd(version, gitCommit, buildDate))
	rootCmd.AddCommand(commands.NewCompletionCmd())

	// Execute
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
