package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var configPath string
	var logLevel string

	var rootCmd = &cobra.Command{
		Use:   "boardify",
		Short: "Boardify - a visual board of draggable cards",
		Long: `Boardify lays out cards from a cards.json data file on a pan/zoom canvas.
Card positions and the view are saved and restored between sessions.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "boardify.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	env := &environment{configPath: &configPath, logLevel: &logLevel}

	// Add commands
	rootCmd.AddCommand(newServeCommand(env))
	rootCmd.AddCommand(newBoardCommand(env))
	rootCmd.AddCommand(newExportCommand(env))
	rootCmd.AddCommand(newResetCommand(env))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
