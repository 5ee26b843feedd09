// Package cmd implements the convey CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile       string
	verbose       bool
	stateDir      string
	themeOverride string
)

var rootCmd = &cobra.Command{
	Use:   "convey",
	Short: "Convey — build, publish, and deploy container pipelines",
	Long:  "Convey runs build, publish, and trigger stages in isolated environments, with per-stage secret injection and idempotent deployment triggers.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "convey.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", ".convey", "state directory for run numbers and records")
	rootCmd.PersistentFlags().StringVar(&themeOverride, "theme", "", "TUI color theme: dark, light, or auto")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

// SetVersionInfo sets the version and commit for display.
func SetVersionInfo(version, commit string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("convey %s (commit: %s)\n", version, commit))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
