// Package main provides the zotidy CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// Global flags shared by every command.
var (
	humanOutput  bool
	outputFormat string
	configFile   string
	logLevel     string
	cachePath    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// SilenceErrors hides cobra's own messages, such as unknown flags.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zotidy",
	Short: "Maintenance utility for Zotero libraries",
	Long: `zotidy inspects and cleans a Zotero library through the Zotero Web API.

Typical session:
  zotidy load                  # fetch the library into the local cache
  zotidy report --all          # list duplicates, missing PDFs, suspicious records
  zotidy tag --no-pdf          # mark findings with tags
  zotidy merge --dry-run       # preview merging DOI/ISBN duplicates
  zotidy dedupe-pdf            # delete identically named extra PDFs

Every write first checks that the library has not changed since the last
load. If it has, nothing is written and the command asks for a reload.
All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case formatJSON, formatYAML:
			return nil
		default:
			return fmt.Errorf("invalid --format %q (valid: json, yaml)", outputFormat)
		}
	},
}

func init() {
	// Credentials may live in a .env file next to where zotidy is run.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatJSON, "Machine output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (.cfg/.ini or YAML); default $XDG_CONFIG_HOME/zotidy/config.yml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "Snapshot cache path (overrides config)")
	rootCmd.Version = Version
}
