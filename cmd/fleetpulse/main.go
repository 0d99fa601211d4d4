// Package main is the entry point for the fleetpulse CLI.
//
// FleetPulse can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	fleetpulse serve -c config.yaml    # Start the dashboard
//	fleetpulse validate -c config.yaml # Validate configuration
//	fleetpulse version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "fleetpulse",
	Short: "A live dashboard for digital-signage fleets",
	Long: `FleetPulse is a live dashboard for a fleet of digital-signage displays.

It polls a signage API for an organization's displays, shows what each
online display is currently playing, and previews the media on screen.
Updates are pushed to the browser with Server-Sent Events.

Quick start:
  1. Create a config file (fleetpulse.yaml)
  2. Run: fleetpulse serve -c fleetpulse.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  organization: org-42
  poll_interval: 15s
  api:
    base_url: https://signage.example.com/v1
    token: ${SIGNAGE_TOKEN}`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this fleetpulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fleetpulse %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
