package main

import (
	"fmt"

	"github.com/jpalmerr/fleetpulse/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a FleetPulse configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It does not contact the signage API. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  fleetpulse validate -c config.yaml
  fleetpulse validate --config /etc/fleetpulse/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	retries := "disabled"
	if n := cfg.API.Retries(); n > 0 {
		retries = fmt.Sprintf("%d", n)
	}
	breaker := "disabled"
	if cfg.API.BreakerEnabled() {
		breaker = "enabled"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Organization:    %s\n", cfg.Organization)
	fmt.Fprintf(out, "  API:             %s\n", cfg.API.BaseURL)
	fmt.Fprintf(out, "  Port:            %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval:   %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Concurrency:     %d\n", cfg.Concurrency)
	fmt.Fprintf(out, "  Request timeout: %s\n", cfg.RequestTimeout.Duration())
	fmt.Fprintf(out, "  Preview TTL:     %s\n", cfg.PreviewTTL.Duration())
	fmt.Fprintf(out, "  Retries:         %s\n", retries)
	fmt.Fprintf(out, "  Circuit breaker: %s\n", breaker)

	return nil
}
