package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
	"github.com/shpitdev/apollo-bulk-enricher/internal/logging"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/pipeline/redact"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enricher",
		Short: "Bulk company enrichment through the Apollo API",
		Long: `enricher looks up company data (name, website, industry, location,
employee count, founded year, LinkedIn URL) for a list of web domains.

Domains are processed strictly one at a time. Every domain produces exactly
one result row, either a company record or a short error description, and
rows keep the input order.

Configuration is read from --config, ./.apollo-enricher.yaml or the XDG
config directory, then overridden by environment variables and flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("provider", "", "Enrichment provider: apollo or gemini (env: APOLLO_PROVIDER)")
	cmd.PersistentFlags().Duration("timeout", 0, "Per-domain request timeout (env: REQUEST_TIMEOUT)")
	cmd.PersistentFlags().Float64("rate-limit-rps", 0, "Client-side request pacing in RPS, 0 disables (env: RATE_LIMIT_RPS)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", redact.Secrets(err.Error()))
		os.Exit(1)
	}
}

// loadConfig resolves the file and environment configuration, then applies
// any persistent flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, path, err := config.Load(explicit)
	if err != nil {
		return config.Config{}, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		if cfg.Provider, err = flags.GetString("provider"); err != nil {
			return config.Config{}, "", err
		}
	}
	if flags.Changed("timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("timeout"); err != nil {
			return config.Config{}, "", err
		}
	}
	if flags.Changed("rate-limit-rps") {
		if cfg.RateLimitRPS, err = flags.GetFloat64("rate-limit-rps"); err != nil {
			return config.Config{}, "", err
		}
	}
	if flags.Changed("log-level") {
		if cfg.Log.Level, err = flags.GetString("log-level"); err != nil {
			return config.Config{}, "", err
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}
	return cfg, path, nil
}

func newLogger(w io.Writer, cfg config.Config) (zerolog.Logger, io.Closer) {
	return logging.New(w, cfg.Log)
}
