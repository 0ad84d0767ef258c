package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shpitdev/apollo-bulk-enricher/internal/app"
	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the enrichment pipeline over HTTP",
		Long: `Serve starts an HTTP server exposing POST /v1/enrich.

The body may be JSON {"domains": [...]}, newline-delimited text, or a
multipart form with a "file" upload (CSV with a domain column) and/or a
"domains" text field. Use ?format=json|csv|markdown to pick the response;
csv responds with an apollo_company_data.csv download.

Without an API key the server still starts and answers 503 "Missing API key".`,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", "", "Listen address (env: LISTEN_ADDR, default "+config.DefaultListenAddr+")")
	cmd.Flags().String("redis", "", "Redis address for shared per-client limits (env: REDIS_ADDR)")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v, _ := cmd.Flags().GetString("redis"); v != "" {
		cfg.Server.RedisAddr = v
	}

	logger, closer := newLogger(cmd.ErrOrStderr(), cfg)
	defer func() {
		_ = closer.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var enricher enrich.Enricher
	switch e, err := app.NewEnricher(ctx, cfg); {
	case errors.Is(err, config.ErrMissingAPIKey):
		logger.Warn().Str("provider", cfg.Provider).Msg("API key not found; enrich requests will answer 503")
	case err != nil:
		return err
	default:
		enricher = e
		logger.Info().Str("provider", cfg.Provider).Msg("API key loaded")
	}

	fiberApp := server.New(server.Deps{
		Config:   cfg,
		Logger:   logger,
		Enricher: enricher,
	})
	return server.Run(ctx, fiberApp, cfg.Server.ListenAddr, logger)
}
