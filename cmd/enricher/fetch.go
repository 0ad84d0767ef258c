package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shpitdev/apollo-bulk-enricher/internal/app"
	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
	"github.com/shpitdev/apollo-bulk-enricher/internal/input"
	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
	"github.com/shpitdev/apollo-bulk-enricher/internal/report"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [domain...]",
		Short: "Enrich a list of domains and export the results",
		Long: `Fetch enriches every domain given as an argument or read from --input.

--input accepts a CSV file with a "domain" column (header match is
case-insensitive) or a text file with one domain per line. Blank lines are
skipped; duplicates are kept and looked up again.

Examples:
  # Print a markdown table for two domains
  enricher fetch hubspot.com zoom.us

  # Read a CSV and write the export file
  enricher fetch -i domains.csv -o apollo_company_data.csv`,
		RunE: runFetchCmd,
	}

	cmd.Flags().StringP("input", "i", "", "Input file (.csv with a domain column, or one domain per line)")
	cmd.Flags().StringP("output", "o", "", "Write the CSV export to this path (e.g. "+pipeline.DefaultFilename+")")
	cmd.Flags().StringP("format", "f", report.FormatMarkdown, "Format printed to stdout: markdown, json or csv")
	cmd.Flags().BoolP("quiet", "q", false, "Do not print per-domain status lines")

	return cmd
}

func runFetchCmd(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer := newLogger(cmd.ErrOrStderr(), cfg)
	defer func() {
		_ = closer.Close()
	}()
	if path != "" {
		logger.Debug().Str("path", path).Msg("loaded config file")
	}

	inputPath, err := cmd.Flags().GetString("input")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enricher, err := app.NewEnricher(ctx, cfg)
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return fmt.Errorf("%w: set APOLLO_API_KEY (or GEMINI_API_KEY for --provider gemini)", err)
		}
		return err
	}

	run := app.LocalRun{
		InputPath:  inputPath,
		Domains:    args,
		OutputPath: outputPath,
		Format:     format,
		Stdout:     cmd.OutOrStdout(),
	}
	if !quiet {
		run.Status = cmd.ErrOrStderr()
	}

	summary, err := app.RunLocal(ctx, run, enricher, app.PipelineOptions(cfg), logger)
	switch {
	case errors.Is(err, input.ErrEmptyInput):
		return errors.New("please enter at least one domain")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("interrupted after %d domain(s): %w", summary.Total, err)
	case err != nil:
		return err
	}
	return nil
}
