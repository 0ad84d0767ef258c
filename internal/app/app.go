// Package app wires configuration, providers and the pipeline into the runs
// the CLI exposes.
package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/shpitdev/apollo-bulk-enricher/internal/config"
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich/apollo"
	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich/gemini"
	"github.com/shpitdev/apollo-bulk-enricher/internal/input"
	"github.com/shpitdev/apollo-bulk-enricher/internal/pipeline"
	"github.com/shpitdev/apollo-bulk-enricher/internal/report"
)

// NewEnricher builds the provider selected by cfg. It fails with
// config.ErrMissingAPIKey when that provider has no credential.
func NewEnricher(ctx context.Context, cfg config.Config) (enrich.Enricher, error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
	case config.ProviderApollo:
		return apollo.New(apollo.Config{
			APIKey:  cfg.Apollo.APIKey,
			BaseURL: cfg.Apollo.BaseURL,
			Timeout: cfg.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("%w (got %q)", config.ErrUnknownProvider, cfg.Provider)
	}
}

// PipelineOptions maps the config onto pipeline options.
func PipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		RequestTimeout: cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
	}
}

// LocalRun describes one command-line enrichment.
type LocalRun struct {
	// InputPath is a .csv with a domain column or a newline-delimited text file.
	InputPath string
	// Domains are added after the file's domains.
	Domains []string

	// OutputPath receives the CSV export when set.
	OutputPath string

	// Format selects what is written to Stdout: markdown, json or csv.
	Format string
	Stdout io.Writer

	// Status receives one line per domain as it completes. May be nil.
	Status io.Writer
}

// RunLocal enriches the domains named by run and writes the results.
//
// On cancellation the results gathered so far are still written, and the
// context error is returned.
func RunLocal(ctx context.Context, run LocalRun, enricher enrich.Enricher, opts pipeline.Options, logger zerolog.Logger) (pipeline.Summary, error) {
	if err := report.CheckFormat(run.Format); err != nil {
		return pipeline.Summary{}, err
	}

	var domains []string
	if run.InputPath != "" {
		fromFile, err := input.ReadFile(run.InputPath)
		if err != nil {
			return pipeline.Summary{}, fmt.Errorf("read input: %w", err)
		}
		domains = fromFile
	}
	domains = input.Clean(append(domains, run.Domains...))
	if err := input.Require(domains); err != nil {
		return pipeline.Summary{}, err
	}

	runID := xid.New().String()
	logger = logger.With().Str("run", runID).Logger()
	logger.Info().
		Int("domains", len(domains)).
		Dur("timeout", opts.RequestTimeout).
		Float64("rate_limit_rps", opts.RateLimitRPS).
		Msg("enrichment run start")
	start := time.Now()

	results, runErr := pipeline.Run(ctx, domains, pipeline.Traced(enricher, logger, opts), opts, func(p pipeline.Progress) {
		if run.Status == nil {
			return
		}
		_, _ = fmt.Fprintf(run.Status, "Fetched %s (%d/%d) %s\n", p.Domain, p.Done, p.Total, p.Result.Status)
	})

	rows := pipeline.ToRows(results)
	summary := pipeline.Summarize(rows)
	ev := logger.Info()
	if runErr != nil {
		ev = logger.Warn().Err(runErr)
	}
	ev.Int("produced", summary.Total).
		Int("ok", summary.OK()).
		Int("failed", summary.Failed()).
		Dur("duration", time.Since(start).Round(time.Millisecond)).
		Msg("enrichment run complete")

	if run.OutputPath != "" {
		if err := writeCSVFile(run.OutputPath, rows); err != nil {
			return summary, err
		}
		logger.Info().Str("path", run.OutputPath).Msg("wrote csv export")
	}
	if run.Stdout != nil {
		var buf bytes.Buffer
		if err := report.Write(&buf, run.Format, rows); err != nil {
			return summary, err
		}
		if _, err := run.Stdout.Write(buf.Bytes()); err != nil {
			return summary, err
		}
	}
	return summary, runErr
}

func writeCSVFile(path string, rows []pipeline.Row) error {
	outF, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = outF.Close()
	}()

	if err := pipeline.WriteCSV(outF, rows); err != nil {
		return err
	}
	return outF.Close()
}
