package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/pipeline/redact"
)

type tracedEnricher struct {
	next           enrich.Enricher
	logger         zerolog.Logger
	requestTimeout time.Duration
}

// Traced wraps an enricher so every lookup logs a request and a response line.
func Traced(next enrich.Enricher, logger zerolog.Logger, opts Options) enrich.Enricher {
	return &tracedEnricher{
		next:           next,
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
	}
}

func (t *tracedEnricher) Enrich(ctx context.Context, domain string) enrich.Result {
	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.logger.Debug().
		Str("domain", domain).
		Dur("timeout", t.requestTimeout).
		Str("deadline_in", deadlineIn).
		Msg("enrich request")

	start := time.Now()
	res := t.next.Enrich(ctx, domain)
	elapsed := time.Since(start).Round(time.Millisecond)

	if !res.OK() {
		ev := t.logger.Warn()
		if res.Status == enrich.StatusNotFound {
			ev = t.logger.Info()
		}
		ev.Str("domain", domain).
			Str("status", string(res.Status)).
			Int("http_status", res.HTTPStatus).
			Str("error", redact.Secrets(res.Error())).
			Dur("duration", elapsed).
			Msg("enrich response")
		return res
	}

	t.logger.Info().
		Str("domain", domain).
		Str("status", string(res.Status)).
		Str("name", res.Company.Name).
		Dur("duration", elapsed).
		Msg("enrich response")
	return res
}
