package pipeline

import (
	"context"
	"time"

	"github.com/shpitdev/apollo-bulk-enricher/internal/enrich"
	"github.com/shpitdev/apollo-bulk-enricher/internal/input"
	"github.com/shpitdev/apollo-bulk-enricher/pkg/pipeline/worker"
)

type Options struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
}

// Progress is reported once per domain, after its result is known.
type Progress struct {
	Done   int
	Total  int
	Domain string
	Result enrich.Result
}

// Fraction is Done/Total in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressFunc observes pipeline progress. It may be nil.
type ProgressFunc func(Progress)

// Run enriches every domain in order and returns one result per domain.
//
// Blank entries are dropped first, so len(results) equals the number of
// non-blank domains and results[i] belongs to the i-th of them. Domains are
// processed one at a time; a failure on one domain is recorded in its result
// and never stops the run. The only error returned is ctx's, in which case
// the results completed so far are returned with it.
func Run(ctx context.Context, domains []string, enricher enrich.Enricher, opts Options, progress ProgressFunc) ([]enrich.Result, error) {
	domains = input.Clean(domains)
	if len(domains) == 0 {
		return []enrich.Result{}, nil
	}

	processor := func(reqCtx context.Context, domain string) (enrich.Result, error) {
		return enricher.Enrich(reqCtx, domain), nil
	}

	total := len(domains)
	onResult := func(r worker.Result[string, enrich.Result]) error {
		if progress != nil {
			progress(Progress{
				Done:   r.Index + 1,
				Total:  total,
				Domain: r.Input,
				Result: r.Output,
			})
		}
		return nil
	}

	out, err := worker.ProcessAllWithCallback(ctx, domains, processor, onResult, worker.Options{
		RequestTimeout: opts.RequestTimeout,
		RateLimitRPS:   opts.RateLimitRPS,
	})

	results := make([]enrich.Result, 0, len(out))
	for _, item := range out {
		res := item.Output
		// Results are keyed by the domain as given, whatever the enricher echoed.
		res.Domain = item.Input
		results = append(results, res)
	}
	return results, err
}
