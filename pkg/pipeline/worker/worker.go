package worker

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestTimeout bounds each processor call when Options leaves it unset.
const DefaultRequestTimeout = 20 * time.Second

type Options struct {
	// RequestTimeout bounds each processor call.
	RequestTimeout time.Duration

	// RateLimitRPS paces calls on the client side. Set to <=0 to disable.
	RateLimitRPS float64
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Index  int
	Input  In
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.RateLimitRPS < 0 {
		o.RateLimitRPS = 0
	}
	return o
}

// ProcessAll runs the processor over all input items, one at a time, in order.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	return ProcessAllWithCallback(ctx, items, processor, nil, opts)
}

// ProcessAllWithCallback runs the processor over all input items and invokes
// onResult after each item reaches its result.
//
// Items are processed strictly sequentially: there is never more than one
// processor call in flight. A processor error is recorded on its Result and
// does not stop the run. Cancellation is checked between items; when ctx is
// done the completed prefix is returned together with ctx.Err(). An error
// returned by onResult stops the run the same way.
func ProcessAllWithCallback[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	onResult func(Result[In, Out]) error,
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return out, ctxErr
				}
				return out, err
			}
		}

		res := processOne(ctx, i, item, processor, opts)
		out = append(out, res)

		if onResult != nil {
			if err := onResult(res); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func processOne[In any, Out any](
	ctx context.Context,
	idx int,
	item In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) Result[In, Out] {
	reqCtx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
	defer cancel()

	res, err := processor(reqCtx, item)
	return Result[In, Out]{
		Index:  idx,
		Input:  item,
		Output: res,
		Err:    err,
	}
}
