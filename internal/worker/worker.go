// Package worker runs a function over a slice with bounded concurrency, an
// optional global rate limit and a per-item timeout.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type FailurePolicy int

const (
	// FailurePolicyPartialOutput records per-item errors and keeps going.
	FailurePolicyPartialOutput FailurePolicy = iota
	// FailurePolicyFailFast cancels the remaining items on the first error.
	FailurePolicyFailFast
)

type Options struct {
	Workers        int
	RequestTimeout time.Duration

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64

	FailurePolicy FailurePolicy
}

// Result holds the output for one input item.
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.RequestTimeout < 0 {
		o.RequestTimeout = 0
	}
	return o
}

// ProcessAll runs processor over items and returns the results in input
// order. Every item is attempted once. The returned error is the parent
// context's error or, with FailurePolicyFailFast, the first item error.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], len(items))

	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, item := range items {
		if runCtx.Err() != nil {
			break
		}

		g.Go(func() error {
			res := processOne(runCtx, item, processor, limiter, opts.RequestTimeout)
			out[i] = res
			if res.Err != nil && opts.FailurePolicy == FailurePolicyFailFast {
				return res.Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func processOne[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	timeout time.Duration,
) Result[In, Out] {
	res := Result[In, Out]{Input: item}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			res.Err = err
			return res
		}
	}

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res.Output, res.Err = processor(reqCtx, item)
	return res
}
