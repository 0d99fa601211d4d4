package poller

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Map applies op to every item, running at most concurrency calls at once,
// and returns the results in input order.
//
// Map spawns min(concurrency, len(items)) workers. Each worker claims the next
// unclaimed index from a shared counter until none remain, so a slow item only
// holds up its own worker. op must encode its failures in R; Map performs no
// retries. Values of concurrency below 1 are treated as 1.
//
// When ctx is cancelled, workers stop claiming new items. Unclaimed slots keep
// the zero value of R and Map returns ctx.Err().
func Map[T, R any](ctx context.Context, items []T, concurrency int, op func(context.Context, T) R) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var next atomic.Int64
	var g errgroup.Group
	for w := 0; w < min(concurrency, len(items)); w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				// each worker writes only the slot it claimed
				results[i] = op(ctx, items[i])
			}
		})
	}

	return results, g.Wait()
}
