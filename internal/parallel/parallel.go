// Package parallel provides a barrier-style data-parallel loop.
//
// Each call splits [0, n) into contiguous chunks, runs them on at most
// `workers` goroutines and returns only after every chunk finished, so
// the caller can treat a call as one synchronous phase of a round.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk keeps tiny loops on the calling goroutine.
const minChunk = 256

// For runs fn over [0, n) in chunks. fn receives a half-open range
// [lo, hi) and must only write state owned by that range.
func For(ctx context.Context, n, workers int, fn func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	chunks := workers
	if n/chunks < minChunk {
		chunks = max(1, n/minChunk)
	}
	if chunks == 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(0, n)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	size := (n + chunks - 1) / chunks
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(lo, hi)
			return nil
		})
	}

	return g.Wait()
}
