// Package coordinator fans master batches out to workers and joins their results.
//
// Workers never share mutable state: each returns an owned result that the
// coordinator merges after every worker of the batch has finished. The first
// worker error cancels its siblings and fails the whole master batch.
package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// WorkFunc processes one sub-batch and returns its owned result.
type WorkFunc[In, Out any] func(ctx context.Context, sub []In) (Out, error)

// Partition splits items into at most n contiguous sub-batches. The first
// len(items)%n sub-batches get one extra item. Empty sub-batches are omitted.
func Partition[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}

	if n <= 0 {
		n = 1
	}

	if n > len(items) {
		n = len(items)
	}

	size, extra := len(items)/n, len(items)%n
	parts := make([][]T, 0, n)
	start := 0

	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}

		parts = append(parts, items[start:end])
		start = end
	}

	return parts
}

type indexed[Out any] struct {
	index  int
	result Out
}

// Run partitions batch across workers and returns the worker results in
// sub-batch order. Any worker error cancels the others and is returned wrapped
// in ErrWorkerFailed; no partial results are returned in that case.
func Run[In, Out any](ctx context.Context, batch []In, workers int, fn WorkFunc[In, Out]) ([]Out, error) {
	parts := Partition(batch, workers)
	if len(parts) == 0 {
		return nil, nil
	}

	results := make(chan indexed[Out], len(parts))
	g, gctx := errgroup.WithContext(ctx)

	for i, part := range parts {
		g.Go(func() error {
			out, err := fn(gctx, part)
			if err != nil {
				return fmt.Errorf("%w: worker %d: %w", apperrors.ErrWorkerFailed, i, err)
			}

			results <- indexed[Out]{index: i, result: out}

			return nil
		})
	}

	err := g.Wait()
	close(results)

	if err != nil {
		return nil, err
	}

	merged := make([]Out, len(parts))
	for r := range results {
		merged[r.index] = r.result
	}

	return merged, nil
}
