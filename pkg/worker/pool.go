package worker

import (
	"context"
	"sync"
)

// Result pairs one item's output with its per-item error
type Result[R any] struct {
	Value R
	Err   error
}

// Map fans items out over a fixed number of worker goroutines and returns
// the results in input order, so parallelizing a fetch loop never changes
// downstream upsert ordering. Cancellation is honored at each iteration
// boundary: remaining items are abandoned and ctx.Err() is returned along
// with whatever completed.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) ([]Result[R], error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				value, err := fn(ctx, items[i])
				results[i] = Result[R]{Value: value, Err: err}
			}
		}()
	}

	var ctxErr error
feed:
	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results, ctxErr
}
