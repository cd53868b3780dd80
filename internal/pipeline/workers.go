package pipeline

import (
	"context"
	"sync"
)

// runPool hands items to n workers over an unbuffered channel and returns once
// every worker has finished. Items not yet handed out when ctx is cancelled are
// skipped.
func runPool[T any](ctx context.Context, n int, items []T, work func(context.Context, T)) {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	jobs := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				work(ctx, item)
			}
		}()
	}

feed:
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}
