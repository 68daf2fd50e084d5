package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout returns fn's result, or an error wrapping
// context.DeadlineExceeded once timeout passes even if fn ignores its
// context. A non-positive timeout runs fn without a deadline.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if ctx.Err() == context.DeadlineExceeded {
			return zero, fmt.Errorf("%s: no result within %v: %w", name, timeout, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w", name, ctx.Err())
	}
}
