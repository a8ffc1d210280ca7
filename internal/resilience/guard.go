package resilience

import (
	"context"

	"github.com/rotisserie/eris"
)

// Guard pairs a retry policy with a circuit breaker. Each attempt passes
// through the breaker; a rejection by an open circuit is never retried.
type Guard struct {
	Retry   RetryConfig
	Breaker *CircuitBreaker
}

// NewGuard creates a Guard with a fresh breaker.
func NewGuard(retry RetryConfig, circuit CircuitBreakerConfig) *Guard {
	return &Guard{Retry: retry, Breaker: NewCircuitBreaker(circuit)}
}

// Call runs fn under g's retry policy and breaker.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := g.Retry
	base := retry.ShouldRetry
	if base == nil {
		base = IsTransient
	}
	retry.ShouldRetry = func(err error) bool {
		return !eris.Is(err, ErrCircuitOpen) && base(err)
	}

	return DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		if g.Breaker == nil {
			return fn(ctx)
		}
		return ExecuteVal(ctx, g.Breaker, fn)
	})
}
