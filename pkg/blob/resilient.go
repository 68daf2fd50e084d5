package blob

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/resilience"
)

// ResilientStore retries transient failures of an underlying Store and
// stops calling it while its circuit breaker is open. Absent blobs and
// cancelled contexts are neither retried nor counted as failures.
type ResilientStore struct {
	store   Store
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewResilientStore wraps store. Zero-valued configs take the resilience
// package defaults.
func NewResilientStore(store Store, name string, cbCfg resilience.CircuitBreakerConfig, retryCfg resilience.RetryConfig) *ResilientStore {
	cbCfg.IsFailure = isTransient
	retryCfg.Retryable = isTransient
	return &ResilientStore{
		store:   store,
		breaker: resilience.NewCircuitBreaker(name, cbCfg),
		retry:   retryCfg,
	}
}

// Get fetches folder/name through the breaker and retry policy.
func (r *ResilientStore) Get(ctx context.Context, folder, name string) ([]byte, error) {
	var data []byte
	err := r.breaker.Execute(func() error {
		return resilience.Retry(ctx, "blob.get", r.retry, func() error {
			b, err := r.store.Get(ctx, folder, name)
			if err != nil {
				return err
			}
			data = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// BreakerState reports the circuit state of the wrapped store.
func (r *ResilientStore) BreakerState() resilience.State {
	return r.breaker.State()
}

func isTransient(err error) bool {
	if IsNotFound(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
