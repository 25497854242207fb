package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry wraps a transport with exponential backoff on stream
// establishment. Failures after the stream opens are not retried here;
// mid-stream recovery is the session's job because it may need to
// re-ask the model rather than replay the identical request.
type Retry struct {
	inner           Transport
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewRetry wraps inner with up to maxRetries reconnection attempts.
func NewRetry(inner Transport, maxRetries uint64) *Retry {
	return &Retry{
		inner:           inner,
		maxRetries:      maxRetries,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     30 * time.Second,
	}
}

// Stream implements Transport.
func (r *Retry) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval
	policy.MaxInterval = r.maxInterval

	var out <-chan Chunk
	operation := func() error {
		ch, err := r.inner.Stream(ctx, req)
		if err != nil {
			return err
		}
		out = ch
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}
