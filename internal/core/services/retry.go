package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// Default timeouts for external model calls. Each call gets one retry
// after a short backoff; a second failure surfaces to the caller.
const (
	embedCallTimeout    = 30 * time.Second
	generateCallTimeout = 90 * time.Second
	retryBackoff        = 2 * time.Second
)

// callWithTimeout runs fn under a deadline and retries once on failure.
// Deadline expiry maps to domain.ErrServiceTimeout so callers can
// distinguish a slow service from a broken one.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempt := func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		out, err := fn(callCtx)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %v", domain.ErrServiceTimeout, err)
		}
		return out, err
	}

	out, err := attempt()
	if err == nil {
		return out, nil
	}
	// Do not retry when the session itself was cancelled.
	if ctx.Err() != nil {
		return zero, err
	}

	logger.Warn("Service call failed, retrying in %s: %v", retryBackoff, err)
	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return zero, err
	}

	return attempt()
}
