package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/blog-engagement-api/internal/models"
	"github.com/rs/zerolog"
)

// retryPolicy bounds the optimistic retry loop: at most maxRetries extra
// attempts, exponential backoff from backoff capped at maxBackoff
type retryPolicy struct {
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

// delay returns the wait before retry n (0-based), with jitter in the
// upper half so contending writers spread out
func (p retryPolicy) delay(n int) time.Duration {
	d := p.backoff
	for i := 0; i < n && d < p.maxBackoff; i++ {
		d *= 2
	}
	if p.maxBackoff > 0 && d > p.maxBackoff {
		d = p.maxBackoff
	}
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// finalError stops the retry loop while keeping the kind of err
type finalError struct {
	err error
}

func (e finalError) Error() string { return e.err.Error() }
func (e finalError) Unwrap() error { return e.err }

// final marks err as not retryable regardless of its kind. Used when the
// outcome of a write is unknown and repeating it could apply it twice.
func final(err error) error {
	return finalError{err: err}
}

// do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. Only Conflict and StorageUnavailable are retried.
func (p retryPolicy) do(ctx context.Context, log zerolog.Logger, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var stop finalError
		if errors.As(err, &stop) {
			log.Warn().Err(stop.err).Str("op", op).Int("attempts", attempt+1).Msg("Write outcome unknown, not retrying")
			return stop.err
		}
		if !models.IsRetryable(err) {
			return err
		}
		if attempt >= p.maxRetries {
			log.Warn().Err(err).Str("op", op).Int("attempts", attempt+1).Msg("Retries exhausted")
			return err
		}

		wait := p.delay(attempt)
		log.Debug().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("backoff", wait).Msg("Retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}
