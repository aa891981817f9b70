package pipeline

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region constants
const maxRetries = 2 // max 2 retries = 3 total attempts

// retryBackoff is the wait before the first retry; it doubles per attempt.
var retryBackoff = 150 * time.Millisecond

// #endregion constants

// #region retry
// withRetry calls fn until it succeeds, fails with a non-transient error, or
// maxRetries is exhausted. The last error is returned.
func withRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil || attempt >= maxRetries || !transient(err) {
			return v, err
		}

		timer := time.NewTimer(retryBackoff << attempt)
		select {
		case <-ctx.Done():
			timer.Stop()
			return v, err
		case <-timer.C:
		}
	}
}

// transient reports whether a collaborator error is worth another attempt.
// Only gRPC unavailability and rate limiting qualify.
func transient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// #endregion retry
