package retry

import (
	"context"
	"time"
)

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// ErrorClassifier determines if an error is retryable
type ErrorClassifier func(error) bool

// Options defines the configuration for retries.
// The backoff is a fixed interval between attempts, not exponential:
// a call that keeps failing sleeps MaxAttempts-1 times for Interval each.
type Options struct {
	MaxAttempts int
	Interval    time.Duration
	Classifier  ErrorClassifier

	// OnBackoff, when set, is invoked before each wait with the number of
	// the attempt that just failed. Used for accounting and tests.
	OnBackoff func(attempt int)
}

// DefaultOptions returns the retry policy used against the Steam API:
// four attempts with a fixed two second wait, retrying every error unless
// a classifier says otherwise.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 4,
		Interval:    2 * time.Second,
		Classifier: func(err error) bool {
			return true
		},
	}
}

// Do executes the function, retrying retryable failures at a fixed interval.
// The last error is returned once attempts are exhausted. A non-retryable
// error is returned immediately without further attempts or sleeps.
func Do(ctx context.Context, fn RetryableFunc, opts Options) error {
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if opts.Classifier != nil && !opts.Classifier(err) {
			return err
		}

		// Don't wait on last attempt
		if attempt == opts.MaxAttempts {
			break
		}

		if opts.OnBackoff != nil {
			opts.OnBackoff(attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.Interval):
		}
	}

	return lastErr
}
