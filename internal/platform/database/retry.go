package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how connection acquisition is retried: a fixed delay
// between at most MaxAttempts tries.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy is five attempts two seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Delay: 2 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Retry runs op until it succeeds, returns a backoff.Permanent error, the
// attempts are exhausted, or ctx is done. notify, if set, is called before
// each wait.
func Retry[T any](ctx context.Context, p RetryPolicy, op func() (T, error), notify func(attempt int, err error)) (T, error) {
	p = p.normalized()
	attempt := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, _ time.Duration) {
			notify(attempt, err)
		}))
	}
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op()
	}, opts...)
}
