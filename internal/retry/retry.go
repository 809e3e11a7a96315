// Package retry runs an operation under an explicit attempt ceiling. The
// waiting between attempts is delegated to cenkalti/backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrExhausted is wrapped by the error Do returns when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds an operation. Delay before attempt n+1 is
// MinDelay * 2^(n-1), capped at MaxDelay. When MinDelay equals MaxDelay the
// delay is constant.
type Policy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration

	// Notify, when set, is called after each failed attempt that will be retried.
	Notify func(attempt int, err error, wait time.Duration)
}

// Constant returns a policy that waits delay between at most attempts tries.
func Constant(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, MinDelay: delay, MaxDelay: delay}
}

// Permanent marks err so that Do stops retrying and returns it unchanged.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) backOff() backoff.BackOff {
	switch {
	case p.MinDelay <= 0:
		return &backoff.ZeroBackOff{}
	case p.MaxDelay == p.MinDelay:
		return backoff.NewConstantBackOff(p.MinDelay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.MinDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval < p.MinDelay {
		b.MaxInterval = backoff.DefaultMaxInterval
		if b.MaxInterval < p.MinDelay {
			b.MaxInterval = p.MinDelay
		}
	}
	b.Reset()
	return b
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	b := p.backOff()
	var wait time.Duration
	for i := 0; i < attempt; i++ {
		wait = b.NextBackOff()
	}
	return wait
}

// Do calls op until it succeeds, returns a Permanent error, the context is
// done, or MaxAttempts is reached.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attempts := p.attempts()
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, op(ctx, attempt)
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if p.Notify != nil {
				p.Notify(attempt, err, wait)
			}
		}),
	)
	if err == nil {
		return nil
	}

	// The final attempt comes back still wrapped.
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if attempt < attempts {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
}
