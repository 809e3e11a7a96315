package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelaySchedule(t *testing.T) {
	p := Policy{MaxAttempts: 5, MinDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 1*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
	assert.Equal(t, 10*time.Second, p.Delay(5))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	var notified []int
	p := Policy{
		MaxAttempts: 5,
		Notify: func(attempt int, err error, wait time.Duration) {
			notified = append(notified, attempt)
		},
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestDoStopsAtCeiling(t *testing.T) {
	p := Policy{MaxAttempts: 4}
	cause := errors.New("503")

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return cause
	})

	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, cause)
}

func TestDoPermanent(t *testing.T) {
	cause := errors.New("401")
	calls := 0
	err := Policy{MaxAttempts: 5}.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(cause)
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, cause, err)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, MinDelay: time.Hour}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConstantPolicyWaitsTheSameDelay(t *testing.T) {
	p := Constant(3, time.Millisecond)

	assert.Equal(t, time.Millisecond, p.Delay(1))
	assert.Equal(t, time.Millisecond, p.Delay(2))

	var waits []time.Duration
	p.Notify = func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("mismatch")
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, waits)
}

func TestDoPermanentOnLastAttempt(t *testing.T) {
	cause := errors.New("403")
	err := Policy{MaxAttempts: 2}.Do(context.Background(), func(ctx context.Context, attempt int) error {
		if attempt == 2 {
			return Permanent(cause)
		}
		return errors.New("transient")
	})

	assert.Same(t, cause, err)
	assert.NotErrorIs(t, err, ErrExhausted)
}
