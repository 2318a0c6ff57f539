package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errFlaky = errors.New("flaky")
	errFatal = errors.New("fatal")
)

func fast(extra ...Option) *Retrier {
	return New(append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}, extra...)...)
}

func onlyFlaky(err error) bool { return errors.Is(err, errFlaky) }

func TestDo_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := fast(WithMaxAttempts(5)).Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsWhenRetryIfRejects(t *testing.T) {
	attempts := 0
	err := fast(WithRetryIf(onlyFlaky)).Do(context.Background(), func(context.Context) error {
		attempts++
		return errFatal
	})

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var retried []int
	attempts := 0
	err := fast(
		WithMaxAttempts(3),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }),
	).Do(context.Background(), func(context.Context) error {
		attempts++
		return errFlaky
	})

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().Do(ctx, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_CancelDuringWaitReturnsLastError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(WithInitialDelay(time.Hour), WithJitter(0))

	err := r.Do(ctx, func(context.Context) error {
		cancel()
		return errFlaky
	})
	assert.Equal(t, errFlaky, err)
}

func TestDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithMaxDelay(300*time.Millisecond), WithMultiplier(2), WithJitter(0))

	assert.Equal(t, 100*time.Millisecond, r.delay(1))
	assert.Equal(t, 200*time.Millisecond, r.delay(2))
	assert.Equal(t, 300*time.Millisecond, r.delay(5))
}

func TestConnectRetrier_RetriesEverything(t *testing.T) {
	r := ConnectRetrier(nil)
	assert.Equal(t, 6, r.config.MaxAttempts)
	assert.True(t, r.shouldRetry(errFatal))
}

func TestJobRetrier(t *testing.T) {
	r := JobRetrier(onlyFlaky)
	r.config.InitialDelay = time.Millisecond
	r.config.JitterFactor = 0

	attempts := 0
	err := r.Do(context.Background(), func(context.Context) error {
		attempts++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, attempts)
	assert.False(t, r.shouldRetry(errFatal))
}
