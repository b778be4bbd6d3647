package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/logger"
)

func testConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesNetworkErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.KindNetwork, "connection reset")
		}
		return nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryRateLimit(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errs.New(errs.KindRateLimit, "slow down")
	}, testConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls, "rate limits must never be retried automatically")
	assert.True(t, errs.IsRateLimit(err))
}

func TestDoDoesNotRetryChallenge(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errs.New(errs.KindChallenge, "verify yourself")
	}, testConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errs.New(errs.KindNetwork, "still down")
	}, testConfig())

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts")
	// The classified error survives the wrapping
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	cfg := testConfig()
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errs.New(errs.KindNetwork, "flaky")
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.KindNetwork, "flaky")
		}
		return "done", nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, calls)
}

func TestCustomRetryIf(t *testing.T) {
	calls := 0
	cfg := testConfig()
	cfg.RetryIf = func(err error) bool { return true }

	err := Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("opaque failure")
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestOnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := testConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), func() error {
		return errs.New(errs.KindNetwork, "flaky")
	}, cfg)

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
	assert.Equal(t, 10*time.Second, eb.NextDelay(10), "growth is capped at MaxDelay")
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 50; i++ {
		d := eb.NextDelay(2)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}
