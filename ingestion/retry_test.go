package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryTransientThenSuccess(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: flaky", core.ErrEmbedding)
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return fmt.Errorf("%w: still down", core.ErrStore)
	}, 3, time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStore)
	assert.Equal(t, 3, calls)
}

func TestRetryDeterministicErrorNotRetried(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return fmt.Errorf("%w: .xyz", core.ErrUnsupportedFormat)
	}, 5, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, calls, "deterministic errors must not be retried")
}

func TestRetryDimensionMismatchNotRetried(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return fmt.Errorf("%w: got 3, expected 768", core.ErrDimensionMismatch)
	}, 5, time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Equal(t, 1, calls)
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := retryWithBackoff(ctx, func() error {
		calls++
		cancel()
		return fmt.Errorf("%w: flaky", core.ErrEmbedding)
	}, 5, time.Hour)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestRetryInvalidAttempts(t *testing.T) {
	err := retryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}
