package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayCapsAtMax(t *testing.T) {
	p := DefaultPolicy(10)
	d := p.Delay(20)
	assert.LessOrEqual(t, d, p.Max+time.Duration(float64(p.Max)*p.Jitter))
}

func TestDelayGrowsExponentially(t *testing.T) {
	p := Policy{Base: 100 * time.Millisecond, Factor: 2, Max: time.Hour, Jitter: 0}
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
}

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy(3), nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, Base: time.Millisecond, Factor: 1, Max: time.Millisecond, Jitter: 0}
	calls := 0
	err := Do(context.Background(), p, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnTerminalError(t *testing.T) {
	calls := 0
	terminal := errors.New("terminal")
	err := Do(context.Background(), DefaultPolicy(5), func(e error) bool { return e == terminal }, func(ctx context.Context) error {
		calls++
		return terminal
	})
	assert.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxAttempts: 3, Base: time.Second, Factor: 1, Max: time.Second}
	err := Do(ctx, p, nil, func(ctx context.Context) error { return errors.New("x") })
	assert.Error(t, err)
}
