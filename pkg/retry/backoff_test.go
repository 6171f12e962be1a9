package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastConfig() Config {
	return Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestWithBackoff_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "op", func() error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_PermanentStops(t *testing.T) {
	cause := errors.New("bad dsn")
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "op", func() error {
		calls++
		return Permanent(cause)
	})
	require.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff_Capped(t *testing.T) {
	cfg := Config{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, calculateBackoff(cfg, 1))
	assert.Equal(t, 4*time.Second, calculateBackoff(cfg, 3))
	assert.Equal(t, 5*time.Second, calculateBackoff(cfg, 10))
}

func TestOptionalConfigGivesUpQuickly(t *testing.T) {
	cfg := OptionalConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Less(t, cfg.MaxDelay, DefaultConfig().InitialDelay+time.Second)
}
