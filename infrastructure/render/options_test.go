package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()
	assert.Equal(t, 30*time.Second, o.Timeout)
	assert.Equal(t, 2, o.Sessions)
	assert.Equal(t, 5*1024*1024, o.MaxBodyBytes)

	o = Options{Timeout: time.Second, Sessions: 4, SettleDelay: -time.Second}.WithDefaults()
	assert.Equal(t, time.Second, o.Timeout)
	assert.Equal(t, 4, o.Sessions)
	assert.Zero(t, o.SettleDelay)
}

func TestNewSessions_BoundsConcurrency(t *testing.T) {
	sem := NewSessions(1)
	require.NoError(t, sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sem.Acquire(ctx, 1), context.DeadlineExceeded)

	sem.Release(1)
	assert.NoError(t, sem.Acquire(context.Background(), 1))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestSleep_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Minute), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}
