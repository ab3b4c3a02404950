package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleep_BusyWait(t *testing.T) {
	began := time.Now()
	require.NoError(t, Sleep(context.Background(), 2*time.Millisecond, DefaultCoarseTimerThreshold))
	assert.GreaterOrEqual(t, time.Since(began), 2*time.Millisecond)
}

func TestSleep_CoarseTimer(t *testing.T) {
	began := time.Now()
	require.NoError(t, Sleep(context.Background(), 30*time.Millisecond, DefaultCoarseTimerThreshold))
	assert.GreaterOrEqual(t, time.Since(began), 30*time.Millisecond)
}

func TestSleep_ZeroDuration(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0, DefaultCoarseTimerThreshold))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, Sleep(ctx, time.Millisecond, DefaultCoarseTimerThreshold), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, time.Minute, DefaultCoarseTimerThreshold), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, 0, DefaultCoarseTimerThreshold), context.Canceled)
}

func TestConfiguration_SecondDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), Configuration{}.SecondDuration())
	assert.Equal(t, time.Duration(0), Configuration{Compression: -1}.SecondDuration())
	assert.Equal(t, time.Second, Configuration{Compression: 1}.SecondDuration())
	assert.Equal(t, 100*time.Millisecond, Configuration{Compression: 10}.SecondDuration())
}

func TestClock(t *testing.T) {
	fixed := FixedClock(testStart)
	assert.Equal(t, testStart, fixed.Now())
	assert.WithinDuration(t, time.Now(), WallClock{}.Now(), time.Second)
}
