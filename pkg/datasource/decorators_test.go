package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/datasource/memory"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
)

var start = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func newRetrying(tape exchange.MarketTape, retries uint64) *Retrying {
	r := NewRetrying(zap.NewNop(), tape, retries)
	r.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

func TestCached_FetchesOncePerRange(t *testing.T) {
	calls := 0
	inner := memory.NewTape(memory.Series("AAPL", start, [2]string{"1", "2"}, [2]string{"1.5", "2.5"})...)
	tape := NewCached(exchange.TapeFunc(func(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
		calls++
		return inner.Fetch(ctx, ticker, from, to)
	}))

	for range 3 {
		observations, err := tape.Fetch(context.Background(), "aapl", start, start.Add(time.Minute))
		require.NoError(t, err)
		assert.Len(t, observations, 2)
	}

	_, err := tape.Fetch(context.Background(), "AAPL", start, start.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	hits, misses := tape.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	calls := 0
	tape := NewCached(exchange.TapeFunc(func(context.Context, string, time.Time, time.Time) ([]common.BidAsk, error) {
		calls++
		return nil, errors.New("unavailable")
	}))

	_, err := tape.Fetch(context.Background(), "AAPL", start, start.Add(time.Minute))
	assert.Error(t, err)
	_, err = tape.Fetch(context.Background(), "AAPL", start, start.Add(time.Minute))
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrying_RecoversFromTransientFailures(t *testing.T) {
	calls := 0
	tape := newRetrying(exchange.TapeFunc(func(context.Context, string, time.Time, time.Time) ([]common.BidAsk, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return memory.Series("AAPL", start, [2]string{"1", "2"}), nil
	}), 5)

	observations, err := tape.Fetch(context.Background(), "AAPL", start, start.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, observations, 1)
	assert.Equal(t, 3, calls)
}

func TestRetrying_GivesUp(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	tape := newRetrying(exchange.TapeFunc(func(context.Context, string, time.Time, time.Time) ([]common.BidAsk, error) {
		calls++
		return nil, boom
	}), 2)

	_, err := tape.Fetch(context.Background(), "AAPL", start, start.Add(time.Minute))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetrying_DoesNotRetryCancellation(t *testing.T) {
	calls := 0
	tape := newRetrying(exchange.TapeFunc(func(ctx context.Context, _ string, _, _ time.Time) ([]common.BidAsk, error) {
		calls++
		return nil, context.Canceled
	}), 5)

	_, err := tape.Fetch(context.Background(), "AAPL", start, start.Add(time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
