package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
)

// Retrying retries failed fetches with exponential backoff. Context errors are
// never retried.
type Retrying struct {
	logger  *zap.Logger
	tape    exchange.MarketTape
	retries uint64
	backoff func() backoff.BackOff
}

func NewRetrying(logger *zap.Logger, tape exchange.MarketTape, retries uint64) *Retrying {
	return &Retrying{
		logger:  logger.Named("retrying_tape"),
		tape:    tape,
		retries: retries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

func (r *Retrying) Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	var observations []common.BidAsk

	operation := func() error {
		var err error
		observations, err = r.tape.Fetch(ctx, ticker, from, to)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("tape fetch failed, retrying",
			zap.String("ticker", ticker),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.backoff(), r.retries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return observations, nil
}
