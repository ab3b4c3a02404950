package exchange

import (
	"context"
	"time"

	"github.com/peter-kozarec/sandbox/pkg/common"
)

// MarketTape yields the recorded observations of a ticker in [from, to),
// ordered by timestamp. Fetch must be idempotent.
type MarketTape interface {
	Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error)
}

type Clock interface {
	Now() time.Time
}

// TapeFunc adapts a function to MarketTape.
type TapeFunc func(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error)

func (f TapeFunc) Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	return f(ctx, ticker, from, to)
}
