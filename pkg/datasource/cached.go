package datasource

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
)

type rangeKey struct {
	ticker string
	from   int64
	to     int64
}

// Cached remembers every fetched range so the backing tape is hit once per
// ticker and range, even across resets of the simulated day.
type Cached struct {
	tape exchange.MarketTape

	mu    sync.Mutex
	cache map[rangeKey][]common.BidAsk
	hits  uint64
	miss  uint64
}

func NewCached(tape exchange.MarketTape) *Cached {
	return &Cached{
		tape:  tape,
		cache: make(map[rangeKey][]common.BidAsk),
	}
}

func (c *Cached) Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	key := rangeKey{ticker: exchange.Key(ticker), from: from.UnixNano(), to: to.UnixNano()}

	c.mu.Lock()
	observations, ok := c.cache[key]
	if ok {
		c.hits++
	}
	c.mu.Unlock()

	if ok {
		return slices.Clone(observations), nil
	}

	observations, err := c.tape.Fetch(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = slices.Clone(observations)
	c.miss++
	c.mu.Unlock()

	return observations, nil
}

// Stats returns the number of cache hits and misses.
func (c *Cached) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.miss
}
