package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// Tape keeps observations in memory, keyed by ticker.
type Tape struct {
	mu           sync.RWMutex
	observations map[string][]common.BidAsk
}

func NewTape(observations ...common.BidAsk) *Tape {
	t := &Tape{observations: make(map[string][]common.BidAsk)}
	t.Add(observations...)
	return t
}

// Add appends observations and keeps every ticker ordered by timestamp.
func (t *Tape) Add(observations ...common.BidAsk) {
	t.mu.Lock()
	defer t.mu.Unlock()

	touched := make(map[string]struct{})
	for _, obs := range observations {
		key := exchange.Key(obs.Ticker)
		obs.Ticker = key
		t.observations[key] = append(t.observations[key], obs)
		touched[key] = struct{}{}
	}
	for key := range touched {
		slices.SortStableFunc(t.observations[key], func(a, b common.BidAsk) int {
			return a.TimeStamp.Compare(b.TimeStamp)
		})
	}
}

func (t *Tape) Fetch(_ context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	observations := t.observations[exchange.Key(ticker)]
	begin, _ := slices.BinarySearchFunc(observations, from, func(obs common.BidAsk, target time.Time) int {
		return obs.TimeStamp.Compare(target)
	})
	end, _ := slices.BinarySearchFunc(observations, to, func(obs common.BidAsk, target time.Time) int {
		return obs.TimeStamp.Compare(target)
	})
	if begin >= end {
		return nil, nil
	}
	return slices.Clone(observations[begin:end]), nil
}

// Series builds one observation per second starting at start, from bid/ask pairs.
func Series(ticker string, start time.Time, quotes ...[2]string) []common.BidAsk {
	observations := make([]common.BidAsk, 0, len(quotes))
	for i, quote := range quotes {
		observations = append(observations, common.BidAsk{
			Ticker:    ticker,
			TimeStamp: start.Add(time.Duration(i) * time.Second),
			Bid:       fixed.MustParse(quote[0]),
			Ask:       fixed.MustParse(quote[1]),
		})
	}
	return observations
}
