package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

var start = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func p(s string) fixed.Point {
	return fixed.MustParse(s)
}

func assertPoint(t *testing.T, want string, got fixed.Point, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, got.Eq(p(want)), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func quote(bid, ask string) common.BidAsk {
	return common.BidAsk{Ticker: "AAPL", TimeStamp: start, Bid: p(bid), Ask: p(ask)}
}

// flat is one identical observation per second for n seconds.
func flat(ticker string, n int, bid, ask string) []common.BidAsk {
	observations := make([]common.BidAsk, 0, n)
	for i := range n {
		observations = append(observations, common.BidAsk{
			Ticker:    ticker,
			TimeStamp: start.Add(time.Duration(i) * time.Second),
			Bid:       p(bid),
			Ask:       p(ask),
		})
	}
	return observations
}
