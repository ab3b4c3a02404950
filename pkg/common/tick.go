package common

import (
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// BidAsk is one top-of-book observation from the recorded tape.
type BidAsk struct {
	Ticker    string      `json:"ticker"`
	TimeStamp time.Time   `json:"ts"`
	Bid       fixed.Point `json:"bid"`
	Ask       fixed.Point `json:"ask"`
	BidSize   fixed.Point `json:"bid_size"`
	AskSize   fixed.Point `json:"ask_size"`
}

// Second is the tick the observation belongs to.
func (b BidAsk) Second() time.Time {
	return b.TimeStamp.Truncate(time.Second)
}

func (b BidAsk) Fields() []zap.Field {
	return []zap.Field{
		zap.String("ticker", b.Ticker),
		zap.Time("ts", b.TimeStamp),
		zap.String("bid", b.Bid.String()),
		zap.String("ask", b.Ask.String()),
	}
}
