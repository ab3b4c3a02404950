package historical

import (
	"time"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// BinaryBidAsk is the on-disk record layout: 40 bytes, little endian.
type BinaryBidAsk struct {
	TimeStamp int64
	Bid       float64
	Ask       float64
	BidSize   float64
	AskSize   float64
}

func (b BinaryBidAsk) ToBidAsk(ticker string) common.BidAsk {
	return common.BidAsk{
		Ticker:    ticker,
		TimeStamp: time.Unix(0, b.TimeStamp).UTC(),
		Bid:       fixed.FromFloat64(b.Bid),
		Ask:       fixed.FromFloat64(b.Ask),
		BidSize:   fixed.FromFloat64(b.BidSize),
		AskSize:   fixed.FromFloat64(b.AskSize),
	}
}

func FromBidAsk(obs common.BidAsk) BinaryBidAsk {
	bid, _ := obs.Bid.Float64()
	ask, _ := obs.Ask.Float64()
	bidSize, _ := obs.BidSize.Float64()
	askSize, _ := obs.AskSize.Float64()
	return BinaryBidAsk{
		TimeStamp: obs.TimeStamp.UnixNano(),
		Bid:       bid,
		Ask:       ask,
		BidSize:   bidSize,
		AskSize:   askSize,
	}
}
