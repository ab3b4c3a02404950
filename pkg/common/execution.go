package common

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

type ExecutionId = int64

type CommissionReport struct {
	Commission  fixed.Point `json:"commission"`
	Currency    string      `json:"currency"`
	RealizedPnL fixed.Point `json:"realized_pnl"`
}

// Execution is the immutable record of one fill.
type Execution struct {
	Id         ExecutionId      `json:"id"`
	OrderId    OrderId          `json:"order_id"`
	Ticker     string           `json:"ticker"`
	Side       OrderSide        `json:"side"`
	Quantity   fixed.Point      `json:"quantity"`
	AvgPrice   fixed.Point      `json:"avg_price"`
	Commission CommissionReport `json:"commission"`

	Meta
}

// Notional is quantity times fill price, before commission.
func (e Execution) Notional() fixed.Point {
	return e.Quantity.Mul(e.AvgPrice)
}

func (e Execution) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("execution_id", e.Id),
		zap.Int64("order_id", e.OrderId),
		zap.String("ticker", e.Ticker),
		zap.Stringer("side", e.Side),
		zap.String("quantity", e.Quantity.String()),
		zap.String("avg_price", e.AvgPrice.String()),
		zap.String("commission", e.Commission.Commission.String()),
		zap.String("realized_pnl", e.Commission.RealizedPnL.String()),
		zap.Time("ts", e.TimeStamp),
	}
}
