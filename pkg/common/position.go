package common

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// Position is long-only. It survives at zero quantity once created.
type Position struct {
	Account       string      `json:"account"`
	Ticker        string      `json:"ticker"`
	Currency      string      `json:"currency"`
	Quantity      fixed.Point `json:"quantity"`
	AverageCost   fixed.Point `json:"average_cost"`
	RealizedPnL   fixed.Point `json:"realized_pnl"`
	UnrealizedPnL fixed.Point `json:"unrealized_pnl"`
	MarketPrice   fixed.Point `json:"market_price"`

	Meta
}

func (p Position) IsOpen() bool {
	return p.Quantity.IsPositive()
}

func (p Position) MarketValue() fixed.Point {
	return p.Quantity.Mul(p.MarketPrice)
}

func (p Position) Fields() []zap.Field {
	return []zap.Field{
		zap.String("ticker", p.Ticker),
		zap.String("quantity", p.Quantity.String()),
		zap.String("average_cost", p.AverageCost.String()),
		zap.String("realized_pnl", p.RealizedPnL.String()),
		zap.String("unrealized_pnl", p.UnrealizedPnL.String()),
		zap.String("market_price", p.MarketPrice.String()),
	}
}
