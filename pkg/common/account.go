package common

import (
	"maps"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const (
	AccountValueCashBalance    = "CashBalance"
	AccountValueNetLiquidation = "NetLiquidation"
	AccountValueBuyingPower    = "BuyingPower"
	AccountValueRealizedPnL    = "RealizedPnL"
	AccountValueUnrealizedPnL  = "UnrealizedPnL"
	AccountValueCommissions    = "Commissions"
)

// Account is keyed by currency for money and by ticker for positions.
type Account struct {
	Code          string                 `json:"code"`
	BaseCurrency  string                 `json:"base_currency"`
	Cash          map[string]fixed.Point `json:"cash"`
	RealizedPnL   map[string]fixed.Point `json:"realized_pnl"`
	UnrealizedPnL map[string]fixed.Point `json:"unrealized_pnl"`
	Commissions   map[string]fixed.Point `json:"commissions"`
	Positions     map[string]Position    `json:"positions"`
}

func NewAccount(code, baseCurrency string, balance fixed.Point) Account {
	return Account{
		Code:          code,
		BaseCurrency:  baseCurrency,
		Cash:          map[string]fixed.Point{baseCurrency: balance},
		RealizedPnL:   make(map[string]fixed.Point),
		UnrealizedPnL: make(map[string]fixed.Point),
		Commissions:   make(map[string]fixed.Point),
		Positions:     make(map[string]Position),
	}
}

func (a Account) Clone() Account {
	c := a
	c.Cash = maps.Clone(a.Cash)
	c.RealizedPnL = maps.Clone(a.RealizedPnL)
	c.UnrealizedPnL = maps.Clone(a.UnrealizedPnL)
	c.Commissions = maps.Clone(a.Commissions)
	c.Positions = maps.Clone(a.Positions)
	return c
}

// NetLiquidation is cash plus the marked value of every position in currency.
func (a Account) NetLiquidation(currency string) fixed.Point {
	value := a.Cash[currency]
	for _, position := range a.Positions {
		if position.Currency == currency {
			value = value.Add(position.MarketValue())
		}
	}
	return value
}

type AccountValue struct {
	Account  string      `json:"account"`
	Key      string      `json:"key"`
	Value    fixed.Point `json:"value"`
	Currency string      `json:"currency"`

	Meta
}

func (v AccountValue) Fields() []zap.Field {
	return []zap.Field{
		zap.String("account", v.Account),
		zap.String("key", v.Key),
		zap.String("value", v.Value.String()),
		zap.String("currency", v.Currency),
	}
}

type PnL struct {
	Account       string      `json:"account"`
	Currency      string      `json:"currency"`
	DailyPnL      fixed.Point `json:"daily_pnl"`
	RealizedPnL   fixed.Point `json:"realized_pnl"`
	UnrealizedPnL fixed.Point `json:"unrealized_pnl"`

	Meta
}

func (p PnL) Fields() []zap.Field {
	return []zap.Field{
		zap.String("account", p.Account),
		zap.String("currency", p.Currency),
		zap.String("daily_pnl", p.DailyPnL.String()),
		zap.String("realized_pnl", p.RealizedPnL.String()),
		zap.String("unrealized_pnl", p.UnrealizedPnL.String()),
	}
}
