package sandbox

import (
	"fmt"
	"maps"
	"slices"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

type fill struct {
	Commission  fixed.Point
	RealizedPnL fixed.Point
	Position    common.Position
}

// Ledger books fills against the account. A rejected fill leaves it untouched.
type Ledger struct {
	initial    common.Account
	account    common.Account
	commission CommissionSchedule
}

func NewLedger(account common.Account, commission CommissionSchedule) *Ledger {
	account = withMaps(account)
	return &Ledger{
		initial:    account.Clone(),
		account:    account.Clone(),
		commission: commission,
	}
}

func (l *Ledger) Account() common.Account {
	return l.account.Clone()
}

func (l *Ledger) Position(ticker string) (common.Position, bool) {
	position, ok := l.account.Positions[ticker]
	return position, ok
}

// Positions are sorted by ticker.
func (l *Ledger) Positions() []common.Position {
	tickers := slices.Sorted(maps.Keys(l.account.Positions))
	positions := make([]common.Position, 0, len(tickers))
	for _, ticker := range tickers {
		positions = append(positions, l.account.Positions[ticker])
	}
	return positions
}

func (l *Ledger) Currencies() []string {
	currencies := make(map[string]struct{})
	for currency := range l.account.Cash {
		currencies[currency] = struct{}{}
	}
	for _, position := range l.account.Positions {
		currencies[position.Currency] = struct{}{}
	}
	return slices.Sorted(maps.Keys(currencies))
}

func (l *Ledger) Reset() {
	l.account = l.initial.Clone()
}

func (l *Ledger) Fill(ticker, currency string, side common.OrderSide, quantity, price fixed.Point) (fill, error) {
	position, existed := l.account.Positions[ticker]
	if !existed {
		position = common.Position{
			Account:  l.account.Code,
			Ticker:   ticker,
			Currency: currency,
		}
	}

	total := quantity.Mul(price)
	cash := l.account.Cash[currency]
	result := fill{Commission: l.commission.Commission(quantity, price)}

	switch side {
	case common.OrderSideBuy:
		if total.Gt(cash) {
			return fill{}, fmt.Errorf("%w: buying %s %s for %s with %s %s available",
				ErrInsufficientFunds, quantity, ticker, total, cash, currency)
		}
		// Not weighted by quantity.
		if position.Quantity.IsPositive() {
			position.AverageCost = position.AverageCost.Add(price).DivInt64(2)
		} else {
			position.AverageCost = price
		}
		position.Quantity = position.Quantity.Add(quantity)
		cash = cash.Sub(total)
	case common.OrderSideSell:
		if position.Quantity.Lt(quantity) {
			return fill{}, fmt.Errorf("%w: selling %s %s with %s held",
				ErrInsufficientPosition, quantity, ticker, position.Quantity)
		}
		position.Quantity = position.Quantity.Sub(quantity)
		result.RealizedPnL = quantity.Mul(price.Sub(position.AverageCost))
		position.RealizedPnL = position.RealizedPnL.Add(result.RealizedPnL)
		l.account.RealizedPnL[currency] = l.account.RealizedPnL[currency].Add(result.RealizedPnL)
		cash = cash.Add(total)
	default:
		return fill{}, fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, side)
	}

	l.account.Cash[currency] = cash.Sub(result.Commission)
	l.account.Commissions[currency] = l.account.Commissions[currency].Add(result.Commission)

	position.MarketPrice = price
	position.UnrealizedPnL = unrealized(position)
	l.account.Positions[ticker] = position
	l.refreshUnrealized(currency)

	result.Position = position
	return result, nil
}

// Mark revalues a position at price. It reports whether the position changed.
func (l *Ledger) Mark(ticker string, price fixed.Point) (common.Position, bool) {
	position, ok := l.account.Positions[ticker]
	if !ok || position.MarketPrice.Eq(price) {
		return position, false
	}

	position.MarketPrice = price
	position.UnrealizedPnL = unrealized(position)
	l.account.Positions[ticker] = position
	l.refreshUnrealized(position.Currency)
	return position, true
}

func (l *Ledger) refreshUnrealized(currency string) {
	total := fixed.Zero
	for _, position := range l.account.Positions {
		if position.Currency == currency {
			total = total.Add(position.UnrealizedPnL)
		}
	}
	l.account.UnrealizedPnL[currency] = total
}

func unrealized(position common.Position) fixed.Point {
	if !position.Quantity.IsPositive() {
		return fixed.Zero
	}
	return position.Quantity.Mul(position.MarketPrice.Sub(position.AverageCost))
}

func withMaps(account common.Account) common.Account {
	if account.Cash == nil {
		account.Cash = make(map[string]fixed.Point)
	}
	if account.RealizedPnL == nil {
		account.RealizedPnL = make(map[string]fixed.Point)
	}
	if account.UnrealizedPnL == nil {
		account.UnrealizedPnL = make(map[string]fixed.Point)
	}
	if account.Commissions == nil {
		account.Commissions = make(map[string]fixed.Point)
	}
	if account.Positions == nil {
		account.Positions = make(map[string]common.Position)
	}
	return account
}
