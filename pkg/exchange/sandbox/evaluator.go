package sandbox

import (
	"fmt"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// Evaluate matches order against one observation. Stateful kinds (trailing stop,
// relative) are updated in place. On a fill it returns the price the order
// executes at, which is always the ask for buys and the bid for sells.
func Evaluate(order *common.Order, obs common.BidAsk) (bool, fixed.Point, error) {
	if !obs.Bid.IsPositive() || !obs.Ask.IsPositive() {
		return false, fixed.Zero, nil
	}

	buy := order.Side == common.OrderSideBuy

	var triggered bool
	switch k := order.Kind.(type) {
	case nil, *common.MarketOrder:
		triggered = true
	case *common.LimitOrder:
		if buy {
			triggered = k.LmtPrice.Gte(obs.Ask)
		} else {
			triggered = k.LmtPrice.Lte(obs.Bid)
		}
	case *common.StopOrder:
		if buy {
			triggered = k.StopPrice.Lte(obs.Ask)
		} else {
			triggered = k.StopPrice.Gte(obs.Bid)
		}
	case *common.MarketIfTouchedOrder:
		// Compared against the opposite side of the book.
		if buy {
			triggered = k.TouchPrice.Gte(obs.Bid)
		} else {
			triggered = k.TouchPrice.Lte(obs.Ask)
		}
	case *common.TrailingStopOrder:
		if buy {
			triggered = trailBuy(k, obs.Ask)
		} else {
			triggered = trailSell(k, obs.Bid)
		}
	case *common.RelativeOrder:
		if buy {
			triggered = pegBuy(k, obs)
		} else {
			triggered = pegSell(k, obs)
		}
	default:
		return false, fixed.Zero, fmt.Errorf("%w: unsupported order kind %T", ErrInvalidOrder, order.Kind)
	}

	if !triggered {
		return false, fixed.Zero, nil
	}
	if buy {
		return true, obs.Ask, nil
	}
	return true, obs.Bid, nil
}

// trailBuy triggers once the ask crosses above the stop. Otherwise the stop
// only ever moves down.
func trailBuy(k *common.TrailingStopOrder, ask fixed.Point) bool {
	if k.StopPrice.IsZero() {
		k.StopPrice = ask.Add(trailDistance(k, ask))
	}
	// Strict: an ask resting on the stop leaves the order open.
	if ask.Gt(k.StopPrice) {
		return true
	}

	switch k.Unit {
	case common.TrailingUnitPercent:
		if k.StopPrice.Sub(ask).Div(ask).Gt(k.TrailingAmount) {
			k.StopPrice = ask.Add(k.TrailingAmount.Mul(ask))
		}
	default:
		if candidate := ask.Add(k.TrailingAmount); candidate.Lt(k.StopPrice) {
			k.StopPrice = candidate
		}
	}
	return false
}

// trailSell mirrors trailBuy on the bid: the stop only ever moves up.
func trailSell(k *common.TrailingStopOrder, bid fixed.Point) bool {
	if k.StopPrice.IsZero() {
		k.StopPrice = bid.Sub(trailDistance(k, bid))
	}
	// Strict: a bid resting on the stop leaves the order open.
	if bid.Lt(k.StopPrice) {
		return true
	}

	switch k.Unit {
	case common.TrailingUnitPercent:
		if bid.Sub(k.StopPrice).Div(bid).Gt(k.TrailingAmount) {
			k.StopPrice = bid.Sub(k.TrailingAmount.Mul(bid))
		}
	default:
		if candidate := bid.Sub(k.TrailingAmount); candidate.Gt(k.StopPrice) {
			k.StopPrice = candidate
		}
	}
	return false
}

func trailDistance(k *common.TrailingStopOrder, price fixed.Point) fixed.Point {
	if k.Unit == common.TrailingUnitPercent {
		return price.Mul(k.TrailingAmount)
	}
	return k.TrailingAmount
}

// pegBuy follows the bid up, never down, and caps the peg at Cap.
func pegBuy(k *common.RelativeOrder, obs common.BidAsk) bool {
	if k.Anchor.IsZero() || obs.Bid.Gt(k.Anchor) {
		k.Anchor = obs.Bid
		repeg(k, common.OrderSideBuy)
	}
	return k.CurrentPrice.Gte(obs.Ask)
}

// pegSell follows the ask down, never up, and floors the peg at Cap.
func pegSell(k *common.RelativeOrder, obs common.BidAsk) bool {
	if k.Anchor.IsZero() || obs.Ask.Lt(k.Anchor) {
		k.Anchor = obs.Ask
		repeg(k, common.OrderSideSell)
	}
	return k.CurrentPrice.Lte(obs.Bid)
}

// repeg derives CurrentPrice from the anchor, the offset and the cap.
func repeg(k *common.RelativeOrder, side common.OrderSide) {
	if side == common.OrderSideBuy {
		k.CurrentPrice = k.Anchor.Add(k.Offset)
		if !k.Cap.IsZero() {
			k.CurrentPrice = fixed.Min(k.CurrentPrice, k.Cap)
		}
		return
	}
	k.CurrentPrice = k.Anchor.Sub(k.Offset)
	if !k.Cap.IsZero() {
		k.CurrentPrice = fixed.Max(k.CurrentPrice, k.Cap)
	}
}

// carryState moves the state the evaluator built up for a live order onto
// its replacement kind. An explicit stop price on a trailing order wins.
func carryState(side common.OrderSide, current, replacement common.OrderKind) {
	switch next := replacement.(type) {
	case *common.TrailingStopOrder:
		if prev, ok := current.(*common.TrailingStopOrder); ok && next.StopPrice.IsZero() {
			next.StopPrice = prev.StopPrice
		}
	case *common.RelativeOrder:
		prev, ok := current.(*common.RelativeOrder)
		if !ok || prev.Anchor.IsZero() {
			return
		}
		next.Anchor = prev.Anchor
		repeg(next, side)
	}
}
