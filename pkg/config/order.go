package config

import (
	"fmt"
	"strings"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange/sandbox"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// Order is a scripted order placed before the clock starts.
type Order struct {
	Ticker         string      `yaml:"ticker"`
	Side           string      `yaml:"side"`
	Quantity       fixed.Point `yaml:"quantity"`
	Type           string      `yaml:"type"`
	LimitPrice     fixed.Point `yaml:"limit_price"`
	StopPrice      fixed.Point `yaml:"stop_price"`
	TouchPrice     fixed.Point `yaml:"touch_price"`
	TrailingAmount fixed.Point `yaml:"trailing_amount"`
	TrailingUnit   string      `yaml:"trailing_unit"`
	Offset         fixed.Point `yaml:"offset"`
	Cap            fixed.Point `yaml:"cap"`
	// Transmit defaults to true.
	Transmit *bool   `yaml:"transmit"`
	Comment  string  `yaml:"comment"`
	Children []Order `yaml:"children"`
}

func (o Order) ToOrder() (common.Order, error) {
	var side common.OrderSide
	switch strings.ToLower(o.Side) {
	case "buy":
		side = common.OrderSideBuy
	case "sell":
		side = common.OrderSideSell
	default:
		return common.Order{}, fmt.Errorf("side: unknown side %q", o.Side)
	}

	kind, err := o.kind()
	if err != nil {
		return common.Order{}, err
	}

	order := common.NewOrder(o.Ticker, side, o.Quantity, kind)
	order.Comment = o.Comment
	if o.Transmit != nil {
		order.Transmit = *o.Transmit
	}
	for i, child := range o.Children {
		converted, err := child.ToOrder()
		if err != nil {
			return common.Order{}, fmt.Errorf("children[%d].%w", i, err)
		}
		order.Children = append(order.Children, converted)
	}

	if err := sandbox.ValidateOrder(order); err != nil {
		return common.Order{}, err
	}
	return order, nil
}

func (o Order) kind() (common.OrderKind, error) {
	switch strings.ToLower(o.Type) {
	case "", "market", "mkt":
		return &common.MarketOrder{}, nil
	case "limit", "lmt":
		return &common.LimitOrder{LmtPrice: o.LimitPrice}, nil
	case "stop", "stp":
		return &common.StopOrder{StopPrice: o.StopPrice}, nil
	case "mit", "market_if_touched":
		return &common.MarketIfTouchedOrder{TouchPrice: o.TouchPrice}, nil
	case "trailing", "trail", "trailing_stop":
		unit := common.TrailingUnitAbsolute
		switch strings.ToLower(o.TrailingUnit) {
		case "", "absolute", "amount":
		case "percent", "%":
			unit = common.TrailingUnitPercent
		default:
			return nil, fmt.Errorf("trailing_unit: unknown unit %q", o.TrailingUnit)
		}
		return &common.TrailingStopOrder{TrailingAmount: o.TrailingAmount, Unit: unit, StopPrice: o.StopPrice}, nil
	case "relative", "rel":
		return &common.RelativeOrder{Offset: o.Offset, Cap: o.Cap}, nil
	default:
		return nil, fmt.Errorf("type: unknown order type %q", o.Type)
	}
}
