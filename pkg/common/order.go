package common

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

type OrderId = int64
type OrderSide int
type OrderType int
type TrailingUnit int

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStop
	OrderTypeTrailingStop
	OrderTypeMarketIfTouched
	OrderTypeRelative
)

const (
	TrailingUnitAbsolute TrailingUnit = iota
	// TrailingUnitPercent expresses the trailing amount as a ratio, 0.01 is one percent.
	TrailingUnitPercent
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MKT"
	case OrderTypeLimit:
		return "LMT"
	case OrderTypeStop:
		return "STP"
	case OrderTypeTrailingStop:
		return "TRAIL"
	case OrderTypeMarketIfTouched:
		return "MIT"
	case OrderTypeRelative:
		return "REL"
	default:
		return "UNKNOWN"
	}
}

// OrderKind is the closed set of order variants. Each variant carries only its own
// price fields; the evaluator switches over the concrete pointer types.
type OrderKind interface {
	Type() OrderType
	clone() OrderKind
}

type MarketOrder struct{}

type LimitOrder struct {
	LmtPrice fixed.Point `json:"lmt_price"`
}

type StopOrder struct {
	StopPrice fixed.Point `json:"stop_price"`
}

type MarketIfTouchedOrder struct {
	TouchPrice fixed.Point `json:"touch_price"`
}

// TrailingStopOrder keeps its trigger in StopPrice. A zero StopPrice means the
// trigger is initialised from the first observation after the order opens.
type TrailingStopOrder struct {
	TrailingAmount fixed.Point  `json:"trailing_amount"`
	Unit           TrailingUnit `json:"unit"`
	StopPrice      fixed.Point  `json:"stop_price"`
}

// RelativeOrder pegs CurrentPrice to the same side of the book plus Offset.
// A zero Cap disables the cap.
type RelativeOrder struct {
	Offset       fixed.Point `json:"offset"`
	Cap          fixed.Point `json:"cap"`
	CurrentPrice fixed.Point `json:"current_price"`
	Anchor       fixed.Point `json:"anchor"`
}

func (*MarketOrder) Type() OrderType          { return OrderTypeMarket }
func (*LimitOrder) Type() OrderType           { return OrderTypeLimit }
func (*StopOrder) Type() OrderType            { return OrderTypeStop }
func (*TrailingStopOrder) Type() OrderType    { return OrderTypeTrailingStop }
func (*MarketIfTouchedOrder) Type() OrderType { return OrderTypeMarketIfTouched }
func (*RelativeOrder) Type() OrderType        { return OrderTypeRelative }

func (k *MarketOrder) clone() OrderKind          { c := *k; return &c }
func (k *LimitOrder) clone() OrderKind           { c := *k; return &c }
func (k *StopOrder) clone() OrderKind            { c := *k; return &c }
func (k *TrailingStopOrder) clone() OrderKind    { c := *k; return &c }
func (k *MarketIfTouchedOrder) clone() OrderKind { c := *k; return &c }
func (k *RelativeOrder) clone() OrderKind        { c := *k; return &c }

type Order struct {
	Id       OrderId     `json:"id"`
	Ticker   string      `json:"ticker"`
	Side     OrderSide   `json:"side"`
	Quantity fixed.Point `json:"quantity"`
	Kind     OrderKind   `json:"kind"`
	// Transmit false keeps the order held by the exchange until it is transmitted.
	Transmit bool    `json:"transmit"`
	ParentId OrderId `json:"parent_id,omitempty"`
	Children []Order `json:"children,omitempty"`
	Comment  string  `json:"comment,omitempty"`

	Meta
}

// NewOrder creates a transmitted order.
func NewOrder(ticker string, side OrderSide, quantity fixed.Point, kind OrderKind) Order {
	return Order{
		Ticker:   ticker,
		Side:     side,
		Quantity: quantity,
		Kind:     kind,
		Transmit: true,
	}
}

func (o Order) Type() OrderType {
	if o.Kind == nil {
		return OrderTypeMarket
	}
	return o.Kind.Type()
}

// Clone returns a deep copy that shares no mutable state with o.
func (o Order) Clone() Order {
	c := o
	if o.Kind != nil {
		c.Kind = o.Kind.clone()
	}
	if o.Children != nil {
		c.Children = make([]Order, len(o.Children))
		for i, child := range o.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

func (o Order) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("order_id", o.Id),
		zap.String("ticker", o.Ticker),
		zap.Stringer("side", o.Side),
		zap.Stringer("type", o.Type()),
		zap.String("quantity", o.Quantity.String()),
		zap.Bool("transmit", o.Transmit),
		zap.Int64("parent_id", o.ParentId),
	}
}
