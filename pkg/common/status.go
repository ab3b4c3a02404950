package common

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

type OrderState string

const (
	// OrderStatePreSubmitted is a held order that has not been transmitted yet.
	OrderStatePreSubmitted OrderState = "PreSubmitted"
	OrderStateSubmitted    OrderState = "Submitted"
	OrderStateFilled       OrderState = "Filled"
	OrderStateCancelled    OrderState = "Cancelled"
	// OrderStateInactive is an order the exchange refused to fill.
	OrderStateInactive OrderState = "Inactive"
)

func (s OrderState) IsTerminal() bool {
	return s == OrderStateFilled || s == OrderStateCancelled || s == OrderStateInactive
}

type OrderStatus struct {
	OrderId      OrderId     `json:"order_id"`
	State        OrderState  `json:"state"`
	Filled       fixed.Point `json:"filled"`
	Remaining    fixed.Point `json:"remaining"`
	AvgFillPrice fixed.Point `json:"avg_fill_price"`
	Reason       string      `json:"reason,omitempty"`
}

// OrderUpdate is published whenever the exchange changes the lifecycle of an order.
type OrderUpdate struct {
	Ticker string      `json:"ticker"`
	Order  Order       `json:"order"`
	Status OrderStatus `json:"status"`

	Meta
}

func (u OrderUpdate) Fields() []zap.Field {
	return append(u.Order.Fields(),
		zap.String("state", string(u.Status.State)),
		zap.String("remaining", u.Status.Remaining.String()),
		zap.String("reason", u.Status.Reason),
	)
}
