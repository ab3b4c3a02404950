package sandbox

import (
	"fmt"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// The Validate functions only read tracker state. They run before any mutation
// so a rejected command leaves the tracker untouched.

func ValidateTransmit(t *Tracker, id common.OrderId) error {
	return expectState(t, id, "transmit", StateRequested)
}

func ValidateModify(t *Tracker, id common.OrderId) error {
	return expectState(t, id, "modify", StateOpen)
}

func ValidateCancel(t *Tracker, id common.OrderId) error {
	return expectState(t, id, "cancel", StateOpen)
}

func ValidateExecute(t *Tracker, id common.OrderId) error {
	return expectState(t, id, "execute", StateOpen)
}

// ValidateParent accepts a parent that is still waiting for its fill.
func ValidateParent(t *Tracker, id common.OrderId) error {
	tracked, ok := t.get(id)
	if !ok {
		return fmt.Errorf("parent %d: %w", id, ErrOrderNotFound)
	}
	if tracked.state.IsTerminal() {
		return &IllegalStateError{OrderId: id, State: tracked.state, Operation: "attach child to"}
	}
	if tracked.order.ParentId != 0 {
		return fmt.Errorf("%w: order %d is itself a child", ErrInvalidOrder, id)
	}
	return nil
}

func expectState(t *Tracker, id common.OrderId, operation string, want OrderTrackState) error {
	tracked, ok := t.get(id)
	if !ok {
		return fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	if tracked.state != want {
		return &IllegalStateError{OrderId: id, State: tracked.state, Operation: operation}
	}
	return nil
}

// ValidateOrder checks the fields of an order and of its children.
func ValidateOrder(order common.Order) error {
	if !order.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity %s must be positive", ErrInvalidOrder, order.Quantity)
	}
	if order.Side != common.OrderSideBuy && order.Side != common.OrderSideSell {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, order.Side)
	}
	if err := validateKind(order.Kind); err != nil {
		return err
	}
	for _, child := range order.Children {
		if err := ValidateOrder(child); err != nil {
			return fmt.Errorf("child of %s order: %w", order.Type(), err)
		}
	}
	return nil
}

func validateKind(kind common.OrderKind) error {
	switch k := kind.(type) {
	case nil:
		return nil
	case *common.MarketOrder:
		if k == nil {
			return nilKind(kind)
		}
		return nil
	case *common.LimitOrder:
		if k == nil {
			return nilKind(kind)
		}
		return positive("limit price", k.LmtPrice)
	case *common.StopOrder:
		if k == nil {
			return nilKind(kind)
		}
		return positive("stop price", k.StopPrice)
	case *common.MarketIfTouchedOrder:
		if k == nil {
			return nilKind(kind)
		}
		return positive("touch price", k.TouchPrice)
	case *common.TrailingStopOrder:
		if k == nil {
			return nilKind(kind)
		}
		if k.Unit != common.TrailingUnitAbsolute && k.Unit != common.TrailingUnitPercent {
			return fmt.Errorf("%w: unknown trailing unit %d", ErrInvalidOrder, k.Unit)
		}
		if k.StopPrice.IsNegative() {
			return fmt.Errorf("%w: stop price %s is negative", ErrInvalidOrder, k.StopPrice)
		}
		return positive("trailing amount", k.TrailingAmount)
	case *common.RelativeOrder:
		if k == nil {
			return nilKind(kind)
		}
		if k.Offset.IsNegative() || k.Cap.IsNegative() {
			return fmt.Errorf("%w: offset and cap must not be negative", ErrInvalidOrder)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported order kind %T", ErrInvalidOrder, kind)
	}
}

func nilKind(kind common.OrderKind) error {
	return fmt.Errorf("%w: nil %T order kind", ErrInvalidOrder, kind)
}

func positive(name string, p fixed.Point) error {
	if !p.IsPositive() {
		return fmt.Errorf("%w: %s %s must be positive", ErrInvalidOrder, name, p)
	}
	return nil
}
