package sandbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// PlaceOrder submits order and its children. The returned copy carries the
// assigned ids. Children are held until their parent fills, whatever their
// Transmit flag says. A non-zero ParentId attaches the order to a live order.
func (e *Exchange) PlaceOrder(ctx context.Context, order common.Order) (common.Order, error) {
	if err := ValidateOrder(order); err != nil {
		return common.Order{}, err
	}
	order = normalize(order.Clone())

	return simulation.Call(ctx, e.scheduler, func() (common.Order, error) {
		if err := e.validateSymbols(order); err != nil {
			return common.Order{}, err
		}
		if order.ParentId != 0 {
			if err := ValidateParent(e.tracker, order.ParentId); err != nil {
				return common.Order{}, err
			}
		}
		return e.request(order, order.ParentId), nil
	})
}

// TransmitOrder activates a held top-level order.
func (e *Exchange) TransmitOrder(ctx context.Context, id common.OrderId) error {
	_, err := simulation.Call(ctx, e.scheduler, func() (struct{}, error) {
		tracked, ok := e.tracker.get(id)
		if !ok {
			return struct{}{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
		if tracked.order.ParentId != 0 && tracked.state == StateRequested {
			return struct{}{}, fmt.Errorf("%w: order %d is held until parent %d fills", ErrInvalidOrder, id, tracked.order.ParentId)
		}
		if err := e.tracker.Open(id); err != nil {
			return struct{}{}, err
		}
		e.logger.Debug("order transmitted", tracked.order.Fields()...)
		e.publishOrderUpdate(tracked)
		return struct{}{}, nil
	})
	return err
}

// ModifyOrder replaces the quantity and the price fields of the open order
// order.Id. The order type cannot change.
func (e *Exchange) ModifyOrder(ctx context.Context, order common.Order) (common.Order, error) {
	if err := validateKind(order.Kind); err != nil {
		return common.Order{}, err
	}
	order = normalize(order.Clone())

	return simulation.Call(ctx, e.scheduler, func() (common.Order, error) {
		if err := ValidateModify(e.tracker, order.Id); err != nil {
			return common.Order{}, err
		}
		tracked, _ := e.tracker.get(order.Id)

		candidate := tracked.order.Clone()
		candidate.Quantity = order.Quantity
		candidate.Kind = order.Kind
		if candidate.Type() != tracked.order.Type() {
			return common.Order{}, fmt.Errorf("%w: cannot change %s order %d into %s",
				ErrInvalidOrder, tracked.order.Type(), order.Id, candidate.Type())
		}
		if err := ValidateOrder(candidate); err != nil {
			return common.Order{}, err
		}
		carryState(candidate.Side, tracked.order.Kind, candidate.Kind)

		if err := e.tracker.Modify(order.Id, candidate.Quantity, candidate.Kind); err != nil {
			return common.Order{}, err
		}
		e.logger.Debug("order modified", tracked.order.Fields()...)
		e.publishOrderUpdate(tracked)
		return tracked.order.Clone(), nil
	})
}

// CancelOrder cancels an open order together with its held children.
func (e *Exchange) CancelOrder(ctx context.Context, id common.OrderId) error {
	_, err := simulation.Call(ctx, e.scheduler, func() (struct{}, error) {
		if err := ValidateCancel(e.tracker, id); err != nil {
			return struct{}{}, err
		}
		tracked, _ := e.tracker.get(id)
		e.terminate(tracked, common.OrderStateCancelled, ErrOrderCancelled)
		e.logger.Debug("order cancelled", tracked.order.Fields()...)
		return struct{}{}, nil
	})
	return err
}

// CancelAllOrders cancels every open order and returns their ids.
func (e *Exchange) CancelAllOrders(ctx context.Context) ([]common.OrderId, error) {
	return simulation.Call(ctx, e.scheduler, func() ([]common.OrderId, error) {
		var cancelled []common.OrderId
		for _, tracked := range e.tracker.OpenOrders() {
			if tracked.state != StateOpen {
				continue
			}
			e.terminate(tracked, common.OrderStateCancelled, ErrOrderCancelled)
			cancelled = append(cancelled, tracked.order.Id)
		}
		e.logger.Debug("orders cancelled", zap.Int("count", len(cancelled)))
		return cancelled, nil
	})
}

// AwaitExecution waits for the fill of id. It fails with ErrOrderCancelled (or
// the rejection cause) when the order is cancelled first and with
// simulation.ErrDayOver when the day ends before the fill.
func (e *Exchange) AwaitExecution(ctx context.Context, id common.OrderId) (common.Execution, error) {
	future, err := simulation.Call(ctx, e.scheduler, func() (simulation.Future[common.Execution], error) {
		if state := e.tracker.State(id); state != StateUnknown && !state.IsTerminal() && e.scheduler.DayOver() {
			return nil, fmt.Errorf("order %d: %w", id, simulation.ErrDayOver)
		}
		return e.tracker.Await(id)
	})
	if err != nil {
		return common.Execution{}, err
	}
	return future.Await(ctx)
}

// SellAllPositions places one market sell per open position and waits for all
// of the fills. It fails with simulation.ErrDayOver once nothing can fill.
func (e *Exchange) SellAllPositions(ctx context.Context) ([]common.Execution, error) {
	futures, err := e.PlaceClosingOrders(ctx)
	if err != nil {
		return nil, err
	}
	return simulation.AwaitAll(ctx, futures)
}

// PlaceClosingOrders places the market sells of SellAllPositions and returns
// their fill futures without waiting. Quantity already offered by open sell
// orders on a ticker is not sold again; open sells sharing a parent can fill
// at most once, so only the largest of them counts.
func (e *Exchange) PlaceClosingOrders(ctx context.Context) ([]simulation.Future[common.Execution], error) {
	return simulation.Call(ctx, e.scheduler, func() ([]simulation.Future[common.Execution], error) {
		if e.scheduler.DayOver() {
			return nil, simulation.ErrDayOver
		}

		offered := e.offeredForSale()
		var futures []simulation.Future[common.Execution]
		for _, position := range e.ledger.Positions() {
			if !position.IsOpen() {
				continue
			}
			quantity := position.Quantity.Sub(offered[position.Ticker])
			if !quantity.IsPositive() {
				continue
			}
			placed := e.request(common.NewOrder(position.Ticker, common.OrderSideSell, quantity, &common.MarketOrder{}), 0)
			future, err := e.tracker.Await(placed.Id)
			if err != nil {
				return nil, err
			}
			futures = append(futures, future)
		}
		return futures, nil
	})
}

// offeredForSale sums the quantity of open sell orders per ticker.
func (e *Exchange) offeredForSale() map[string]fixed.Point {
	type group struct {
		ticker   string
		parentId common.OrderId
	}
	largest := make(map[group]fixed.Point)
	for _, tracked := range e.tracker.OpenOrders() {
		order := tracked.order
		if tracked.state != StateOpen || order.Side != common.OrderSideSell {
			continue
		}
		key := group{ticker: order.Ticker, parentId: order.ParentId}
		if order.ParentId == 0 {
			key.parentId = -order.Id
		}
		largest[key] = fixed.Max(largest[key], order.Quantity)
	}

	offered := make(map[string]fixed.Point)
	for key, quantity := range largest {
		offered[key.ticker] = offered[key.ticker].Add(quantity)
	}
	return offered
}

func (e *Exchange) Account(ctx context.Context) (common.Account, error) {
	return simulation.Call(ctx, e.scheduler, func() (common.Account, error) {
		return e.ledger.Account(), nil
	})
}

func (e *Exchange) Positions(ctx context.Context) ([]common.Position, error) {
	return simulation.Call(ctx, e.scheduler, func() ([]common.Position, error) {
		return e.ledger.Positions(), nil
	})
}

func (e *Exchange) OpenOrders(ctx context.Context) ([]common.Order, error) {
	return simulation.Call(ctx, e.scheduler, func() ([]common.Order, error) {
		open := e.tracker.OpenOrders()
		orders := make([]common.Order, 0, len(open))
		for _, tracked := range open {
			orders = append(orders, tracked.order.Clone())
		}
		return orders, nil
	})
}

func (e *Exchange) OrderStatus(ctx context.Context, id common.OrderId) (common.OrderStatus, error) {
	return simulation.Call(ctx, e.scheduler, func() (common.OrderStatus, error) {
		tracked, ok := e.tracker.get(id)
		if !ok {
			return common.OrderStatus{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
		return tracked.status, nil
	})
}

func (e *Exchange) Executions(ctx context.Context) ([]common.Execution, error) {
	return simulation.Call(ctx, e.scheduler, func() ([]common.Execution, error) {
		return append([]common.Execution(nil), e.executions...), nil
	})
}

// request tracks order and its children. Must run on the scheduler goroutine.
func (e *Exchange) request(order common.Order, parentId common.OrderId) common.Order {
	children := order.Children
	order.ParentId = parentId

	tracked := e.tracker.Request(order)
	if parentId == 0 && order.Transmit {
		if err := e.tracker.Open(tracked.order.Id); err != nil {
			e.logger.Warn("unable to open order", append(tracked.order.Fields(), zap.Error(err))...)
		}
	}
	e.logger.Debug("order placed", tracked.order.Fields()...)
	e.publishOrderUpdate(tracked)

	placed := tracked.order.Clone()
	for _, child := range children {
		placed.Children = append(placed.Children, e.request(child, tracked.order.Id))
	}
	return placed
}

func (e *Exchange) validateSymbols(order common.Order) error {
	if _, ok := e.symbols[order.Ticker]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, order.Ticker)
	}
	for _, child := range order.Children {
		if err := e.validateSymbols(child); err != nil {
			return err
		}
	}
	return nil
}

func normalize(order common.Order) common.Order {
	order.Ticker = exchange.Key(order.Ticker)
	for i := range order.Children {
		order.Children[i] = normalize(order.Children[i])
	}
	return order
}
