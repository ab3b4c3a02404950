package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
	"github.com/peter-kozarec/sandbox/pkg/utility"
)

func newTestTracker() *Tracker {
	return NewTracker(&utility.Sequence{})
}

func limitBuy(price string) common.Order {
	return common.NewOrder("AAPL", common.OrderSideBuy, p("10"), &common.LimitOrder{LmtPrice: p(price)})
}

func TestTracker_RequestAssignsIncreasingIds(t *testing.T) {
	tracker := newTestTracker()

	first := tracker.Request(limitBuy("28"))
	second := tracker.Request(limitBuy("28"))

	assert.Equal(t, common.OrderId(1), first.order.Id)
	assert.Equal(t, common.OrderId(2), second.order.Id)
	assert.Equal(t, StateRequested, tracker.State(first.order.Id))
	assert.Equal(t, common.OrderStatePreSubmitted, first.status.State)
	assert.Equal(t, StateUnknown, tracker.State(42))
}

func TestTracker_Lifecycle(t *testing.T) {
	tracker := newTestTracker()
	tracked := tracker.Request(limitBuy("28"))
	id := tracked.order.Id

	assert.ErrorIs(t, tracker.Modify(id, p("5"), tracked.order.Kind), ErrIllegalState)

	require.NoError(t, tracker.Open(id))
	assert.Equal(t, common.OrderStateSubmitted, tracked.status.State)
	assert.Len(t, tracker.OpenOrders(), 1)

	err := tracker.Open(id)
	var illegal *IllegalStateError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, StateOpen, illegal.State)
	assert.Equal(t, "transmit", illegal.Operation)

	require.NoError(t, tracker.Modify(id, p("5"), &common.LimitOrder{LmtPrice: p("29")}))
	assertPoint(t, "5", tracked.status.Remaining)

	require.NoError(t, tracker.Execute(id, common.Execution{OrderId: id, Quantity: p("5"), AvgPrice: p("28.90")}))
	assert.Equal(t, StateExecuted, tracker.State(id))
	assert.Equal(t, common.OrderStateFilled, tracked.status.State)
	assertPoint(t, "28.90", tracked.status.AvgFillPrice)
	assert.Empty(t, tracker.OpenOrders())

	assert.ErrorIs(t, tracker.Execute(id, common.Execution{}), ErrIllegalState)
	assert.ErrorIs(t, tracker.Cancel(id, common.OrderStateCancelled, nil), ErrIllegalState)
}

func TestTracker_CancelTwice(t *testing.T) {
	tracker := newTestTracker()
	tracked := tracker.Request(limitBuy("28"))
	require.NoError(t, tracker.Open(tracked.order.Id))

	require.NoError(t, tracker.Cancel(tracked.order.Id, common.OrderStateCancelled, nil))
	assert.Equal(t, ErrOrderCancelled.Error(), tracked.status.Reason)

	assert.ErrorIs(t, tracker.Cancel(tracked.order.Id, common.OrderStateCancelled, nil), ErrIllegalState)
	assert.ErrorIs(t, tracker.Cancel(99, common.OrderStateCancelled, nil), ErrOrderNotFound)
}

func TestTracker_AwaitResolvesOnExecution(t *testing.T) {
	tracker := newTestTracker()
	tracked := tracker.Request(limitBuy("28"))
	id := tracked.order.Id
	require.NoError(t, tracker.Open(id))

	pending, err := tracker.Await(id)
	require.NoError(t, err)

	require.NoError(t, tracker.Execute(id, common.Execution{Id: 7, OrderId: id}))

	execution, err := pending.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.ExecutionId(7), execution.Id)

	late, err := tracker.Await(id)
	require.NoError(t, err)
	execution, err = late.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.ExecutionId(7), execution.Id)
}

func TestTracker_AwaitRejectedOnCancel(t *testing.T) {
	tracker := newTestTracker()
	tracked := tracker.Request(limitBuy("28"))
	id := tracked.order.Id

	pending, err := tracker.Await(id)
	require.NoError(t, err)

	require.NoError(t, tracker.Cancel(id, common.OrderStateInactive, ErrInsufficientFunds))

	_, err = pending.Await(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	late, err := tracker.Await(id)
	require.NoError(t, err)
	_, err = late.Await(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = tracker.Await(99)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTracker_ResetKeepsIds(t *testing.T) {
	tracker := newTestTracker()
	tracked := tracker.Request(limitBuy("28"))

	pending, err := tracker.Await(tracked.order.Id)
	require.NoError(t, err)

	tracker.Reset(simulation.ErrReset)

	_, err = pending.Await(context.Background())
	assert.ErrorIs(t, err, simulation.ErrReset)
	assert.Equal(t, StateUnknown, tracker.State(tracked.order.Id))

	next := tracker.Request(limitBuy("28"))
	assert.Greater(t, next.order.Id, tracked.order.Id)
}

func TestTracker_LiveChildren(t *testing.T) {
	tracker := newTestTracker()
	parent := tracker.Request(limitBuy("28"))

	child := limitBuy("30")
	child.ParentId = parent.order.Id
	first := tracker.Request(child)
	second := tracker.Request(child)

	assert.Len(t, tracker.LiveChildren(parent.order.Id), 2)

	require.NoError(t, tracker.Cancel(first.order.Id, common.OrderStateCancelled, nil))

	live := tracker.LiveChildren(parent.order.Id)
	require.Len(t, live, 1)
	assert.Equal(t, second.order.Id, live[0].order.Id)
	assert.Nil(t, tracker.LiveChildren(99))
}

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		name  string
		order common.Order
	}{
		{"zero quantity", common.NewOrder("AAPL", common.OrderSideBuy, p("0"), &common.MarketOrder{})},
		{"unknown side", common.NewOrder("AAPL", common.OrderSide(7), p("1"), &common.MarketOrder{})},
		{"zero limit price", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), &common.LimitOrder{})},
		{"zero stop price", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), &common.StopOrder{})},
		{"zero touch price", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), &common.MarketIfTouchedOrder{})},
		{"zero trailing amount", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), &common.TrailingStopOrder{})},
		{"unknown trailing unit", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), &common.TrailingStopOrder{TrailingAmount: p("1"), Unit: 5})},
		{"negative offset", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), &common.RelativeOrder{Offset: p("-1")})},
		{"nil market kind", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), (*common.MarketOrder)(nil))},
		{"nil limit kind", common.NewOrder("AAPL", common.OrderSideBuy, p("1"), (*common.LimitOrder)(nil))},
		{"nil trailing kind", common.NewOrder("AAPL", common.OrderSideSell, p("1"), (*common.TrailingStopOrder)(nil))},
		{"nil relative kind", common.NewOrder("AAPL", common.OrderSideSell, p("1"), (*common.RelativeOrder)(nil))},
		{"invalid child", func() common.Order {
			order := common.NewOrder("AAPL", common.OrderSideBuy, p("1"), &common.MarketOrder{})
			order.Children = []common.Order{common.NewOrder("AAPL", common.OrderSideSell, p("-1"), &common.MarketOrder{})}
			return order
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateOrder(tt.order), ErrInvalidOrder)
		})
	}

	assert.NoError(t, ValidateOrder(limitBuy("28")))
	assert.NoError(t, ValidateOrder(common.NewOrder("AAPL", common.OrderSideSell, p("1"), &common.RelativeOrder{})))
}

func TestValidateParent(t *testing.T) {
	tracker := newTestTracker()
	parent := tracker.Request(limitBuy("28"))

	child := limitBuy("30")
	child.ParentId = parent.order.Id
	tracked := tracker.Request(child)

	assert.NoError(t, ValidateParent(tracker, parent.order.Id))
	assert.ErrorIs(t, ValidateParent(tracker, tracked.order.Id), ErrInvalidOrder)
	assert.ErrorIs(t, ValidateParent(tracker, 99), ErrOrderNotFound)

	require.NoError(t, tracker.Cancel(parent.order.Id, common.OrderStateCancelled, nil))
	assert.ErrorIs(t, ValidateParent(tracker, parent.order.Id), ErrIllegalState)
}
