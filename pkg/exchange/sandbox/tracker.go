package sandbox

import (
	"slices"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
	"github.com/peter-kozarec/sandbox/pkg/utility"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

type OrderTrackState int

const (
	StateUnknown OrderTrackState = iota
	StateRequested
	StateOpen
	StateExecuted
	StateCancelled
)

func (s OrderTrackState) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateOpen:
		return "open"
	case StateExecuted:
		return "executed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s OrderTrackState) IsTerminal() bool {
	return s == StateExecuted || s == StateCancelled
}

type trackedOrder struct {
	order     common.Order
	state     OrderTrackState
	status    common.OrderStatus
	children  []common.OrderId
	execution *common.Execution
	// failure is the error awaiters receive once the order is cancelled.
	failure error
	waiters []simulation.Future[common.Execution]
}

// Tracker is the arena of orders keyed by id. It is owned by the scheduler goroutine.
type Tracker struct {
	ids    *utility.Sequence
	orders map[common.OrderId]*trackedOrder
	open   []common.OrderId
}

func NewTracker(ids *utility.Sequence) *Tracker {
	return &Tracker{
		ids:    ids,
		orders: make(map[common.OrderId]*trackedOrder),
	}
}

func (t *Tracker) State(id common.OrderId) OrderTrackState {
	if tracked, ok := t.orders[id]; ok {
		return tracked.state
	}
	return StateUnknown
}

func (t *Tracker) get(id common.OrderId) (*trackedOrder, bool) {
	tracked, ok := t.orders[id]
	return tracked, ok
}

// Request assigns a fresh id and tracks the order as requested. Children of the
// order are not tracked here.
func (t *Tracker) Request(order common.Order) *trackedOrder {
	order = order.Clone()
	order.Id = t.ids.Next()
	order.Children = nil

	tracked := &trackedOrder{
		order: order,
		state: StateRequested,
		status: common.OrderStatus{
			OrderId:   order.Id,
			State:     common.OrderStatePreSubmitted,
			Remaining: order.Quantity,
		},
	}
	t.orders[order.Id] = tracked

	if parent, ok := t.orders[order.ParentId]; ok && order.ParentId != 0 {
		parent.children = append(parent.children, order.Id)
	}
	return tracked
}

func (t *Tracker) Open(id common.OrderId) error {
	if err := ValidateTransmit(t, id); err != nil {
		return err
	}
	tracked := t.orders[id]
	tracked.state = StateOpen
	tracked.status.State = common.OrderStateSubmitted
	t.open = append(t.open, id)
	return nil
}

func (t *Tracker) Modify(id common.OrderId, quantity fixed.Point, kind common.OrderKind) error {
	if err := ValidateModify(t, id); err != nil {
		return err
	}
	tracked := t.orders[id]
	tracked.order.Quantity = quantity
	tracked.order.Kind = kind
	tracked.status.Remaining = quantity
	return nil
}

func (t *Tracker) Execute(id common.OrderId, execution common.Execution) error {
	if err := ValidateExecute(t, id); err != nil {
		return err
	}
	tracked := t.orders[id]
	tracked.state = StateExecuted
	tracked.execution = &execution
	tracked.status.State = common.OrderStateFilled
	tracked.status.Filled = execution.Quantity
	tracked.status.Remaining = fixed.Zero
	tracked.status.AvgFillPrice = execution.AvgPrice
	t.removeOpen(id)

	for _, waiter := range tracked.waiters {
		waiter.Resolve(execution)
	}
	tracked.waiters = nil
	return nil
}

// Cancel terminates a requested or open order. state is the status reported to
// subscribers, cause is what awaiters of the order receive.
func (t *Tracker) Cancel(id common.OrderId, state common.OrderState, cause error) error {
	tracked, ok := t.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if tracked.state.IsTerminal() {
		return &IllegalStateError{OrderId: id, State: tracked.state, Operation: "cancel"}
	}

	if cause == nil {
		cause = ErrOrderCancelled
	}
	tracked.state = StateCancelled
	tracked.failure = cause
	tracked.status.State = state
	tracked.status.Remaining = tracked.order.Quantity
	tracked.status.Reason = cause.Error()
	t.removeOpen(id)

	for _, waiter := range tracked.waiters {
		waiter.Reject(cause)
	}
	tracked.waiters = nil
	return nil
}

// Await returns a future resolved by the execution of id. It is legal in every
// state of a known order.
func (t *Tracker) Await(id common.OrderId) (simulation.Future[common.Execution], error) {
	tracked, ok := t.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}

	future := simulation.NewFuture[common.Execution]()
	switch tracked.state {
	case StateExecuted:
		future.Resolve(*tracked.execution)
	case StateCancelled:
		future.Reject(tracked.failure)
	default:
		tracked.waiters = append(tracked.waiters, future)
	}
	return future, nil
}

// FailWaiters rejects every pending awaiter with err. Orders keep their state.
func (t *Tracker) FailWaiters(err error) {
	for _, tracked := range t.orders {
		for _, waiter := range tracked.waiters {
			waiter.Reject(err)
		}
		tracked.waiters = nil
	}
}

// Reset forgets every order. Ids keep increasing across resets.
func (t *Tracker) Reset(err error) {
	t.FailWaiters(err)
	t.orders = make(map[common.OrderId]*trackedOrder)
	t.open = nil
}

// OpenOrders lists open orders in the order they were opened.
func (t *Tracker) OpenOrders() []*trackedOrder {
	orders := make([]*trackedOrder, 0, len(t.open))
	for _, id := range t.open {
		orders = append(orders, t.orders[id])
	}
	return orders
}

// LiveChildren lists the children of id that are not terminal yet.
func (t *Tracker) LiveChildren(id common.OrderId) []*trackedOrder {
	tracked, ok := t.orders[id]
	if !ok {
		return nil
	}
	var children []*trackedOrder
	for _, childId := range tracked.children {
		if child := t.orders[childId]; !child.state.IsTerminal() {
			children = append(children, child)
		}
	}
	return children
}

func (t *Tracker) removeOpen(id common.OrderId) {
	t.open = slices.DeleteFunc(t.open, func(openId common.OrderId) bool {
		return openId == id
	})
}
