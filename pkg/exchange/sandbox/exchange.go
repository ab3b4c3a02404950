package sandbox

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
	"github.com/peter-kozarec/sandbox/pkg/utility"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const componentName = "exchange.sandbox"

// Exchange simulates a venue on top of a scheduler. Its state is only touched
// from the scheduler goroutine, callers go through the command methods.
type Exchange struct {
	logger    *zap.Logger
	router    *bus.Router
	scheduler *simulation.Scheduler
	tape      exchange.MarketTape
	clock     exchange.Clock
	audit     *simulation.Audit

	symbols    map[string]exchange.SymbolInfo
	account    common.Account
	commission CommissionSchedule

	orderIds     utility.Sequence
	executionIds utility.Sequence

	tracker    *Tracker
	ledger     *Ledger
	cursors    map[string]*cursor
	executions []common.Execution
	published  map[string]fixed.Point
	lastPnL    map[string]common.PnL
}

// NewExchange registers the exchange on scheduler. It must be called before the
// scheduler connects.
func NewExchange(logger *zap.Logger, router *bus.Router, scheduler *simulation.Scheduler, tape exchange.MarketTape, options ...Option) (*Exchange, error) {
	if tape == nil {
		return nil, fmt.Errorf("market tape is required")
	}

	e := &Exchange{
		logger:     logger.Named("exchange"),
		router:     router,
		scheduler:  scheduler,
		tape:       tape,
		clock:      scheduler,
		symbols:    make(map[string]exchange.SymbolInfo),
		account:    common.NewAccount(DefaultAccountCode, DefaultCurrency, DefaultBalance),
		commission: DefaultCommissionSchedule,
		cursors:    make(map[string]*cursor),
		published:  make(map[string]fixed.Point),
		lastPnL:    make(map[string]common.PnL),
	}

	for _, option := range options {
		option(e)
	}

	for key, symbol := range e.symbols {
		if symbol.Currency == "" {
			symbol.Currency = e.account.BaseCurrency
		}
		symbol.Ticker = key
		e.symbols[key] = symbol
	}

	e.tracker = NewTracker(&e.orderIds)
	e.ledger = NewLedger(e.account, e.commission)

	scheduler.Subscribe(e.evaluateOrders)
	scheduler.Subscribe(e.broadcastAccount)
	scheduler.Subscribe(e.refreshPnL)
	scheduler.OnReset(e.reset)
	scheduler.OnHalt(e.halt)

	return e, nil
}

func (e *Exchange) PrintDetails() {
	e.logger.Info("exchange details",
		zap.String("account", e.account.Code),
		zap.String("currency", e.account.BaseCurrency),
		zap.String("balance", e.account.Cash[e.account.BaseCurrency].String()),
		zap.Strings("symbols", slices.Sorted(maps.Keys(e.symbols))),
		zap.String("commission_rate", e.commission.Rate.String()),
		zap.String("commission_minimum", e.commission.Minimum.String()),
		zap.String("commission_maximum_rate", e.commission.MaximumRate.String()))
}

func (e *Exchange) evaluateOrders(ctx context.Context, t time.Time) error {
	open := e.tracker.OpenOrders()

	tickers := make(map[string]struct{})
	for _, tracked := range open {
		tickers[tracked.order.Ticker] = struct{}{}
	}
	for _, position := range e.ledger.Positions() {
		if position.IsOpen() {
			tickers[position.Ticker] = struct{}{}
		}
	}

	observations := make(map[string][]common.BidAsk, len(tickers))
	for _, ticker := range slices.Sorted(maps.Keys(tickers)) {
		c, err := e.cursorFor(ctx, ticker)
		if err != nil {
			return err
		}
		observations[ticker] = c.Advance(t)
	}

	for _, tracked := range open {
		// A sibling fill earlier in this tick may have cancelled it.
		if tracked.state != StateOpen {
			continue
		}

		for _, obs := range observations[tracked.order.Ticker] {
			filled, price, err := e.evaluate(tracked, obs)
			if err != nil {
				e.logger.Error("order evaluation failed", append(tracked.order.Fields(), zap.Error(err))...)
				e.publishFailure(tracked.order.Id, err)
				break
			}
			if filled {
				e.executeOrder(tracked, price)
				break
			}
		}
	}
	return nil
}

func (e *Exchange) evaluate(tracked *trackedOrder, obs common.BidAsk) (filled bool, price fixed.Point, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluating order %d: %v", tracked.order.Id, r)
		}
	}()
	return Evaluate(&tracked.order, obs)
}

func (e *Exchange) executeOrder(tracked *trackedOrder, price fixed.Point) {
	order := tracked.order
	currency := e.symbols[order.Ticker].Currency

	if err := ValidateExecute(e.tracker, order.Id); err != nil {
		e.publishFailure(order.Id, err)
		return
	}

	result, err := e.ledger.Fill(order.Ticker, currency, order.Side, order.Quantity, price)
	if err != nil {
		e.logger.Warn("fill rejected", append(order.Fields(), zap.Error(err))...)
		e.terminate(tracked, common.OrderStateInactive, err)
		e.publishFailure(order.Id, err)
		return
	}

	execution := common.Execution{
		Id:       e.executionIds.Next(),
		OrderId:  order.Id,
		Ticker:   order.Ticker,
		Side:     order.Side,
		Quantity: order.Quantity,
		AvgPrice: price,
		Commission: common.CommissionReport{
			Commission:  result.Commission,
			Currency:    currency,
			RealizedPnL: result.RealizedPnL,
		},
		Meta: e.meta(),
	}
	if err := e.tracker.Execute(order.Id, execution); err != nil {
		e.publishFailure(order.Id, err)
		return
	}

	e.executions = append(e.executions, execution)
	if e.audit != nil {
		e.audit.AddExecution(execution)
	}

	e.logger.Debug("order executed", execution.Fields()...)
	e.post(bus.OrderExecutionEvent, execution)
	e.publishOrderUpdate(tracked)

	position := result.Position
	position.Meta = e.meta()
	e.post(bus.PositionUpdateEvent, position)
	e.publishAccountValues(currency)

	if order.ParentId != 0 {
		for _, sibling := range e.tracker.LiveChildren(order.ParentId) {
			e.terminate(sibling, common.OrderStateCancelled, ErrOrderCancelled)
		}
	}
	for _, child := range e.tracker.LiveChildren(order.Id) {
		if err := e.tracker.Open(child.order.Id); err != nil {
			e.publishFailure(child.order.Id, err)
			continue
		}
		e.publishOrderUpdate(child)
	}
}

// terminate cancels tracked and every held child below it.
func (e *Exchange) terminate(tracked *trackedOrder, state common.OrderState, cause error) {
	if err := e.tracker.Cancel(tracked.order.Id, state, cause); err != nil {
		e.logger.Warn("unable to cancel order", append(tracked.order.Fields(), zap.Error(err))...)
		return
	}
	e.publishOrderUpdate(tracked)

	for _, child := range e.tracker.LiveChildren(tracked.order.Id) {
		e.terminate(child, common.OrderStateCancelled, ErrOrderCancelled)
	}
}

func (e *Exchange) broadcastAccount(context.Context, time.Time) error {
	for _, currency := range e.ledger.Currencies() {
		e.publishAccountValues(currency)
	}
	return nil
}

func (e *Exchange) refreshPnL(_ context.Context, t time.Time) error {
	for _, position := range e.ledger.Positions() {
		if !position.IsOpen() {
			continue
		}
		c, ok := e.cursors[position.Ticker]
		if !ok {
			continue
		}
		last, ok := c.Last()
		if !ok {
			continue
		}
		if marked, changed := e.ledger.Mark(position.Ticker, last.Bid); changed {
			marked.Meta = e.meta()
			e.post(bus.PositionUpdateEvent, marked)
		}
	}

	account := e.ledger.Account()
	for _, currency := range e.ledger.Currencies() {
		pnl := common.PnL{
			Account:       account.Code,
			Currency:      currency,
			RealizedPnL:   account.RealizedPnL[currency],
			UnrealizedPnL: account.UnrealizedPnL[currency],
		}
		pnl.DailyPnL = pnl.RealizedPnL.Add(pnl.UnrealizedPnL)

		if last, ok := e.lastPnL[currency]; ok && last.DailyPnL.Eq(pnl.DailyPnL) &&
			last.RealizedPnL.Eq(pnl.RealizedPnL) && last.UnrealizedPnL.Eq(pnl.UnrealizedPnL) {
			continue
		}
		e.lastPnL[currency] = pnl
		pnl.Meta = e.meta()
		e.post(bus.PnLUpdateEvent, pnl)
	}

	if e.audit != nil {
		e.audit.AddEquitySnapshot(account.NetLiquidation(account.BaseCurrency), t)
	}
	return nil
}

func (e *Exchange) reset() {
	e.tracker.Reset(simulation.ErrReset)
	e.ledger.Reset()
	for _, c := range e.cursors {
		c.Rewind()
	}
	e.executions = nil
	clear(e.published)
	clear(e.lastPnL)
	if e.audit != nil {
		e.audit.Reset()
	}
}

func (e *Exchange) halt(err error) {
	e.tracker.FailWaiters(err)
}

func (e *Exchange) cursorFor(ctx context.Context, ticker string) (*cursor, error) {
	if c, ok := e.cursors[ticker]; ok {
		return c, nil
	}

	cfg := e.scheduler.Configuration()
	observations, err := e.tape.Fetch(ctx, ticker, cfg.Start, cfg.End)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch tape of %s: %w", ticker, err)
	}
	slices.SortStableFunc(observations, func(a, b common.BidAsk) int {
		return a.TimeStamp.Compare(b.TimeStamp)
	})

	e.logger.Debug("tape loaded", zap.String("ticker", ticker), zap.Int("observations", len(observations)))

	c := newCursor(observations)
	e.cursors[ticker] = c
	return c, nil
}

func (e *Exchange) publishAccountValues(currency string) {
	account := e.ledger.Account()
	cash := account.Cash[currency]

	values := []struct {
		key   string
		value fixed.Point
	}{
		{common.AccountValueCashBalance, cash},
		{common.AccountValueBuyingPower, cash},
		{common.AccountValueNetLiquidation, account.NetLiquidation(currency)},
		{common.AccountValueRealizedPnL, account.RealizedPnL[currency]},
		{common.AccountValueUnrealizedPnL, account.UnrealizedPnL[currency]},
		{common.AccountValueCommissions, account.Commissions[currency]},
	}

	for _, v := range values {
		key := v.key + "." + currency
		if last, ok := e.published[key]; ok && last.Eq(v.value) {
			continue
		}
		e.published[key] = v.value
		e.post(bus.AccountValueEvent, common.AccountValue{
			Account:  account.Code,
			Key:      v.key,
			Value:    v.value,
			Currency: currency,
			Meta:     e.meta(),
		})
	}
}

func (e *Exchange) publishOrderUpdate(tracked *trackedOrder) {
	e.post(bus.OrderUpdateEvent, common.OrderUpdate{
		Ticker: tracked.order.Ticker,
		Order:  tracked.order.Clone(),
		Status: tracked.status,
		Meta:   e.meta(),
	})
}

func (e *Exchange) publishFailure(orderId common.OrderId, err error) {
	e.post(bus.ErrorEvent, common.Failure{
		Err:     err,
		OrderId: orderId,
		Meta:    e.meta(),
	})
}

func (e *Exchange) post(id bus.EventId, data any) {
	if err := e.router.Post(id, data); err != nil {
		e.logger.Warn("unable to post event", zap.Stringer("event", id), zap.Error(err))
	}
}

func (e *Exchange) meta() common.Meta {
	return common.Meta{
		Source:    componentName,
		RunId:     e.scheduler.RunId(),
		TraceID:   utility.NewTraceID(),
		TimeStamp: e.clock.Now(),
	}
}
