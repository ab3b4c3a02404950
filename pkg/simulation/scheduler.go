package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility"
)

const componentName = "simulation.scheduler"

// TickHandler runs once per simulated second on the scheduler goroutine.
// Returning an error faults the engine.
type TickHandler func(ctx context.Context, t time.Time) error

// HaltHandler is called on the scheduler goroutine when the day is over
// or the loop stops for good (cancellation or fault).
type HaltHandler func(err error)

type request struct {
	run    func()
	reject func(error)
}

// Scheduler owns the simulated clock. Every mutation of engine state happens on
// its goroutine: queued commands are drained in FIFO order before each tick and
// tick handlers run in registration order.
//
// Subscribe, OnReset and OnHalt must be called before Connect.
type Scheduler struct {
	logger *zap.Logger
	router *bus.Router
	cfg    Configuration

	mu      sync.Mutex
	queue   deque.Deque[request]
	running bool
	cancel  context.CancelFunc
	exited  chan struct{}
	wake    chan struct{}

	now atomic.Int64

	tickHandlers  []TickHandler
	resetHandlers []func()
	haltHandlers  []HaltHandler

	// owned by the loop goroutine
	current      time.Time
	paused       bool
	dayOver      bool
	runId        utility.RunID
	ticks        uint64
	runtime      time.Duration
	resumedAt    time.Time
	lastProgress time.Time
	inflight     *request
	runs         []Future[RunStatistics]
}

func NewScheduler(logger *zap.Logger, router *bus.Router, cfg Configuration) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &Scheduler{
		logger: logger.Named("scheduler"),
		router: router,
		cfg:    cfg,
		wake:   make(chan struct{}, 1),
		paused: true,
		runId:  utility.NewRunID(),
	}
	s.setCurrent(cfg.Start)
	return s, nil
}

func (s *Scheduler) Subscribe(handler TickHandler) {
	s.tickHandlers = append(s.tickHandlers, handler)
}

func (s *Scheduler) OnReset(handler func()) {
	s.resetHandlers = append(s.resetHandlers, handler)
}

func (s *Scheduler) OnHalt(handler HaltHandler) {
	s.haltHandlers = append(s.haltHandlers, handler)
}

func (s *Scheduler) Configuration() Configuration {
	return s.cfg
}

// Now is the simulated clock. It is safe to call from any goroutine.
func (s *Scheduler) Now() time.Time {
	return time.Unix(0, s.now.Load()).In(s.cfg.Start.Location())
}

// RunId identifies the current run. Only valid on the scheduler goroutine.
func (s *Scheduler) RunId() utility.RunID {
	return s.runId
}

// DayOver reports whether the clock reached the end. Only valid on the scheduler goroutine.
func (s *Scheduler) DayOver() bool {
	return s.dayOver
}

func (s *Scheduler) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Connect starts the scheduler goroutine in the paused state.
func (s *Scheduler) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyConnected
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.exited = make(chan struct{})

	go s.loop(loopCtx, s.exited)

	s.logger.Info("connected", zap.Time("start", s.cfg.Start), zap.Time("end", s.cfg.End))
	return nil
}

// Disconnect cancels the scheduler goroutine and waits for it to exit.
// Queued commands and pending run futures fail with ErrCancelled.
func (s *Scheduler) Disconnect() {
	s.mu.Lock()
	cancel, exited := s.cancel, s.exited
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if exited != nil {
		<-exited
	}
}

// Enqueue schedules cmd to run on the scheduler goroutine before the next tick.
func (s *Scheduler) Enqueue(cmd func()) error {
	return s.enqueue(request{run: cmd, reject: func(error) {}})
}

// Start resumes the clock. The returned future resolves with the run statistics
// once the day is over, immediately if it already is.
func (s *Scheduler) Start() (Future[RunStatistics], error) {
	future := NewFuture[RunStatistics]()

	err := s.enqueue(request{
		run: func() {
			if s.dayOver {
				future.Resolve(s.statistics())
				return
			}
			s.runs = append(s.runs, future)
			if s.paused {
				s.paused = false
				s.resumedAt = time.Now()
				s.logger.Info("started", zap.Time("t", s.current), zap.Stringer("run_id", s.runId))
			}
		},
		reject: future.Reject,
	})
	if err != nil {
		return nil, err
	}
	return future, nil
}

// Stop pauses the clock after the current tick completes. Stopping a paused
// or disconnected scheduler is a no-op.
func (s *Scheduler) Stop() {
	_ = s.enqueue(request{
		run: func() {
			if s.paused {
				return
			}
			s.paused = true
			s.accumulateRuntime()
			s.logger.Info("stopped", zap.Time("t", s.current))
		},
		reject: func(error) {},
	})
}

// Reset fails every queued command with ErrReset, then rewinds the clock to the
// start of the day and leaves it paused. The returned future resolves once the
// reset handlers ran.
func (s *Scheduler) Reset() (Future[struct{}], error) {
	future := NewFuture[struct{}]()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	stale := s.takeQueued()
	s.queue.PushBack(request{
		run: func() {
			s.rewind()
			future.Resolve(struct{}{})
		},
		reject: future.Reject,
	})
	s.mu.Unlock()

	s.notify()
	for _, r := range stale {
		r.reject(ErrReset)
	}
	return future, nil
}

// Call runs fn on the scheduler goroutine and waits for its result.
func Call[T any](ctx context.Context, s *Scheduler, fn func() (T, error)) (T, error) {
	future := NewFuture[T]()

	err := s.enqueue(request{
		run: func() {
			v, err := fn()
			if err != nil {
				future.Reject(err)
				return
			}
			future.Resolve(v)
		},
		reject: future.Reject,
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return future.Await(ctx)
}

func (s *Scheduler) enqueue(r request) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.queue.PushBack(r)
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// takeQueued must be called with mu held.
func (s *Scheduler) takeQueued() []request {
	pending := make([]request, s.queue.Len())
	for i := range pending {
		pending[i] = s.queue.PopFront()
	}
	return pending
}

func (s *Scheduler) loop(ctx context.Context, exited chan struct{}) {
	defer close(exited)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from panic", zap.Any("panic", r), zap.Stack("stack"))
			s.fault(fmt.Errorf("%w: %v", ErrEngineFault, r))
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			s.halt(fmt.Errorf("%w: %w", ErrCancelled, err))
			return
		}

		s.drain()

		if s.paused || s.dayOver {
			select {
			case <-ctx.Done():
			case <-s.wake:
			}
			continue
		}

		if !s.current.Before(s.cfg.End) {
			s.finish()
			continue
		}

		if err := s.tick(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error("tick failed", zap.Error(err), zap.Time("t", s.current))
			s.fault(fmt.Errorf("%w: %w", ErrEngineFault, err))
			return
		}
	}
}

func (s *Scheduler) drain() {
	s.mu.Lock()
	batch := s.takeQueued()
	s.mu.Unlock()

	for i := range batch {
		s.inflight = &batch[i]
		batch[i].run()
		s.inflight = nil
	}
}

func (s *Scheduler) tick(ctx context.Context) error {
	for _, handler := range s.tickHandlers {
		if err := handler(ctx, s.current); err != nil {
			return err
		}
	}
	s.ticks++
	s.postProgress()

	if err := Sleep(ctx, s.cfg.SecondDuration(), s.cfg.CoarseTimerThreshold); err != nil {
		return err
	}
	s.setCurrent(s.current.Add(time.Second))
	return nil
}

func (s *Scheduler) finish() {
	s.dayOver = true
	s.accumulateRuntime()

	stats := s.statistics()
	s.logger.Info("day over", zap.Time("end", s.current), zap.Uint64("ticks", s.ticks), zap.Duration("runtime", stats.Runtime))
	s.postProgressAt(s.current)

	for _, h := range s.haltHandlers {
		h(ErrDayOver)
	}
	for _, f := range s.runs {
		f.Resolve(stats)
	}
	s.runs = nil
}

func (s *Scheduler) rewind() {
	for _, f := range s.runs {
		f.Reject(ErrReset)
	}
	s.runs = nil

	for _, h := range s.resetHandlers {
		h()
	}

	s.setCurrent(s.cfg.Start)
	s.paused = true
	s.dayOver = false
	s.ticks = 0
	s.runtime = 0
	s.resumedAt = time.Time{}
	s.lastProgress = time.Time{}
	s.runId = utility.NewRunID()

	s.logger.Info("reset", zap.Time("t", s.current), zap.Stringer("run_id", s.runId))
}

func (s *Scheduler) fault(err error) {
	failure := common.Failure{
		Err: err,
		Meta: common.Meta{
			Source:    componentName,
			RunId:     s.runId,
			TraceID:   utility.NewTraceID(),
			TimeStamp: s.current,
		},
	}
	if postErr := s.router.Post(bus.ErrorEvent, failure); postErr != nil {
		s.logger.Warn("unable to post error event", zap.Error(postErr))
	}
	s.halt(err)
}

// halt stops accepting commands and fails everything still waiting on the loop.
func (s *Scheduler) halt(err error) {
	s.mu.Lock()
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	pending := s.takeQueued()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if s.inflight != nil {
		s.inflight.reject(err)
		s.inflight = nil
	}
	for _, r := range pending {
		r.reject(err)
	}

	s.accumulateRuntime()
	s.paused = true

	for _, f := range s.runs {
		f.Reject(err)
	}
	s.runs = nil

	for _, h := range s.haltHandlers {
		h(err)
	}

	s.logger.Info("disconnected", zap.Error(err), zap.Time("t", s.current))
}

func (s *Scheduler) postProgress() {
	if s.cfg.ProgressInterval <= 0 {
		return
	}
	if !s.lastProgress.IsZero() && s.current.Sub(s.lastProgress) < s.cfg.ProgressInterval {
		return
	}
	s.postProgressAt(s.current)
}

func (s *Scheduler) postProgressAt(t time.Time) {
	if s.cfg.ProgressInterval <= 0 {
		return
	}
	s.lastProgress = t

	progress := common.Progress{
		Start: s.cfg.Start,
		End:   s.cfg.End,
		Meta: common.Meta{
			Source:    componentName,
			RunId:     s.runId,
			TraceID:   utility.NewTraceID(),
			TimeStamp: t,
		},
	}
	if err := s.router.Post(bus.ProgressEvent, progress); err != nil {
		s.logger.Debug("unable to post progress event", zap.Error(err))
	}
}

func (s *Scheduler) setCurrent(t time.Time) {
	s.current = t
	s.now.Store(t.UnixNano())
}

func (s *Scheduler) accumulateRuntime() {
	if s.resumedAt.IsZero() {
		return
	}
	s.runtime += time.Since(s.resumedAt)
	s.resumedAt = time.Time{}
}

func (s *Scheduler) statistics() RunStatistics {
	runtime := s.runtime
	if !s.resumedAt.IsZero() {
		runtime += time.Since(s.resumedAt)
	}
	return RunStatistics{
		RunId:   s.runId,
		Start:   s.cfg.Start,
		End:     s.current,
		Ticks:   s.ticks,
		Runtime: runtime,
	}
}
