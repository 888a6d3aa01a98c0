package runner

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-testexec/filter"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Config configures an Executor.
type Config struct {
	Log log.Logger

	// Concurrent selects the concurrent runner.
	Concurrent bool
	// Workers is the concurrent worker count. Zero uses GOMAXPROCS.
	Workers int
	// PollInterval is how often worker liveness is checked.
	PollInterval time.Duration

	// Context is the dispatch target captured at construction. Observer
	// calls are routed through it while MarshalEvents is enabled.
	Context       Dispatcher
	MarshalEvents bool

	Tracer trace.Tracer
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID string
	Counts
	Queued    int
	StartTime time.Time
	EndTime   time.Time
	Cancelled bool
	Err       error
}

// Duration returns the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Executor runs test methods and publishes the resulting events. At most one
// run is active at a time.
type Executor struct {
	log          log.Logger
	tracer       trace.Tracer
	pollInterval time.Duration
	context      Dispatcher
	actions      *ActionCache
	bus          eventBus
	handles      handleRegistry

	// current is the active run, nil while idle. Claiming it is the
	// idle to preparing transition.
	current    atomic.Pointer[activeRun]
	concurrent atomic.Bool
	marshal    atomic.Bool
	workers    atomic.Int32

	lastMu sync.Mutex
	last   *RunSummary
}

// NewExecutor creates an executor from cfg, applying defaults.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Workers < 0 {
		return nil, errors.Errorf("worker count cannot be negative: %d", cfg.Workers)
	}
	if cfg.MarshalEvents && cfg.Context == nil {
		return nil, ErrNoCapturedContext
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(TracerName)
	}

	e := &Executor{
		log:          cfg.Log.New("component", "executor"),
		tracer:       cfg.Tracer,
		pollInterval: cfg.PollInterval,
		context:      cfg.Context,
		actions:      NewActionCache(),
	}
	e.concurrent.Store(cfg.Concurrent)
	e.marshal.Store(cfg.MarshalEvents)
	e.workers.Store(int32(cfg.Workers))
	return e, nil
}

// Subscribe adds o to the observer list and returns a function removing it.
// It may be called while a run is active.
func (e *Executor) Subscribe(o Observer) (unsubscribe func()) {
	return e.bus.subscribe(o)
}

// SetConcurrent selects the concurrent runner for subsequent runs.
func (e *Executor) SetConcurrent(on bool) {
	e.concurrent.Store(on)
}

// SetWorkers sets the worker count for subsequent concurrent runs.
func (e *Executor) SetWorkers(n int) {
	e.workers.Store(int32(max(n, 0)))
}

// SetMarshalEvents toggles routing observer calls through the captured
// dispatch target. An active run keeps the target it started with.
func (e *Executor) SetMarshalEvents(on bool) error {
	if on && e.context == nil {
		return ErrNoCapturedContext
	}
	e.marshal.Store(on)
	return nil
}

// IsRunning reports whether a run is being prepared or executed.
func (e *Executor) IsRunning() bool {
	return e.current.Load() != nil
}

// Cancel asks the active run to stop before the next method. Methods already
// started run to completion. A run still being prepared stops before its
// first method. It is a no-op when no run is active.
func (e *Executor) Cancel() {
	run := e.current.Load()
	if run == nil {
		return
	}
	e.log.Info("Cancellation requested", "runID", run.id)
	run.requestCancel()
}

// LastRun returns the summary of the most recently finished run.
func (e *Executor) LastRun() (RunSummary, bool) {
	e.lastMu.Lock()
	defer e.lastMu.Unlock()
	if e.last == nil {
		return RunSummary{}, false
	}
	return *e.last, true
}

// PrepareAndRunSync runs methods on the calling goroutine. If groups is
// non-empty only methods carrying one of the groups run. It returns
// ErrRunInProgress without side effects if a run is active, and an engine
// fault if the run ended early.
func (e *Executor) PrepareAndRunSync(ctx context.Context, methods []*types.MethodDescriptor, groups []string) error {
	run, queue, err := e.prepare(ctx, methods, groups)
	if err != nil {
		return err
	}
	return e.execute(run, queue)
}

// BeginRun starts a run on a background goroutine and returns its handle.
// Preparation happens before returning, so ErrRunInProgress is reported
// directly. callback, if set, is called with the handle after completion.
func (e *Executor) BeginRun(ctx context.Context, methods []*types.MethodDescriptor, groups []string,
	callback func(*RunHandle), state any) (*RunHandle, error) {
	run, queue, err := e.prepare(ctx, methods, groups)
	if err != nil {
		return nil, err
	}
	return e.handles.begin(func() error { return e.execute(run, queue) }, callback, state), nil
}

// EndRun waits for the run behind h and returns its fault, if any. A handle
// can be ended once.
func (e *Executor) EndRun(h *RunHandle) error {
	return e.handles.end(h)
}

// PendingHandles returns the number of handles issued by BeginRun that have
// not been ended.
func (e *Executor) PendingHandles() int {
	return e.handles.count()
}

func (e *Executor) prepare(ctx context.Context, methods []*types.MethodDescriptor, groups []string) (*activeRun, []*types.MethodDescriptor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	run := &activeRun{
		ctx:        ctx,
		id:         uuid.New().String(),
		dispatch:   e.dispatcher(),
		concurrent: e.concurrent.Load(),
		workers:    int(e.workers.Load()),
	}
	if !e.current.CompareAndSwap(nil, run) {
		return nil, nil, ErrRunInProgress
	}
	if slices.Contains(methods, nil) {
		e.current.Store(nil)
		return nil, nil, ErrNilMethod
	}

	queue := filter.ByGroups(methods, groups)
	SortMethods(queue)
	run.start = time.Now()
	e.log.Debug("Prepared test run", "runID", run.id, "candidates", len(methods), "queued", len(queue), "groups", groups)
	return run, queue, nil
}

// execute runs the prepared queue. The run state is released however the
// run ends.
func (e *Executor) execute(run *activeRun, queue []*types.MethodDescriptor) (err error) {
	defer e.current.CompareAndSwap(run, nil)

	ctx, span := e.tracer.Start(run.ctx, "test run", trace.WithAttributes(
		attribute.String("run.id", run.id),
		attribute.Int("run.queued", len(queue)),
		attribute.Bool("run.concurrent", run.concurrent),
	))
	defer span.End()
	run.ctx = ctx

	var counts Counts
	var pc panics.Catcher
	pc.Try(func() {
		if run.concurrent {
			counts, err = e.runConcurrent(run, queue)
		} else {
			counts, err = e.runSequential(run, queue)
		}
	})
	if r := pc.Recovered(); r != nil {
		err = recoveredFault(r.Value, r.Stack)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error("Test run faulted", "runID", run.id, "err", err)
	}

	e.lastMu.Lock()
	e.last = &RunSummary{
		RunID:     run.id,
		Counts:    counts,
		Queued:    len(queue),
		StartTime: run.start,
		EndTime:   time.Now(),
		Cancelled: counts.Total() < len(queue),
		Err:       err,
	}
	e.lastMu.Unlock()
	return err
}

func (e *Executor) dispatcher() Dispatcher {
	if e.marshal.Load() && e.context != nil {
		return e.context
	}
	return InlineDispatcher
}

func (e *Executor) publish(run *activeRun, fn func(Observer)) {
	e.bus.publish(run.dispatch, fn)
}

func (e *Executor) emitRunStarted(run *activeRun, total int) error {
	args, err := types.NewTestRunEventArgs(run.id, total, run.start)
	if err != nil {
		return errors.Wrap(err, "starting run")
	}
	e.log.Info("Test run started", "runID", run.id, "total", total)
	e.publish(run, func(o Observer) { o.TestRunStarted(args) })
	return nil
}

func (e *Executor) emitRunCompleted(run *activeRun, c Counts, queued int) error {
	cancelled := c.Total() < queued
	args, err := types.NewTestRunCompletedEventArgs(run.id, c.Passed, c.Failed, c.Threw, c.Skipped, c.Aborted,
		run.start, time.Now(), cancelled)
	if err != nil {
		return errors.Wrap(err, "completing run")
	}
	e.log.Info("Test run completed", "runID", run.id, "passed", c.Passed, "failed", c.Failed,
		"threw", c.Threw, "skipped", c.Skipped, "aborted", c.Aborted, "cancelled", cancelled,
		"duration", args.Duration())
	e.publish(run, func(o Observer) { o.TestRunCompleted(args) })
	return nil
}
