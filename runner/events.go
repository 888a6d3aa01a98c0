package runner

import (
	"context"
	"sync"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Observer receives the event stream of a run. Handlers must not block for
// long: emission is serialized across workers.
type Observer interface {
	TestRunStarted(*types.TestRunEventArgs)
	TestRunCompleted(*types.TestRunCompletedEventArgs)
	TestStarted(*types.TestEventArgs)
	TestCompleted(*types.TestCompletedEventArgs)
	TestSkipped(*types.TestSkippedEventArgs)
}

// ObserverFuncs adapts individual functions to an Observer. Nil fields are ignored.
type ObserverFuncs struct {
	OnRunStarted   func(*types.TestRunEventArgs)
	OnRunCompleted func(*types.TestRunCompletedEventArgs)
	OnTestStarted  func(*types.TestEventArgs)
	OnCompleted    func(*types.TestCompletedEventArgs)
	OnSkipped      func(*types.TestSkippedEventArgs)
}

func (f ObserverFuncs) TestRunStarted(a *types.TestRunEventArgs) {
	if f.OnRunStarted != nil {
		f.OnRunStarted(a)
	}
}

func (f ObserverFuncs) TestRunCompleted(a *types.TestRunCompletedEventArgs) {
	if f.OnRunCompleted != nil {
		f.OnRunCompleted(a)
	}
}

func (f ObserverFuncs) TestStarted(a *types.TestEventArgs) {
	if f.OnTestStarted != nil {
		f.OnTestStarted(a)
	}
}

func (f ObserverFuncs) TestCompleted(a *types.TestCompletedEventArgs) {
	if f.OnCompleted != nil {
		f.OnCompleted(a)
	}
}

func (f ObserverFuncs) TestSkipped(a *types.TestSkippedEventArgs) {
	if f.OnSkipped != nil {
		f.OnSkipped(a)
	}
}

// Dispatcher decides where observer calls run.
type Dispatcher interface {
	Dispatch(fn func())
}

type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(fn func()) { fn() }

// InlineDispatcher runs observer calls on the emitting goroutine.
var InlineDispatcher Dispatcher = inlineDispatcher{}

// QueueDispatcher queues observer calls for an owner goroutine, which runs
// them with Run or Drain. Dispatch never blocks.
type QueueDispatcher struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

// NewQueueDispatcher returns an empty queue.
func NewQueueDispatcher() *QueueDispatcher {
	return &QueueDispatcher{notify: make(chan struct{}, 1)}
}

func (q *QueueDispatcher) Dispatch(fn func()) {
	q.mu.Lock()
	q.queue = append(q.queue, fn)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain runs every queued call on the calling goroutine and returns how many ran.
func (q *QueueDispatcher) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.queue
		q.queue = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
		}
		n += len(batch)
	}
}

// Run drains the queue whenever calls arrive until ctx is done. Calls still
// queued at that point are run before returning.
func (q *QueueDispatcher) Run(ctx context.Context) error {
	for {
		q.Drain()
		select {
		case <-q.notify:
		case <-ctx.Done():
			q.Drain()
			return ctx.Err()
		}
	}
}

type subscription struct {
	obs Observer
}

// eventBus holds the observer list. The list lock is independent of the run
// state; emitMu serializes handler invocation across workers.
type eventBus struct {
	subMu sync.Mutex
	subs  []*subscription // copy-on-write; snapshots are never mutated

	emitMu sync.Mutex
}

func (b *eventBus) subscribe(o Observer) func() {
	s := &subscription{obs: o}
	b.subMu.Lock()
	b.subs = append(b.subs, s)
	b.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.subMu.Lock()
			defer b.subMu.Unlock()
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *eventBus) snapshot() []*subscription {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return b.subs
}

func (b *eventBus) publish(d Dispatcher, fn func(Observer)) {
	subs := b.snapshot()
	if len(subs) == 0 {
		return
	}
	d.Dispatch(func() {
		b.emitMu.Lock()
		defer b.emitMu.Unlock()
		for _, s := range subs {
			fn(s.obs)
		}
	})
}
