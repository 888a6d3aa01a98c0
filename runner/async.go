package runner

import (
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"
)

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// RunHandle represents one run started with BeginRun. It can be polled with
// IsCompleted, waited on with WaitHandle, or observed through the callback
// passed to BeginRun. EndRun must be called exactly once to retrieve the
// run's fault and release the handle.
type RunHandle struct {
	owner    *handleRegistry
	state    any
	callback func(*RunHandle)

	completed atomic.Bool
	ended     atomic.Bool

	mu       sync.Mutex
	wait     chan struct{}
	disposed bool
	err      error
}

// IsCompleted reports whether the run has finished.
func (h *RunHandle) IsCompleted() bool {
	return h.completed.Load()
}

// State returns the value passed to BeginRun.
func (h *RunHandle) State() any {
	return h.state
}

// WaitHandle returns a channel that is closed once the run finishes. The
// channel is created on first use.
func (h *RunHandle) WaitHandle() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return closedChan
	}
	if h.wait == nil {
		h.wait = make(chan struct{})
		if h.completed.Load() {
			close(h.wait)
		}
	}
	return h.wait
}

func (h *RunHandle) complete(err error) {
	h.mu.Lock()
	h.err = err
	h.completed.Store(true)
	if h.wait != nil {
		close(h.wait)
	}
	h.mu.Unlock()

	if h.callback != nil {
		h.callback(h)
	}
}

func (h *RunHandle) dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed = true
	h.wait = nil
	return h.err
}

// handleRegistry tracks the handles that have not been ended yet.
type handleRegistry struct {
	mu   sync.Mutex
	live map[*RunHandle]struct{}
}

func (r *handleRegistry) begin(workload func() error, callback func(*RunHandle), state any) *RunHandle {
	h := &RunHandle{owner: r, state: state, callback: callback}

	r.mu.Lock()
	if r.live == nil {
		r.live = make(map[*RunHandle]struct{})
	}
	r.live[h] = struct{}{}
	r.mu.Unlock()

	go func() {
		var err error
		var pc panics.Catcher
		pc.Try(func() { err = workload() })
		if rec := pc.Recovered(); rec != nil {
			err = recoveredFault(rec.Value, rec.Stack)
		}
		h.complete(err)
	}()
	return h
}

func (r *handleRegistry) end(h *RunHandle) error {
	if h == nil || h.owner != r {
		return ErrUnknownHandle
	}
	if !h.ended.CompareAndSwap(false, true) {
		return ErrHandleEnded
	}
	r.mu.Lock()
	_, ok := r.live[h]
	r.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}

	if !h.IsCompleted() {
		<-h.WaitHandle()
	}

	r.mu.Lock()
	delete(r.live, h)
	r.mu.Unlock()
	return h.dispose()
}

func (r *handleRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
