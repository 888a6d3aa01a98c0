package runner

import (
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sourcegraph/conc/panics"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// determineConcurrency returns the worker count for a run over items
// methods. A non-positive request uses GOMAXPROCS. The result is never more
// than items and never less than one.
func determineConcurrency(requested, items int) int {
	n := requested
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(min(n, items), 1)
}

// runConcurrent drains one shared queue with a fixed set of workers. If any
// worker faults, the remaining workers stop dequeuing and the faults are
// returned together instead of a completion event.
func (e *Executor) runConcurrent(run *activeRun, queue []*types.MethodDescriptor) (Counts, error) {
	if err := e.emitRunStarted(run, len(queue)); err != nil {
		return Counts{}, err
	}

	n := determineConcurrency(run.workers, len(queue))
	if n > MaxReasonableConcurrency {
		e.log.Warn("Very high concurrency requested", "workers", n,
			"recommendation", "Consider using lower values to avoid resource exhaustion")
	}

	work := make(chan *types.MethodDescriptor, len(queue))
	for _, m := range queue {
		work <- m
	}
	close(work)

	e.log.Info("Starting concurrent test execution", "runID", run.id, "total", len(queue), "workers", n)
	workers := make([]*worker, n)
	for i := range workers {
		workers[i] = e.newWorker(i, run)
		go workers[i].drain(work)
	}

	e.supervise(run, workers)

	var faults *multierror.Error
	var counts Counts
	for _, w := range workers {
		if w.fault != nil {
			faults = multierror.Append(faults, w.fault)
		}
		counts = counts.Add(w.acct.Snapshot())
	}
	if err := faults.ErrorOrNil(); err != nil {
		return counts, err
	}
	return counts, e.emitRunCompleted(run, counts, len(queue))
}

// supervise polls worker liveness until every worker has stopped, cancelling
// the run as soon as a faulted worker is seen.
func (e *Executor) supervise(run *activeRun, workers []*worker) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		alive := 0
		for _, w := range workers {
			select {
			case <-w.done:
				if w.fault != nil && !run.cancel.Load() {
					e.log.Warn("Worker faulted, cancelling run", "worker", w.id, "err", w.fault)
					run.requestCancel()
				}
			default:
				alive++
			}
		}
		if alive == 0 {
			return
		}
		<-ticker.C
	}
}

// drain runs methods from work until it is empty or the run is cancelled.
func (w *worker) drain(work <-chan *types.MethodDescriptor) {
	defer close(w.done)

	var pc panics.Catcher
	pc.Try(func() {
		for !w.run.cancelled() {
			m, ok := <-work
			if !ok {
				return
			}
			if err := w.process(m); err != nil {
				w.fault = err
				return
			}
		}
	})
	pc.Try(w.lifecycle.Dispose)

	if r := pc.Recovered(); r != nil && w.fault == nil {
		w.fault = recoveredFault(r.Value, r.Stack)
	}
	if w.fault != nil {
		w.run.requestCancel()
	}
}
