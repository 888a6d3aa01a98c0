package runner

import (
	"cmp"
	"slices"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// SortMethods orders methods by declaring type full name, then method name.
func SortMethods(methods []*types.MethodDescriptor) {
	slices.SortStableFunc(methods, func(a, b *types.MethodDescriptor) int {
		if c := cmp.Compare(a.TypeName(), b.TypeName()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// runSequential runs the queue in order on the calling goroutine.
func (e *Executor) runSequential(run *activeRun, queue []*types.MethodDescriptor) (Counts, error) {
	if err := e.emitRunStarted(run, len(queue)); err != nil {
		return Counts{}, err
	}

	w := e.newWorker(0, run)
	defer w.lifecycle.Dispose()

	for i, m := range queue {
		if run.cancelled() {
			w.log.Info("Test run cancelled", "runID", run.id, "remaining", len(queue)-i)
			break
		}
		if err := w.process(m); err != nil {
			return w.acct.Snapshot(), err
		}
	}
	w.lifecycle.Dispose()

	counts := w.acct.Snapshot()
	return counts, e.emitRunCompleted(run, counts, len(queue))
}
