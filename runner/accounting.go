package runner

import (
	"sync/atomic"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Counts is a snapshot of result counters.
type Counts struct {
	Passed  int
	Failed  int
	Threw   int
	Skipped int
	Aborted int
}

// Total returns the sum of all counters.
func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Threw + c.Skipped + c.Aborted
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Passed:  c.Passed + o.Passed,
		Failed:  c.Failed + o.Failed,
		Threw:   c.Threw + o.Threw,
		Skipped: c.Skipped + o.Skipped,
		Aborted: c.Aborted + o.Aborted,
	}
}

// Accounting holds the result counters of one execution stream.
type Accounting struct {
	passed  atomic.Int64
	failed  atomic.Int64
	threw   atomic.Int64
	skipped atomic.Int64
	aborted atomic.Int64
}

// Record increments the counter matching r.
func (a *Accounting) Record(r types.TestResult) {
	switch r {
	case types.TestResultPassed:
		a.passed.Add(1)
	case types.TestResultFailed:
		a.failed.Add(1)
	case types.TestResultException:
		a.threw.Add(1)
	case types.TestResultAborted:
		a.aborted.Add(1)
	}
}

// RecordSkip increments the skipped counter.
func (a *Accounting) RecordSkip() {
	a.skipped.Add(1)
}

// Snapshot returns the current counter values.
func (a *Accounting) Snapshot() Counts {
	return Counts{
		Passed:  int(a.passed.Load()),
		Failed:  int(a.failed.Load()),
		Threw:   int(a.threw.Load()),
		Skipped: int(a.skipped.Load()),
		Aborted: int(a.aborted.Load()),
	}
}
