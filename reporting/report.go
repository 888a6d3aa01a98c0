// Package reporting collects run events into report data and renders them as
// a console table or a text summary file.
package reporting

import (
	"time"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Status is the display status of a test or an aggregate.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
	StatusAbort Status = "ABORT"
	StatusSkip  Status = "SKIP"
)

func statusOf(r types.TestResult) Status {
	switch r {
	case types.TestResultPassed:
		return StatusPass
	case types.TestResultFailed:
		return StatusFail
	case types.TestResultAborted:
		return StatusAbort
	default:
		return StatusError
	}
}

// Stats counts tests by outcome.
type Stats struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
	Aborted int
	Skipped int
}

func (s *Stats) add(st Status) {
	s.Total++
	switch st {
	case StatusPass:
		s.Passed++
	case StatusFail:
		s.Failed++
	case StatusError:
		s.Errored++
	case StatusAbort:
		s.Aborted++
	case StatusSkip:
		s.Skipped++
	}
}

// Status summarizes the counts.
func (s Stats) Status() Status {
	switch {
	case s.Failed > 0 || s.Errored > 0:
		return StatusFail
	case s.Aborted > 0:
		return StatusAbort
	case s.Skipped > 0 && s.Passed == 0:
		return StatusSkip
	}
	return StatusPass
}

// TestItem is one executed or skipped method.
type TestItem struct {
	Name        string
	Description string
	Status      Status
	Message     string
	UserMessage string
	Log         string
	Error       error
	SkipReason  types.SkipReason
	Duration    time.Duration
}

// SuiteReport groups the tests of one declaring type.
type SuiteReport struct {
	Name     string
	Tests    []TestItem
	Stats    Stats
	Duration time.Duration
}

// ReportData is the report of one finished run.
type ReportData struct {
	RunID       string
	Gate        string
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Suites      []*SuiteReport
	Stats       Stats
	Cancelled   bool
	HasFailures bool
}
