package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidResult     = errors.New("invalid test result")
	ErrInvalidSkipReason = errors.New("invalid skip reason")
	ErrExceptionMismatch = errors.New("exception must be set if and only if the outcome requires it")
	ErrTimeOrder         = errors.New("start time must not be after end time")
	ErrNegativeCount     = errors.New("counts must not be negative")
)

// TestRunEventArgs is the payload of TestRunStarted and the base of
// TestRunCompletedEventArgs.
type TestRunEventArgs struct {
	RunID     string
	Total     int
	StartTime time.Time
}

// NewTestRunEventArgs validates and builds a run-start payload.
func NewTestRunEventArgs(runID string, total int, start time.Time) (*TestRunEventArgs, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: total=%d", ErrNegativeCount, total)
	}
	return &TestRunEventArgs{RunID: runID, Total: total, StartTime: start}, nil
}

// TestEventArgs is the payload of TestStarted and the base of the
// per-method completion and skip payloads.
type TestEventArgs struct {
	RunID  string
	Method *MethodDescriptor
}

// Description returns the method's description, if any.
func (a TestEventArgs) Description() string {
	if a.Method == nil {
		return ""
	}
	return a.Method.Description
}

// TestCompletedEventArgs reports the classified outcome of one test.
type TestCompletedEventArgs struct {
	TestEventArgs
	Result      TestResult
	Message     string
	UserMessage string
	Log         string
	Err         error
	StartTime   time.Time
	EndTime     time.Time
}

// Duration returns the wall time spent in the pipeline.
func (a *TestCompletedEventArgs) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// NewTestCompletedEventArgs validates the cross-field invariants and returns
// the payload. Err must be non-nil exactly when result is TestResultException.
func NewTestCompletedEventArgs(base TestEventArgs, result TestResult, message, userMessage, logText string,
	err error, start, end time.Time) (*TestCompletedEventArgs, error) {
	if !result.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResult, result)
	}
	if (err != nil) != (result == TestResultException) {
		return nil, fmt.Errorf("%w: result=%s", ErrExceptionMismatch, result)
	}
	if start.After(end) {
		return nil, ErrTimeOrder
	}
	return &TestCompletedEventArgs{
		TestEventArgs: base,
		Result:        result,
		Message:       message,
		UserMessage:   userMessage,
		Log:           logText,
		Err:           err,
		StartTime:     start,
		EndTime:       end,
	}, nil
}

// TestSkippedEventArgs reports a method excluded by validation.
type TestSkippedEventArgs struct {
	TestEventArgs
	Reason  SkipReason
	Message string
	Err     error
}

// NewTestSkippedEventArgs validates the payload. Err must be non-nil exactly
// when the reason is ConstructorThrewException.
func NewTestSkippedEventArgs(base TestEventArgs, reason SkipReason, message string, err error) (*TestSkippedEventArgs, error) {
	if !reason.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSkipReason, reason)
	}
	if (err != nil) != (reason == ConstructorThrewException) {
		return nil, fmt.Errorf("%w: reason=%s", ErrExceptionMismatch, reason)
	}
	return &TestSkippedEventArgs{
		TestEventArgs: base,
		Reason:        reason,
		Message:       message,
		Err:           err,
	}, nil
}

// TestRunCompletedEventArgs reports the aggregated counts of a finished run.
// Total always equals the sum of the five counts.
type TestRunCompletedEventArgs struct {
	TestRunEventArgs
	Passed    int
	Failed    int
	Threw     int
	Skipped   int
	Aborted   int
	EndTime   time.Time
	Cancelled bool
}

// NewTestRunCompletedEventArgs validates the counts and timing.
func NewTestRunCompletedEventArgs(runID string, passed, failed, threw, skipped, aborted int,
	start, end time.Time, cancelled bool) (*TestRunCompletedEventArgs, error) {
	for _, c := range []int{passed, failed, threw, skipped, aborted} {
		if c < 0 {
			return nil, fmt.Errorf("%w: passed=%d failed=%d threw=%d skipped=%d aborted=%d",
				ErrNegativeCount, passed, failed, threw, skipped, aborted)
		}
	}
	if start.After(end) {
		return nil, ErrTimeOrder
	}
	return &TestRunCompletedEventArgs{
		TestRunEventArgs: TestRunEventArgs{
			RunID:     runID,
			Total:     passed + failed + threw + skipped + aborted,
			StartTime: start,
		},
		Passed:    passed,
		Failed:    failed,
		Threw:     threw,
		Skipped:   skipped,
		Aborted:   aborted,
		EndTime:   end,
		Cancelled: cancelled,
	}, nil
}

// Duration returns the wall time of the run.
func (a *TestRunCompletedEventArgs) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// Succeeded reports whether no test failed, threw or aborted.
func (a *TestRunCompletedEventArgs) Succeeded() bool {
	return a.Failed == 0 && a.Threw == 0 && a.Aborted == 0
}

func (a *TestRunCompletedEventArgs) String() string {
	return fmt.Sprintf("run %s: total=%d passed=%d failed=%d threw=%d skipped=%d aborted=%d",
		a.RunID, a.Total, a.Passed, a.Failed, a.Threw, a.Skipped, a.Aborted)
}
