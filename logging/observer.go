// Package logging records test execution events: as structured log lines and
// as per-run log files on disk.
package logging

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// LogObserver writes every engine event to a structured logger.
type LogObserver struct {
	log log.Logger
}

// NewLogObserver returns an observer logging through logger.
func NewLogObserver(logger log.Logger) *LogObserver {
	return &LogObserver{log: logger}
}

func (o *LogObserver) TestRunStarted(a *types.TestRunEventArgs) {
	o.log.Info("Test run started", "runID", a.RunID, "tests", a.Total)
}

func (o *LogObserver) TestRunCompleted(a *types.TestRunCompletedEventArgs) {
	lvl := log.LevelInfo
	if !a.Succeeded() || a.Cancelled {
		lvl = log.LevelWarn
	}
	o.log.Log(lvl, "Test run completed",
		"runID", a.RunID,
		"total", a.Total,
		"passed", a.Passed,
		"failed", a.Failed,
		"threw", a.Threw,
		"aborted", a.Aborted,
		"skipped", a.Skipped,
		"cancelled", a.Cancelled,
		"duration", a.Duration(),
	)
}

func (o *LogObserver) TestStarted(a *types.TestEventArgs) {
	o.log.Debug("Test started", "runID", a.RunID, "test", a.Method.FullName())
}

func (o *LogObserver) TestCompleted(a *types.TestCompletedEventArgs) {
	ctx := []any{"runID", a.RunID, "test", a.Method.FullName(), "result", a.Result, "duration", a.Duration()}
	switch a.Result {
	case types.TestResultPassed:
		o.log.Debug("Test completed", ctx...)
	case types.TestResultException:
		o.log.Error("Test threw", append(ctx, "msg", a.Message, "err", a.Err)...)
	default:
		o.log.Warn("Test completed", append(ctx, "msg", a.Message, "userMsg", a.UserMessage)...)
	}
}

func (o *LogObserver) TestSkipped(a *types.TestSkippedEventArgs) {
	ctx := []any{"runID", a.RunID, "test", a.Method.FullName(), "reason", a.Reason, "msg", a.Message}
	if a.Err != nil {
		ctx = append(ctx, "err", a.Err)
	}
	o.log.Warn("Test skipped", ctx...)
}
