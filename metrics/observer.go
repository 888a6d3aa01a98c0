package metrics

import (
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Observer records the event stream of one gate's runs.
type Observer struct {
	Gate string
}

func (o *Observer) TestRunStarted(*types.TestRunEventArgs) {
	RecordRunStarted(o.Gate)
}

func (o *Observer) TestRunCompleted(a *types.TestRunCompletedEventArgs) {
	RecordRun(o.Gate, a)
}

func (o *Observer) TestStarted(*types.TestEventArgs) {}

func (o *Observer) TestCompleted(a *types.TestCompletedEventArgs) {
	RecordTest(o.Gate, a.Method.TypeName(), a.Method.Name, a.Result, a.Duration())
}

func (o *Observer) TestSkipped(a *types.TestSkippedEventArgs) {
	RecordSkip(o.Gate, a.Method.TypeName(), a.Reason)
}
