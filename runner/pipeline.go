package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-testexec/assert"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// activeRun is the state shared by every execution stream of one run.
type activeRun struct {
	ctx      context.Context
	id       string
	start    time.Time
	cancel   atomic.Bool
	dispatch Dispatcher

	concurrent bool
	workers    int
}

func (r *activeRun) cancelled() bool {
	return r.cancel.Load() || r.ctx.Err() != nil
}

func (r *activeRun) requestCancel() {
	r.cancel.Store(true)
}

// worker is one execution stream. Its instance slot and counters are never
// shared with other workers.
type worker struct {
	id        int
	exec      *Executor
	run       *activeRun
	log       log.Logger
	lifecycle *InstanceLifecycle
	acct      Accounting

	done  chan struct{}
	fault error
}

func (e *Executor) newWorker(id int, run *activeRun) *worker {
	w := &worker{
		id:   id,
		exec: e,
		run:  run,
		log:  e.log.New("worker", id),
		done: make(chan struct{}),
	}
	w.lifecycle = NewInstanceLifecycle(w.log, w.reportSkip)
	return w
}

// process validates m and runs it. Skips and test failures are reported as
// events; a returned error is an engine fault.
func (w *worker) process(m *types.MethodDescriptor) error {
	instance, ok, err := w.lifecycle.EnsureInstance(m)
	if err != nil || !ok {
		return err
	}
	if v := ValidateMethod(m); !v.OK() {
		return w.reportSkip(m, v.Reason, v.Message, nil)
	}
	if m.Skip {
		msg := m.SkipMessage
		if msg == "" {
			msg = msgSkipMarker
		}
		return w.reportSkip(m, types.SkipTestAttributeDefined, msg, nil)
	}
	return w.execute(m, instance)
}

func (w *worker) reportSkip(m *types.MethodDescriptor, reason types.SkipReason, msg string, cause error) error {
	args, err := types.NewTestSkippedEventArgs(types.TestEventArgs{RunID: w.run.id, Method: m}, reason, msg, cause)
	if err != nil {
		return errors.Wrapf(err, "reporting skip of %s", m)
	}
	w.acct.RecordSkip()
	w.log.Debug("Test skipped", "test", m.FullName(), "reason", reason, "message", msg)
	w.exec.publish(w.run, func(o Observer) { o.TestSkipped(args) })
	return nil
}

func (w *worker) execute(m *types.MethodDescriptor, instance any) error {
	ctx, span := w.exec.tracer.Start(w.run.ctx, m.FullName(), trace.WithAttributes(
		attribute.String("test.type", m.TypeName()),
		attribute.String("test.method", m.Name),
	))
	defer span.End()

	base := types.TestEventArgs{RunID: w.run.id, Method: m}
	start := time.Now()
	w.exec.publish(w.run, func(o Observer) { o.TestStarted(&base) })

	rc := types.NewRunContext(ctx, w.run.id, m)
	out := w.runActionsAndBody(m, instance, rc)
	result, msg, cause := classify(out)
	end := time.Now()

	args, err := types.NewTestCompletedEventArgs(base, result, msg, out.UserMessage,
		rc.Text(result != types.TestResultPassed), cause, start, end)
	if err != nil {
		return errors.Wrapf(err, "completing %s", m)
	}
	w.acct.Record(result)

	span.SetAttributes(attribute.String("test.result", string(result)))
	if result != types.TestResultPassed {
		span.SetStatus(codes.Error, msg)
	}
	w.log.Debug("Test completed", "test", m.FullName(), "result", result, "duration", args.Duration())
	w.exec.publish(w.run, func(o Observer) { o.TestCompleted(args) })
	return nil
}

// runActionsAndBody runs the pre-test actions, the body and the post-test
// actions, stopping at the first invocation that does not succeed.
func (w *worker) runActionsAndBody(m *types.MethodDescriptor, instance any, rc *types.RunContext) types.Outcome {
	for _, a := range w.exec.actions.PreActions(m.Type) {
		if out := invoke(a, instance, rc); out.Failed() {
			return out
		}
	}
	if out := invoke(m, instance, rc); out.Failed() {
		return out
	}
	for _, a := range w.exec.actions.PostActions(m.Type) {
		if out := invoke(a, instance, rc); out.Failed() {
			return out
		}
	}
	return types.OK()
}

func invoke(m *types.MethodDescriptor, instance any, rc *types.RunContext) (out types.Outcome) {
	if m.Invoke == nil {
		return types.Threw(errors.Errorf("method %s has no invoker", m))
	}
	defer func() {
		if r := recover(); r != nil {
			out = assert.Recover(r)
		}
	}()
	return m.Invoke(instance, rc)
}

// classify maps an outcome to the completed result, its message and the
// fault to attach.
func classify(out types.Outcome) (types.TestResult, string, error) {
	switch out.Kind {
	case types.OutcomeOK:
		return types.TestResultPassed, msgPassed, nil
	case types.OutcomeAborted:
		return types.TestResultAborted, out.Message, nil
	case types.OutcomeAssertFailed:
		return types.TestResultFailed, out.Message, nil
	default:
		cause := out.Err
		if cause == nil {
			cause = &types.PanicError{Value: out.Message}
		}
		return types.TestResultException, fmt.Sprintf(msgException, types.QualifiedTypeName(cause)), cause
	}
}
