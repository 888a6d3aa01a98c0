package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testexec/runner"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "nil error", err: nil},
		{name: "simple error", err: errors.New("test error")},
		{name: "error with special chars", err: errors.New("test@error#123")},
		{name: "error with multiple spaces", err: errors.New("test   error")},
		{name: "error with multiple underscores", err: errors.New("test__error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordErrorDetails(t *testing.T) {
	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
	assert.Equal(t, 1.0, counterValue(t, errorsTotal.WithLabelValues("test.sample_error")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestRecordTestRejectsInvalidResult(t *testing.T) {
	RecordTest("gate-invalid", "suite", "TestX", types.TestResult("bogus"), time.Second)
	RecordTest("gate-invalid", "suite", "TestX", types.TestResultPassed, time.Second)
	assert.Equal(t, 1.0, counterValue(t, testsTotal.WithLabelValues("gate-invalid", "suite", "TestX", "passed")))
}

func TestObserverRecordsRun(t *testing.T) {
	typ := &types.TypeDescriptor{FullName: "pkg.Suite"}
	pass := &types.MethodDescriptor{Type: typ, Name: "TestPass"}
	skip := &types.MethodDescriptor{Type: typ, Name: "TestSkip"}
	var obs runner.Observer = &Observer{Gate: "observer-gate"}

	start := time.Now()
	obs.TestRunStarted(&types.TestRunEventArgs{RunID: "r1", Total: 2, StartTime: start})
	assert.Equal(t, 1.0, gaugeValue(t, runInProgress.WithLabelValues("observer-gate")))

	completed, err := types.NewTestCompletedEventArgs(types.TestEventArgs{RunID: "r1", Method: pass},
		types.TestResultPassed, "Test passed.", "", "", nil, start, start.Add(time.Millisecond))
	require.NoError(t, err)
	obs.TestStarted(&completed.TestEventArgs)
	obs.TestCompleted(completed)

	skipped, err := types.NewTestSkippedEventArgs(types.TestEventArgs{RunID: "r1", Method: skip},
		types.MethodNotSupported, "The test method is static.", nil)
	require.NoError(t, err)
	obs.TestSkipped(skipped)

	done, err := types.NewTestRunCompletedEventArgs("r1", 1, 0, 0, 1, 0, start, start.Add(time.Second), false)
	require.NoError(t, err)
	obs.TestRunCompleted(done)

	assert.Equal(t, 1.0, counterValue(t, testsTotal.WithLabelValues("observer-gate", "pkg.Suite", "TestPass", "passed")))
	assert.Equal(t, 1.0, counterValue(t, skipsTotal.WithLabelValues("observer-gate", "pkg.Suite", string(types.MethodNotSupported))))
	assert.Equal(t, 1.0, counterValue(t, runsTotal.WithLabelValues("observer-gate", "passed")))
	assert.Equal(t, 0.0, gaugeValue(t, runInProgress.WithLabelValues("observer-gate")))
	assert.Equal(t, 1.0, gaugeValue(t, runResults.WithLabelValues("observer-gate", "skipped")))
	assert.Equal(t, 1.0, gaugeValue(t, runDuration.WithLabelValues("observer-gate")))
}

func TestRecordRunOutcomes(t *testing.T) {
	start := time.Now()
	failed, err := types.NewTestRunCompletedEventArgs("r", 0, 1, 0, 0, 0, start, start, false)
	require.NoError(t, err)
	cancelled, err := types.NewTestRunCompletedEventArgs("r", 1, 1, 0, 0, 0, start, start, true)
	require.NoError(t, err)

	RecordRun("outcome-gate", failed)
	RecordRun("outcome-gate", cancelled)
	RecordRunFault("outcome-gate", errors.New("worker fault"))

	assert.Equal(t, 1.0, counterValue(t, runsTotal.WithLabelValues("outcome-gate", "failed")))
	assert.Equal(t, 1.0, counterValue(t, runsTotal.WithLabelValues("outcome-gate", "cancelled")))
	assert.Equal(t, 1.0, counterValue(t, runsTotal.WithLabelValues("outcome-gate", "fault")))
}
