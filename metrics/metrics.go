package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

const (
	MetricsNamespace = "testexec"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of completed tests by result",
	}, []string{
		"gate",
		"suite",
		"test",
		"result",
	})

	skipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "skips_total",
		Help:      "Count of skipped tests by reason",
	}, []string{
		"gate",
		"suite",
		"reason",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of individual tests",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{
		"gate",
		"suite",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of finished runs by outcome",
	}, []string{
		"gate",
		"result",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Per-result test counts of the latest run",
	}, []string{
		"gate",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the latest run",
	}, []string{
		"gate",
	})

	runInProgress = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_in_progress",
		Help:      "1 while a run is active",
	}, []string{
		"gate",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordTest(gate, suite, test string, result types.TestResult, duration time.Duration) {
	if !result.IsValid() {
		log.Error("RecordTest - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"gate", gate,
			"suite", suite,
			"test", test,
			"result", result)
	}
	testsTotal.WithLabelValues(gate, suite, test, string(result)).Inc()
	testDuration.WithLabelValues(gate, suite).Observe(duration.Seconds())
}

func RecordSkip(gate, suite string, reason types.SkipReason) {
	skipsTotal.WithLabelValues(gate, suite, string(reason)).Inc()
}

func RecordRunStarted(gate string) {
	runInProgress.WithLabelValues(gate).Set(1)
}

func RecordRun(gate string, run *types.TestRunCompletedEventArgs) {
	result := "passed"
	switch {
	case run.Cancelled:
		result = "cancelled"
	case !run.Succeeded():
		result = "failed"
	}
	runInProgress.WithLabelValues(gate).Set(0)
	runsTotal.WithLabelValues(gate, result).Inc()
	runDuration.WithLabelValues(gate).Set(run.Duration().Seconds())

	runResults.WithLabelValues(gate, string(types.TestResultPassed)).Set(float64(run.Passed))
	runResults.WithLabelValues(gate, string(types.TestResultFailed)).Set(float64(run.Failed))
	runResults.WithLabelValues(gate, string(types.TestResultException)).Set(float64(run.Threw))
	runResults.WithLabelValues(gate, string(types.TestResultAborted)).Set(float64(run.Aborted))
	runResults.WithLabelValues(gate, "skipped").Set(float64(run.Skipped))
}

// RecordRunFault records a run that ended with an engine fault.
func RecordRunFault(gate string, err error) {
	runInProgress.WithLabelValues(gate).Set(0)
	runsTotal.WithLabelValues(gate, "fault").Inc()
	RecordErrorDetails("run_fault", err)
}
