package testexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-testexec/filter"
	"github.com/ethereum-optimism/infra/op-testexec/logging"
	"github.com/ethereum-optimism/infra/op-testexec/metrics"
	"github.com/ethereum-optimism/infra/op-testexec/registry"
	"github.com/ethereum-optimism/infra/op-testexec/reporting"
	"github.com/ethereum-optimism/infra/op-testexec/runner"
	"github.com/ethereum-optimism/infra/op-testexec/service"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

var _ cliapp.Lifecycle = (*App)(nil)

// App runs the selected tests once, or periodically, and reports the results.
type App struct {
	config    *Config
	version   string
	out       io.Writer
	registry  *registry.Registry
	executor  *runner.Executor
	queue     *runner.QueueDispatcher
	collector *reporting.Collector
	files     *logging.FileLogger
	summaries *reporting.TextSummarySink
	html      *reporting.HTMLSink
	table     *reporting.TableFormatter
	scheduler *Scheduler
	service   *service.Service

	running atomic.Bool
	runs    atomic.Int64

	mu       sync.Mutex
	last     *runner.RunSummary
	lastErr  error
	shutdown context.CancelCauseFunc
}

// New wires the application. source supplies the registered suites.
func New(ctx context.Context, config *Config, source registry.Source, version string, shutdown context.CancelCauseFunc) (*App, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		return nil, errors.New("logger is required")
	}
	config.Log.Debug("Creating app with config",
		"plan", config.PlanFile,
		"gate", config.Gate,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"logDir", config.LogDir)

	reg, err := registry.NewRegistry(registry.Config{
		Log:      config.Log,
		Source:   source,
		PlanFile: config.PlanFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	queue := runner.NewQueueDispatcher()
	executor, err := runner.NewExecutor(runner.Config{
		Log:           config.Log,
		Context:       queue,
		MarshalEvents: config.MarshalEvents,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	files, err := logging.NewFileLogger(config.LogDir, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	html, err := reporting.NewHTMLSink(config.LogDir, func(suite string, test reporting.TestItem) string {
		return logging.TestLogPath(suite+"."+test.Name, test.Status == reporting.StatusPass)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTML sink: %w", err)
	}

	a := &App{
		config:    config,
		version:   version,
		out:       os.Stdout,
		registry:  reg,
		executor:  executor,
		queue:     queue,
		collector: reporting.NewCollector(config.Gate),
		files:     files,
		summaries: reporting.NewTextSummarySink(config.LogDir, true),
		html:      html,
		table:     reporting.NewTableFormatter("Test Results", config.ShowTests),
		scheduler: NewScheduler(config.RunInterval, config.Log),
		shutdown:  shutdown,
	}
	a.service = service.New(config.Service, config.Log, a)

	executor.Subscribe(a.collector)
	executor.Subscribe(logging.NewLogObserver(config.Log))
	executor.Subscribe(files)
	executor.Subscribe(&metrics.Observer{Gate: config.Gate})
	a.scheduler.RegisterCallback(a.runTests)
	return a, nil
}

// SetOutput redirects the console output of the app.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// Start implements the cliapp.Lifecycle interface.
func (a *App) Start(ctx context.Context) error {
	a.running.Store(true)
	if a.config.Service.HealthzEnabled || a.config.Service.MetricsEnabled {
		a.service.Start(ctx)
	}

	if a.config.ListOnly {
		if err := a.listTests(); err != nil {
			return err
		}
		a.requestShutdown()
		return nil
	}

	if a.config.RunOnce {
		a.config.Log.Info("Starting op-testexec in run-once mode", "version", a.version)
	} else {
		a.config.Log.Info("Starting op-testexec in continuous mode", "version", a.version, "interval", a.config.RunInterval)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		a.config.Log.Error("Runtime error running tests", "err", err)
		return err
	}
	if !a.config.RunOnce {
		return nil
	}

	a.config.Log.Info("Tests completed, exiting (run-once mode)")
	if last, ok := a.LastRun(); ok && !succeeded(last) {
		a.config.Log.Warn("Run-once test run completed with failures, returning exit code 1")
		return NewTestFailureError(describe(last))
	}
	a.requestShutdown()
	return nil
}

func (a *App) requestShutdown() {
	if a.shutdown != nil {
		go a.shutdown(nil)
	}
}

// Stop implements the cliapp.Lifecycle interface.
func (a *App) Stop(ctx context.Context) error {
	if !a.running.Swap(false) {
		return nil
	}
	a.config.Log.Info("Stopping op-testexec")
	a.scheduler.Stop()
	a.executor.Cancel()
	if err := a.scheduler.WaitForShutdown(ctx); err != nil {
		return err
	}
	a.service.Shutdown(ctx)
	if err := a.files.Close(); err != nil {
		a.config.Log.Warn("Failed to flush test logs", "err", err)
	}
	a.config.Log.Info("op-testexec stopped")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (a *App) Stopped() bool {
	return !a.running.Load()
}

// LastRun returns the summary of the most recent run.
func (a *App) LastRun() (runner.RunSummary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return runner.RunSummary{}, false
	}
	return *a.last, true
}

// Status implements service.StatusProvider.
func (a *App) Status() service.Status {
	st := service.Status{
		Running: a.executor.IsRunning(),
		Runs:    int(a.runs.Load()),
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastErr != nil {
		st.LastError = a.lastErr.Error()
	}
	if a.last == nil {
		return st
	}
	ended := a.last.EndTime
	st.LastRunID = a.last.RunID
	st.LastEnded = &ended
	st.Total = a.last.Total()
	st.Passed = a.last.Passed
	st.Failed = a.last.Failed
	st.Threw = a.last.Threw
	st.Aborted = a.last.Aborted
	st.Skipped = a.last.Skipped
	st.Cancelled = a.last.Cancelled
	return st
}

// selection resolves the methods and groups of the next run.
func (a *App) selection() ([]*types.MethodDescriptor, []string, error) {
	sel, err := a.registry.Select(a.config.Gate)
	if err != nil {
		return nil, nil, err
	}
	methods := sel.Methods
	if a.config.Filter != "" {
		expr, err := filter.Compile(a.config.Filter)
		if err != nil {
			return nil, nil, err
		}
		if methods, err = expr.Apply(methods); err != nil {
			return nil, nil, err
		}
	}
	groups := sel.Groups
	if len(a.config.Groups) > 0 {
		groups = filter.NormalizeGroups(a.config.Groups)
	}
	return methods, groups, nil
}

// runTests runs the selection once and reports it. Only failures to run are
// returned; test failures are reflected in LastRun.
func (a *App) runTests(ctx context.Context) error {
	a.runs.Add(1)
	if err := a.registry.Reload(); err != nil {
		return a.fail(err)
	}
	methods, groups, err := a.selection()
	if err != nil {
		return a.fail(err)
	}

	concurrent, workers := a.config.runOptions(a.registry.Plan())
	a.executor.SetConcurrent(concurrent)
	a.executor.SetWorkers(workers)
	a.config.Log.Info("Running tests", "tests", len(methods), "groups", groups, "concurrent", concurrent, "workers", workers)

	if a.config.MarshalEvents {
		err = a.runMarshaled(ctx, methods, groups)
	} else {
		err = a.executor.PrepareAndRunSync(ctx, methods, groups)
	}
	if err != nil {
		metrics.RecordRunFault(a.config.Gate, err)
		return a.fail(err)
	}

	summary, ok := a.executor.LastRun()
	if !ok {
		return a.fail(errors.New("run finished without a summary"))
	}
	a.mu.Lock()
	a.last = &summary
	a.lastErr = nil
	a.mu.Unlock()

	a.report(summary)
	a.config.Log.Info("Test run completed", "runID", summary.RunID, "passed", succeeded(summary), "duration", summary.Duration())
	return nil
}

// runMarshaled runs on a background goroutine while this goroutine delivers
// the events.
func (a *App) runMarshaled(ctx context.Context, methods []*types.MethodDescriptor, groups []string) error {
	h, err := a.executor.BeginRun(ctx, methods, groups, nil, nil)
	if err != nil {
		return err
	}
	drainCtx, cancel := context.WithCancel(context.Background())
	go func() {
		<-h.WaitHandle()
		cancel()
	}()
	_ = a.queue.Run(drainCtx)
	return a.executor.EndRun(h)
}

func (a *App) fail(err error) error {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
	return NewRuntimeError(err)
}

func (a *App) report(summary runner.RunSummary) {
	data, ok := a.collector.Last()
	if !ok || data.RunID != summary.RunID {
		a.config.Log.Warn("No report collected for run", "runID", summary.RunID)
		return
	}
	out, err := a.table.Format(data)
	if err != nil {
		a.config.Log.Warn("Failed to format results table", "err", err)
	} else {
		fmt.Fprint(a.out, out)
	}
	fmt.Fprintln(a.out, describe(summary))

	if path, err := a.summaries.Write(data); err != nil {
		a.config.Log.Warn("Failed to write summary", "err", err)
	} else {
		a.config.Log.Debug("Wrote run summary", "path", path)
	}
	if path, err := a.html.Write(data); err != nil {
		a.config.Log.Warn("Failed to write HTML report", "err", err)
	} else {
		a.config.Log.Debug("Wrote HTML report", "path", path)
	}
}

func (a *App) listTests() error {
	methods, groups, err := a.selection()
	if err != nil {
		return NewRuntimeError(err)
	}
	methods = filter.ByGroups(methods, groups)
	runner.SortMethods(methods)

	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetTitle(fmt.Sprintf("Selected tests (%d)", len(methods)))
	t.AppendHeader(table.Row{"Suite", "Test", "Groups", "Description"})
	for _, m := range methods {
		desc := m.Description
		if m.Skip {
			desc = "[skip] " + desc
		}
		t.AppendRow(table.Row{m.TypeName(), m.Name, fmt.Sprint(m.Groups), desc})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

func succeeded(s runner.RunSummary) bool {
	return s.Failed == 0 && s.Threw == 0 && s.Aborted == 0
}

func describe(s runner.RunSummary) string {
	status := "PASS"
	if !succeeded(s) {
		status = "FAIL"
	}
	msg := fmt.Sprintf("%s run %s: %d passed, %d failed, %d threw, %d aborted, %d skipped in %s",
		status, s.RunID, s.Passed, s.Failed, s.Threw, s.Aborted, s.Skipped, s.Duration().Round(time.Millisecond))
	if s.Cancelled {
		msg += fmt.Sprintf(" (cancelled, %d of %d tests ran)", s.Total(), s.Queued)
	}
	return msg
}
