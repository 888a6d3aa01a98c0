package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

const (
	RunDirectoryPrefix = "testrun-"
	AllLogsFilename    = "all.log"
	EventsFilename     = "events.jsonl"
	PassedDirName      = "passed"
	FailedDirName      = "failed"
)

// Event is one line of the events.jsonl stream.
type Event struct {
	Time     time.Time `json:"time"`
	Action   string    `json:"action"`
	RunID    string    `json:"runId"`
	Test     string    `json:"test,omitempty"`
	Result   string    `json:"result,omitempty"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	Elapsed  float64   `json:"elapsed,omitempty"`
	Total    int       `json:"total,omitempty"`
	Passed   int       `json:"passed,omitempty"`
	Failed   int       `json:"failed,omitempty"`
	Threw    int       `json:"threw,omitempty"`
	Aborted  int       `json:"aborted,omitempty"`
	Skipped  int       `json:"skipped,omitempty"`
	Canceled bool      `json:"cancelled,omitempty"`
}

// FileLogger is a run observer writing one directory per run:
//
//	testrun-<runID>/all.log        one line per test outcome
//	testrun-<runID>/events.jsonl   every event as JSON
//	testrun-<runID>/passed/*.log   captured test log of passing tests
//	testrun-<runID>/failed/*.log   captured test log and error of other tests
//
// Write failures never interrupt the run; they are logged and kept for Err.
type FileLogger struct {
	baseDir string
	log     log.Logger
	now     func() time.Time

	mu      sync.Mutex
	runID   string
	runDir  string
	writers map[string]*AsyncFile
	errs    *multierror.Error
}

// NewFileLogger creates a file logger rooted at baseDir.
func NewFileLogger(baseDir string, logger log.Logger) (*FileLogger, error) {
	if baseDir == "" {
		return nil, errors.New("baseDir cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", baseDir)
	}
	return &FileLogger{
		baseDir: baseDir,
		log:     logger,
		now:     time.Now,
		writers: make(map[string]*AsyncFile),
	}, nil
}

// DirectoryForRun returns the directory used for runID.
func (l *FileLogger) DirectoryForRun(runID string) string {
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID)
}

// Err returns the write errors collected so far, including failures of
// files that are still open.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := l.errs
	if result != nil {
		result = multierror.Append(&multierror.Error{}, result.Errors...)
	}
	for _, w := range l.writers {
		if err := w.Err(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (l *FileLogger) TestRunStarted(a *types.TestRunEventArgs) {
	l.mu.Lock()
	l.closeWritersLocked()
	l.runID = a.RunID
	l.runDir = l.DirectoryForRun(a.RunID)
	for _, dir := range []string{l.runDir, filepath.Join(l.runDir, PassedDirName), filepath.Join(l.runDir, FailedDirName)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			l.recordLocked(errors.Wrapf(err, "failed to create directory %s", dir))
		}
	}
	l.mu.Unlock()

	l.event(Event{Action: "start", RunID: a.RunID, Total: a.Total})
}

func (l *FileLogger) TestRunCompleted(a *types.TestRunCompletedEventArgs) {
	l.event(Event{
		Action:   "end",
		RunID:    a.RunID,
		Elapsed:  a.Duration().Seconds(),
		Total:    a.Total,
		Passed:   a.Passed,
		Failed:   a.Failed,
		Threw:    a.Threw,
		Aborted:  a.Aborted,
		Skipped:  a.Skipped,
		Canceled: a.Cancelled,
	})
	l.append(AllLogsFilename, a.String()+"\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeWritersLocked()
}

func (l *FileLogger) TestStarted(a *types.TestEventArgs) {
	l.event(Event{Action: "run", RunID: a.RunID, Test: a.Method.FullName()})
}

func (l *FileLogger) TestCompleted(a *types.TestCompletedEventArgs) {
	name := a.Method.FullName()
	ev := Event{
		Action:  string(a.Result),
		RunID:   a.RunID,
		Test:    name,
		Result:  string(a.Result),
		Message: a.Message,
		Elapsed: a.Duration().Seconds(),
	}
	if a.Err != nil {
		ev.Error = a.Err.Error()
	}
	l.event(ev)
	l.append(AllLogsFilename, fmt.Sprintf("%-9s %s (%s) %s\n", strings.ToUpper(string(a.Result)), name, a.Duration(), a.Message))

	var b strings.Builder
	fmt.Fprintf(&b, "test:     %s\nresult:   %s\nduration: %s\n", name, a.Result, a.Duration())
	if a.Message != "" {
		fmt.Fprintf(&b, "message:  %s\n", a.Message)
	}
	if a.UserMessage != "" {
		fmt.Fprintf(&b, "user:     %s\n", a.UserMessage)
	}
	if a.Err != nil {
		fmt.Fprintf(&b, "error:    %s: %v\n", types.QualifiedTypeName(a.Err), a.Err)
	}
	if a.Log != "" {
		b.WriteString("\n")
		b.WriteString(stripansi.Strip(a.Log))
		b.WriteString("\n")
	}
	l.writeFile(TestLogPath(name, a.Result == types.TestResultPassed), b.String())
}

func (l *FileLogger) TestSkipped(a *types.TestSkippedEventArgs) {
	name := a.Method.FullName()
	ev := Event{Action: "skip", RunID: a.RunID, Test: name, Result: string(a.Reason), Message: a.Message}
	if a.Err != nil {
		ev.Error = a.Err.Error()
	}
	l.event(ev)
	l.append(AllLogsFilename, fmt.Sprintf("%-9s %s [%s] %s\n", "SKIPPED", name, a.Reason, a.Message))
}

func (l *FileLogger) event(ev Event) {
	ev.Time = l.now()
	data, err := json.Marshal(ev)
	if err != nil {
		l.record(errors.Wrap(err, "failed to encode event"))
		return
	}
	l.append(EventsFilename, string(data)+"\n")
}

func (l *FileLogger) append(name, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.runDir == "" {
		return
	}
	path := filepath.Join(l.runDir, name)
	w, ok := l.writers[path]
	if !ok {
		var err error
		if w, err = NewAsyncFile(path); err != nil {
			l.recordLocked(err)
			return
		}
		l.writers[path] = w
	}
	if err := w.Write([]byte(content)); err != nil {
		l.recordLocked(errors.Wrapf(err, "failed to write %s", path))
	}
}

func (l *FileLogger) writeFile(name, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.runDir == "" {
		return
	}
	path := filepath.Join(l.runDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		l.recordLocked(errors.Wrapf(err, "failed to write %s", path))
	}
}

func (l *FileLogger) record(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked(err)
}

func (l *FileLogger) recordLocked(err error) {
	l.log.Warn("Failed to write test log", "runID", l.runID, "err", err)
	l.errs = multierror.Append(l.errs, err)
}

func (l *FileLogger) closeWritersLocked() {
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			l.recordLocked(err)
		}
	}
	l.writers = make(map[string]*AsyncFile)
}

// Close flushes any open files.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeWritersLocked()
	return l.errs.ErrorOrNil()
}

// TestLogPath returns the path of a test's log file relative to its run
// directory.
func TestLogPath(fullName string, passed bool) string {
	dir := FailedDirName
	if passed {
		dir = PassedDirName
	}
	return filepath.Join(dir, safeFilename(fullName)+".log")
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

func safeFilename(s string) string {
	return filenameReplacer.Replace(s)
}
