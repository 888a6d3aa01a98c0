package types

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type logEntry struct {
	text        string
	failureOnly bool
}

// RunContext is handed to test bodies and actions that declare a run-context
// parameter. It is created per method and never shared between workers.
type RunContext struct {
	ctx    context.Context
	runID  string
	method *MethodDescriptor

	mu      sync.Mutex
	entries []logEntry
}

// NewRunContext creates a run context for one method execution.
func NewRunContext(ctx context.Context, runID string, method *MethodDescriptor) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RunContext{ctx: ctx, runID: runID, method: method}
}

// Context returns the run's context. It is done when the run is cancelled
// through its parent context.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// RunID returns the identifier of the enclosing run.
func (rc *RunContext) RunID() string { return rc.runID }

// Method returns the descriptor of the method being executed.
func (rc *RunContext) Method() *MethodDescriptor { return rc.method }

// Log appends an entry that is always part of the completion log.
func (rc *RunContext) Log(msg string) {
	rc.append(msg, false)
}

// Logf is the formatted variant of Log.
func (rc *RunContext) Logf(format string, args ...any) {
	rc.append(fmt.Sprintf(format, args...), false)
}

// LogFailure appends an entry that only appears when the test does not pass.
func (rc *RunContext) LogFailure(msg string) {
	rc.append(msg, true)
}

func (rc *RunContext) append(msg string, failureOnly bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries = append(rc.entries, logEntry{text: msg, failureOnly: failureOnly})
}

// Text joins the accumulated entries, one per line. Failure-only entries are
// included only when includeFailures is set.
func (rc *RunContext) Text(includeFailures bool) string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	lines := make([]string, 0, len(rc.entries))
	for _, e := range rc.entries {
		if e.failureOnly && !includeFailures {
			continue
		}
		lines = append(lines, e.text)
	}
	return strings.Join(lines, "\n")
}
