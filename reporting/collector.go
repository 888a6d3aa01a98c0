package reporting

import (
	"sort"
	"sync"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Collector is a run observer that builds ReportData.
type Collector struct {
	gate string

	mu      sync.Mutex
	current *ReportData
	suites  map[string]*SuiteReport
	last    *ReportData
}

// NewCollector creates a collector labelling its reports with gate.
func NewCollector(gate string) *Collector {
	return &Collector{gate: gate}
}

// Last returns the report of the most recent completed run.
func (c *Collector) Last() (*ReportData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.last != nil
}

func (c *Collector) TestRunStarted(a *types.TestRunEventArgs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &ReportData{RunID: a.RunID, Gate: c.gate, StartTime: a.StartTime}
	c.suites = make(map[string]*SuiteReport)
}

func (c *Collector) TestRunCompleted(a *types.TestRunCompletedEventArgs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.RunID != a.RunID {
		return
	}
	r := c.current
	r.EndTime = a.EndTime
	r.Duration = a.Duration()
	r.Cancelled = a.Cancelled
	r.HasFailures = !a.Succeeded()

	names := make([]string, 0, len(c.suites))
	for name := range c.suites {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := c.suites[name]
		r.Suites = append(r.Suites, s)
		r.Stats.Total += s.Stats.Total
		r.Stats.Passed += s.Stats.Passed
		r.Stats.Failed += s.Stats.Failed
		r.Stats.Errored += s.Stats.Errored
		r.Stats.Aborted += s.Stats.Aborted
		r.Stats.Skipped += s.Stats.Skipped
	}

	c.last = r
	c.current = nil
	c.suites = nil
}

func (c *Collector) TestStarted(*types.TestEventArgs) {}

func (c *Collector) TestCompleted(a *types.TestCompletedEventArgs) {
	c.record(a.RunID, a.Method, TestItem{
		Name:        a.Method.Name,
		Description: a.Description(),
		Status:      statusOf(a.Result),
		Message:     a.Message,
		UserMessage: a.UserMessage,
		Log:         a.Log,
		Error:       a.Err,
		Duration:    a.Duration(),
	})
}

func (c *Collector) TestSkipped(a *types.TestSkippedEventArgs) {
	c.record(a.RunID, a.Method, TestItem{
		Name:        a.Method.Name,
		Description: a.Description(),
		Status:      StatusSkip,
		Message:     a.Message,
		Error:       a.Err,
		SkipReason:  a.Reason,
	})
}

func (c *Collector) record(runID string, m *types.MethodDescriptor, item TestItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.RunID != runID {
		return
	}
	name := m.TypeName()
	s, ok := c.suites[name]
	if !ok {
		s = &SuiteReport{Name: name}
		c.suites[name] = s
	}
	s.Tests = append(s.Tests, item)
	s.Stats.add(item.Status)
	s.Duration += item.Duration
}
