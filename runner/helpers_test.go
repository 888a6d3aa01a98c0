package runner

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// fixture records construction, disposal and body execution across suites.
type fixture struct {
	mu          sync.Mutex
	trail       []string
	constructed map[string]int
	closed      map[string]int
}

func newFixture() *fixture {
	return &fixture{constructed: map[string]int{}, closed: map[string]int{}}
}

func (f *fixture) note(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trail = append(f.trail, s)
}

func (f *fixture) Trail() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trail...)
}

func (f *fixture) counts(name string) (constructed, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.constructed[name], f.closed[name]
}

type suiteInstance struct {
	typ string
	f   *fixture
}

func (s *suiteInstance) Close() error {
	s.f.mu.Lock()
	s.f.closed[s.typ]++
	s.f.mu.Unlock()
	s.f.note("close:" + s.typ)
	return nil
}

func (f *fixture) suite(name string) *types.TypeDescriptor {
	return &types.TypeDescriptor{
		FullName: name,
		Name:     name,
		Kind:     types.KindClass,
		Public:   true,
		NewInstance: func() (any, error) {
			f.mu.Lock()
			f.constructed[name]++
			f.mu.Unlock()
			return &suiteInstance{typ: name, f: f}, nil
		},
	}
}

type body func(inst any, rc *types.RunContext)

func (f *fixture) test(t *types.TypeDescriptor, name string, fn body) *types.MethodDescriptor {
	m := &types.MethodDescriptor{
		Type:        t,
		Name:        name,
		Public:      true,
		ReturnsVoid: true,
		IsTest:      true,
	}
	m.Invoke = func(inst any, rc *types.RunContext) types.Outcome {
		f.note("run:" + m.FullName())
		if fn != nil {
			fn(inst, rc)
		}
		return types.OK()
	}
	t.Methods = append(t.Methods, m)
	return m
}

func (f *fixture) action(t *types.TypeDescriptor, name string, pre bool, order uint8, fn body) *types.MethodDescriptor {
	m := &types.MethodDescriptor{
		Type:         t,
		Name:         name,
		Public:       true,
		ReturnsVoid:  true,
		IsPreAction:  pre,
		IsPostAction: !pre,
		ActionOrder:  order,
	}
	m.Invoke = func(inst any, rc *types.RunContext) types.Outcome {
		f.note("action:" + m.FullName())
		if fn != nil {
			fn(inst, rc)
		}
		return types.OK()
	}
	t.Methods = append(t.Methods, m)
	return m
}

// recorder is an Observer keeping every event.
type recorder struct {
	mu            sync.Mutex
	order         []string
	runStarted    []*types.TestRunEventArgs
	runCompleted  []*types.TestRunCompletedEventArgs
	started       []*types.TestEventArgs
	completed     []*types.TestCompletedEventArgs
	skipped       []*types.TestSkippedEventArgs
	onCompleted   func(*types.TestCompletedEventArgs)
	onTestStarted func(*types.TestEventArgs)
}

func (r *recorder) TestRunStarted(a *types.TestRunEventArgs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, "run-started")
	r.runStarted = append(r.runStarted, a)
}

func (r *recorder) TestRunCompleted(a *types.TestRunCompletedEventArgs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, "run-completed")
	r.runCompleted = append(r.runCompleted, a)
}

func (r *recorder) TestStarted(a *types.TestEventArgs) {
	r.mu.Lock()
	r.order = append(r.order, "started:"+a.Method.FullName())
	r.started = append(r.started, a)
	hook := r.onTestStarted
	r.mu.Unlock()
	if hook != nil {
		hook(a)
	}
}

func (r *recorder) TestCompleted(a *types.TestCompletedEventArgs) {
	r.mu.Lock()
	r.order = append(r.order, "completed:"+a.Method.FullName())
	r.completed = append(r.completed, a)
	hook := r.onCompleted
	r.mu.Unlock()
	if hook != nil {
		hook(a)
	}
}

func (r *recorder) TestSkipped(a *types.TestSkippedEventArgs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, "skipped:"+a.Method.FullName())
	r.skipped = append(r.skipped, a)
}

func (r *recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *recorder) completedFor(name string) *types.TestCompletedEventArgs {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.completed {
		if c.Method.FullName() == name {
			return c
		}
	}
	return nil
}

func (r *recorder) skippedFor(name string) *types.TestSkippedEventArgs {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.skipped {
		if s.Method.FullName() == name {
			return s
		}
	}
	return nil
}

func newTestExecutor(t *testing.T, cfg Config) (*Executor, *recorder) {
	t.Helper()
	cfg.Log = log.NewLogger(log.DiscardHandler())
	e, err := NewExecutor(cfg)
	require.NoError(t, err)
	rec := &recorder{}
	e.Subscribe(rec)
	return e, rec
}

type testError struct{ code int }

func (e *testError) Error() string { return fmt.Sprintf("test error %d", e.code) }
