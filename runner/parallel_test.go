package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testassert "github.com/ethereum-optimism/infra/op-testexec/assert"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

func TestDetermineConcurrency(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)
	tests := []struct {
		name      string
		requested int
		items     int
		want      int
	}{
		{name: "explicit", requested: 4, items: 10, want: 4},
		{name: "capped by items", requested: 8, items: 3, want: 3},
		{name: "no items", requested: 8, items: 0, want: 1},
		{name: "auto", requested: 0, items: 1000, want: min(procs, 1000)},
		{name: "auto capped", requested: 0, items: 1, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineConcurrency(tt.requested, tt.items))
		})
	}
}

func concurrentSuites(f *fixture, typesN, perType int) []*types.MethodDescriptor {
	var methods []*types.MethodDescriptor
	for i := 0; i < typesN; i++ {
		s := f.suite(fmt.Sprintf("Suite%02d", i))
		for j := 0; j < perType; j++ {
			j := j
			methods = append(methods, f.test(s, fmt.Sprintf("Test%02d", j), func(any, *types.RunContext) {
				switch j % 4 {
				case 1:
					testassert.Fail("odd one")
				case 2:
					panic(&testError{code: j})
				}
			}))
		}
	}
	return methods
}

func TestConcurrentConservation(t *testing.T) {
	f := newFixture()
	methods := concurrentSuites(f, 5, 20)
	skipped := methods[3]
	skipped.Skip = true

	e, rec := newTestExecutor(t, Config{Concurrent: true, Workers: 4})
	require.NoError(t, e.PrepareAndRunSync(context.Background(), methods, nil))

	require.Len(t, rec.runStarted, 1)
	require.Len(t, rec.runCompleted, 1)
	done := rec.runCompleted[0]
	assert.Equal(t, len(methods), done.Total)
	assert.Equal(t, 1, done.Skipped)
	assert.Equal(t, 50, done.Passed+done.Skipped)
	assert.Equal(t, 25, done.Failed)
	assert.Equal(t, 25, done.Threw)
	assert.Equal(t, 0, done.Aborted)
	assert.Len(t, rec.completed, len(methods)-1)
	assert.Len(t, rec.skipped, 1)

	order := rec.Order()
	assert.Equal(t, "run-started", order[0])
	assert.Equal(t, "run-completed", order[len(order)-1])

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("Suite%02d", i)
		constructed, closed := f.counts(name)
		assert.GreaterOrEqual(t, constructed, 1, name)
		assert.Equal(t, constructed, closed, name)
	}
}

func TestConcurrentInstancesNotShared(t *testing.T) {
	f := newFixture()
	s := f.suite("Shared")
	seen := make(chan any, 64)
	var methods []*types.MethodDescriptor
	for i := 0; i < 64; i++ {
		methods = append(methods, f.test(s, fmt.Sprintf("T%02d", i), func(inst any, _ *types.RunContext) {
			seen <- inst
			runtime.Gosched()
		}))
	}

	e, rec := newTestExecutor(t, Config{Concurrent: true, Workers: 8})
	require.NoError(t, e.PrepareAndRunSync(context.Background(), methods, nil))
	close(seen)

	instances := map[any]struct{}{}
	for inst := range seen {
		instances[inst] = struct{}{}
	}
	constructed, closed := f.counts("Shared")
	assert.Equal(t, len(instances), constructed, "one instance per worker that ran a method")
	assert.LessOrEqual(t, constructed, 8)
	assert.Equal(t, constructed, closed)
	assert.Equal(t, 64, rec.runCompleted[0].Passed)
}

func TestConcurrentFaultAggregates(t *testing.T) {
	boom := &testError{code: 99}
	f := newFixture()
	methods := concurrentSuites(f, 2, 10)

	e, rec := newTestExecutor(t, Config{Concurrent: true, Workers: 3})
	rec.onTestStarted = func(a *types.TestEventArgs) {
		if a.Method.FullName() == "Suite00.Test05" {
			panic(boom)
		}
	}

	err := e.PrepareAndRunSync(context.Background(), methods, nil)
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	require.Same(t, boom, merr.Errors[0])
	require.ErrorIs(t, err, boom)

	assert.Empty(t, rec.runCompleted)
	assert.False(t, e.IsRunning())
	for _, name := range []string{"Suite00", "Suite01"} {
		constructed, closed := f.counts(name)
		assert.Equal(t, constructed, closed, name)
	}
}

func TestConcurrentCancellation(t *testing.T) {
	f := newFixture()
	methods := concurrentSuites(f, 1, 50)

	e, rec := newTestExecutor(t, Config{Concurrent: true, Workers: 2})
	var once atomic.Bool
	rec.onCompleted = func(*types.TestCompletedEventArgs) {
		if once.CompareAndSwap(false, true) {
			e.Cancel()
		}
	}

	require.NoError(t, e.PrepareAndRunSync(context.Background(), methods, nil))
	require.Len(t, rec.runCompleted, 1)
	done := rec.runCompleted[0]
	assert.True(t, done.Cancelled)
	assert.Less(t, done.Total, len(methods))
	assert.Equal(t, len(rec.started), len(rec.completed), "started methods always complete")
}
