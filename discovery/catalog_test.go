package discovery

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testassert "github.com/ethereum-optimism/infra/op-testexec/assert"
	"github.com/ethereum-optimism/infra/op-testexec/runner"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

type CalcSuite struct {
	calls []string
}

func (s *CalcSuite) Tags() map[string]Tags {
	return map[string]Tags{
		"TestAdd": {Description: "adds numbers", Groups: []string{"smoke"}},
		"Verify":  {Test: true},
		"Reset":   {PostAction: true, Order: 2},
	}
}

func (s *CalcSuite) SetUp(rc *types.RunContext) { rc.Log("set up") }
func (s *CalcSuite) TearDown()                  {}
func (s *CalcSuite) Reset()                     {}
func (s *CalcSuite) Helper()                    {}
func (s *CalcSuite) Testable()                  {}
func (s *CalcSuite) Verify()                    {}
func (s *CalcSuite) TestAdd()                   { testassert.Equal(2, 1+1) }
func (s *CalcSuite) TestFails(rc *types.RunContext) {
	rc.LogFailure("about to fail")
	testassert.Equal(3, 1+1, "math is hard")
}
func (s *CalcSuite) TestWithArgs(int)   {}
func (s *CalcSuite) TestReturns() error { return nil }
func (s *CalcSuite) TestPanics()        { panic(errBoom) }

var errBoom = errors.New("boom")

type hiddenSuite struct{}

func (s *hiddenSuite) TestX() {}

type Counter int

func (c *Counter) TestCount() {}

type Contract interface {
	TestContract()
}

type PanickyTags struct{ inner *CalcSuite }

func (p *PanickyTags) Tags() map[string]Tags {
	return map[string]Tags{"TestA": {Description: p.inner.calls[0]}}
}

func (p *PanickyTags) TestA() {}

func newCatalog() *Catalog {
	return NewCatalog(log.NewLogger(log.DiscardHandler()))
}

func methodNames(ms []*types.MethodDescriptor) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

func TestRegisterDescribesSuite(t *testing.T) {
	c := newCatalog()
	td, err := Register(c, func() *CalcSuite { return &CalcSuite{} })
	require.NoError(t, err)

	assert.Equal(t, "github.com/ethereum-optimism/infra/op-testexec/discovery.CalcSuite", td.FullName)
	assert.Equal(t, types.KindClass, td.Kind)
	assert.True(t, td.Public)
	assert.True(t, td.HasConstructor())

	assert.Equal(t, []string{"TestAdd", "TestFails", "TestPanics", "TestReturns", "TestWithArgs", "Verify"}, methodNames(Tests(td)))
	assert.Equal(t, methodNames(Tests(td)), methodNames(c.Methods()))

	byName := map[string]*types.MethodDescriptor{}
	for _, m := range td.Methods {
		byName[m.Name] = m
	}
	add := byName["TestAdd"]
	assert.Equal(t, "adds numbers", add.Description)
	assert.Equal(t, []string{"smoke"}, add.Groups)
	assert.True(t, add.ReturnsVoid)
	assert.Empty(t, add.Params)

	assert.True(t, byName["TestFails"].TakesRunContext())
	assert.Equal(t, []types.ParamKind{types.ParamOther}, byName["TestWithArgs"].Params)
	assert.False(t, byName["TestReturns"].ReturnsVoid)
	assert.True(t, byName["SetUp"].IsPreAction)
	assert.True(t, byName["TearDown"].IsPostAction)
	assert.True(t, byName["Reset"].IsPostAction)
	assert.Equal(t, uint8(2), byName["Reset"].ActionOrder)
	assert.NotContains(t, byName, "Helper")
	assert.NotContains(t, byName, "Testable")
}

func TestRegisteredSuiteRuns(t *testing.T) {
	c := newCatalog()
	_, err := Register(c, func() *CalcSuite { return &CalcSuite{} })
	require.NoError(t, err)

	e, err := runner.NewExecutor(runner.Config{Log: log.NewLogger(log.DiscardHandler())})
	require.NoError(t, err)

	results := map[string]*types.TestCompletedEventArgs{}
	skips := map[string]*types.TestSkippedEventArgs{}
	e.Subscribe(runner.ObserverFuncs{
		OnCompleted: func(a *types.TestCompletedEventArgs) { results[a.Method.Name] = a },
		OnSkipped:   func(a *types.TestSkippedEventArgs) { skips[a.Method.Name] = a },
	})
	require.NoError(t, e.PrepareAndRunSync(context.Background(), c.Methods(), nil))

	assert.Equal(t, types.TestResultPassed, results["TestAdd"].Result)
	assert.Equal(t, types.TestResultPassed, results["Verify"].Result)

	fail := results["TestFails"]
	assert.Equal(t, types.TestResultFailed, fail.Result)
	assert.Equal(t, "math is hard", fail.UserMessage)
	assert.Equal(t, "set up\nabout to fail", fail.Log)

	panics := results["TestPanics"]
	assert.Equal(t, types.TestResultException, panics.Result)
	assert.Same(t, errBoom, panics.Err)

	assert.Equal(t, types.MethodNotSupported, skips["TestReturns"].Reason)
	assert.Equal(t, types.MethodNotSupported, skips["TestWithArgs"].Reason)
}

func TestRegisterOptions(t *testing.T) {
	c := newCatalog()

	td, err := Register(c, func() *CalcSuite { return &CalcSuite{} },
		WithName("calc"),
		WithTags("TestFails", Tags{Skip: true, SkipMessage: "known issue"}),
		WithTags("TestAdd", Tags{Groups: []string{"slow"}}),
		Abstract(),
		Hidden())
	require.NoError(t, err)
	assert.Equal(t, "calc", td.FullName)
	assert.True(t, td.Abstract)
	assert.False(t, td.Public)

	got, ok := c.Lookup("calc")
	require.True(t, ok)
	require.Same(t, td, got)

	for _, m := range td.Methods {
		switch m.Name {
		case "TestFails":
			assert.True(t, m.Skip)
			assert.Equal(t, "known issue", m.SkipMessage)
		case "TestAdd":
			assert.Equal(t, []string{"slow"}, m.Groups)
			assert.Equal(t, "adds numbers", m.Description)
		}
	}

	_, err = Register(c, func() *CalcSuite { return &CalcSuite{} }, WithName("calc"))
	require.ErrorIs(t, err, ErrDuplicateSuite)
	assert.Len(t, c.Types(), 1)
}

func TestRegisterTypeShapes(t *testing.T) {
	c := newCatalog()

	hidden, err := Register(c, func() *hiddenSuite { return &hiddenSuite{} })
	require.NoError(t, err)
	assert.False(t, hidden.Public)
	assert.Equal(t, types.TypeNotSupported, runner.Validate(Tests(hidden)[0]).Reason)

	counter, err := Register[Counter](c, nil)
	require.NoError(t, err)
	assert.Equal(t, types.KindValue, counter.Kind)
	assert.False(t, counter.HasConstructor())

	contract, err := c.RegisterType(reflect.TypeFor[Contract](), nil)
	require.NoError(t, err)
	assert.Equal(t, types.KindInterface, contract.Kind)
	require.Len(t, Tests(contract), 1)
	assert.Nil(t, Tests(contract)[0].Invoke)

	_, err = c.RegisterType(nil, nil)
	require.Error(t, err)

	_, err = Register(c, func() *PanickyTags { return &PanickyTags{} })
	require.Error(t, err)
	_, ok := c.Lookup("github.com/ethereum-optimism/infra/op-testexec/discovery.PanickyTags")
	assert.False(t, ok)
}

func TestFactoryResults(t *testing.T) {
	c := newCatalog()

	nilSuite, err := Register(c, func() *CalcSuite { return nil }, WithName("nil"))
	require.NoError(t, err)
	_, err = nilSuite.NewInstance()
	require.ErrorIs(t, err, ErrNilSuite)

	failing, err := RegisterFactory(c, func() (*CalcSuite, error) { return nil, errBoom }, WithName("failing"))
	require.NoError(t, err)
	_, err = failing.NewInstance()
	require.Same(t, errBoom, err)

	ok, err := RegisterFactory(c, func() (*CalcSuite, error) { return &CalcSuite{}, nil }, WithName("ok"))
	require.NoError(t, err)
	inst, err := ok.NewInstance()
	require.NoError(t, err)
	require.IsType(t, &CalcSuite{}, inst)
}

func TestIsTestName(t *testing.T) {
	for name, want := range map[string]bool{
		"Test":      true,
		"TestX":     true,
		"Test_x":    true,
		"Test1":     true,
		"Testable":  false,
		"Tes":       false,
		"SomeTest":  false,
		"TestÜber":  true,
		"Testüber":  false,
	} {
		assert.Equal(t, want, isTestName(name), name)
	}
}
