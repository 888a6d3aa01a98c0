// Package assert provides the assertion and abort capability used inside
// test bodies. Failed checks panic with a *Failure, aborts with an *Abort;
// Recover turns either, or any other panic, into a tagged types.Outcome.
package assert

import (
	"errors"
	"fmt"

	testifyassert "github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Failure is raised when an assertion does not hold.
type Failure struct {
	Message     string
	UserMessage string
}

func (f *Failure) Error() string {
	if f.UserMessage == "" {
		return "assertion failed: " + f.Message
	}
	return fmt.Sprintf("assertion failed: %s: %s", f.Message, f.UserMessage)
}

// Abort is raised when a test ends itself early.
type Abort struct {
	UserMessage string
}

func (a *Abort) Error() string {
	return "test aborted: " + a.UserMessage
}

// Config configures an Asserter.
type Config struct {
	// OnFailure is called with every failure before it is raised.
	OnFailure func(*Failure)
}

// Asserter raises structured failures. It holds no process-wide state.
type Asserter struct {
	cfg Config
}

// New returns an Asserter using cfg.
func New(cfg Config) *Asserter {
	return &Asserter{cfg: cfg}
}

var std = New(Config{})

func userMessage(msgAndArgs []any) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprint(msgAndArgs[0])
	default:
		if format, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(format, msgAndArgs[1:]...)
		}
		return fmt.Sprint(msgAndArgs...)
	}
}

func (a *Asserter) fail(msg string, msgAndArgs []any) {
	f := &Failure{Message: msg, UserMessage: userMessage(msgAndArgs)}
	if a.cfg.OnFailure != nil {
		a.cfg.OnFailure(f)
	}
	panic(f)
}

// Fail raises a failure unconditionally.
func (a *Asserter) Fail(msg string, msgAndArgs ...any) {
	a.fail(msg, msgAndArgs)
}

// True raises a failure unless cond holds.
func (a *Asserter) True(cond bool, msgAndArgs ...any) {
	if !cond {
		a.fail("expected condition to be true", msgAndArgs)
	}
}

// False raises a failure if cond holds.
func (a *Asserter) False(cond bool, msgAndArgs ...any) {
	if cond {
		a.fail("expected condition to be false", msgAndArgs)
	}
}

// Equal raises a failure unless expected and actual are equal.
func (a *Asserter) Equal(expected, actual any, msgAndArgs ...any) {
	if !testifyassert.ObjectsAreEqual(expected, actual) {
		a.fail(fmt.Sprintf("expected: %#v, actual: %#v", expected, actual), msgAndArgs)
	}
}

// NotEqual raises a failure if expected and actual are equal.
func (a *Asserter) NotEqual(expected, actual any, msgAndArgs ...any) {
	if testifyassert.ObjectsAreEqual(expected, actual) {
		a.fail(fmt.Sprintf("expected values to differ: %#v", actual), msgAndArgs)
	}
}

// Nil raises a failure unless v is nil.
func (a *Asserter) Nil(v any, msgAndArgs ...any) {
	if !isNil(v) {
		a.fail(fmt.Sprintf("expected nil, got: %#v", v), msgAndArgs)
	}
}

// NotNil raises a failure if v is nil.
func (a *Asserter) NotNil(v any, msgAndArgs ...any) {
	if isNil(v) {
		a.fail("expected value not to be nil", msgAndArgs)
	}
}

// NoError raises a failure if err is non-nil.
func (a *Asserter) NoError(err error, msgAndArgs ...any) {
	if err != nil {
		a.fail(fmt.Sprintf("unexpected error: %v", err), msgAndArgs)
	}
}

// Abort ends the current test with an aborted result.
func (a *Asserter) Abort(msgAndArgs ...any) {
	panic(&Abort{UserMessage: userMessage(msgAndArgs)})
}

// Fail raises a failure using the default asserter.
func Fail(msg string, msgAndArgs ...any) { std.Fail(msg, msgAndArgs...) }

// True checks cond using the default asserter.
func True(cond bool, msgAndArgs ...any) { std.True(cond, msgAndArgs...) }

// False checks !cond using the default asserter.
func False(cond bool, msgAndArgs ...any) { std.False(cond, msgAndArgs...) }

// Equal compares using the default asserter.
func Equal(expected, actual any, msgAndArgs ...any) { std.Equal(expected, actual, msgAndArgs...) }

// NotEqual compares using the default asserter.
func NotEqual(expected, actual any, msgAndArgs ...any) { std.NotEqual(expected, actual, msgAndArgs...) }

// Nil checks v using the default asserter.
func Nil(v any, msgAndArgs ...any) { std.Nil(v, msgAndArgs...) }

// NotNil checks v using the default asserter.
func NotNil(v any, msgAndArgs ...any) { std.NotNil(v, msgAndArgs...) }

// NoError checks err using the default asserter.
func NoError(err error, msgAndArgs ...any) { std.NoError(err, msgAndArgs...) }

// AbortTest aborts the current test using the default asserter.
func AbortTest(msgAndArgs ...any) { std.Abort(msgAndArgs...) }

// Recover classifies a recovered panic value. A nil value is a success.
func Recover(r any) types.Outcome {
	if r == nil {
		return types.OK()
	}
	err, ok := r.(error)
	if !ok {
		return types.Threw(&types.PanicError{Value: r})
	}
	return Classify(err)
}

// Classify maps an error to an outcome. Failures and aborts keep their own
// messages; every other error is an unexpected fault and is kept as is.
func Classify(err error) types.Outcome {
	if err == nil {
		return types.OK()
	}
	var f *Failure
	if errors.As(err, &f) {
		return types.AssertFailed(f.Message, f.UserMessage, err)
	}
	var a *Abort
	if errors.As(err, &a) {
		return types.Aborted(a.UserMessage, err)
	}
	return types.Threw(err)
}
