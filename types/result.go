package types

import (
	"fmt"
	"reflect"
)

// TestResult represents the classified outcome of a completed test
type TestResult string

const (
	TestResultPassed    TestResult = "passed"
	TestResultFailed    TestResult = "failed"
	TestResultException TestResult = "exception"
	TestResultAborted   TestResult = "aborted"
)

// IsValid reports whether r is one of the defined results.
func (r TestResult) IsValid() bool {
	switch r {
	case TestResultPassed, TestResultFailed, TestResultException, TestResultAborted:
		return true
	}
	return false
}

// SkipReason explains why a candidate method was not executed
type SkipReason string

const (
	SkipTestAttributeDefined   SkipReason = "skip-marker"
	ConstructorThrewException  SkipReason = "constructor-failed"
	TypeNotSupported           SkipReason = "type-not-supported"
	MethodNotSupported         SkipReason = "method-not-supported"
	TestActionAttributeDefined SkipReason = "test-action"
)

// IsValid reports whether r is one of the defined skip reasons.
func (r SkipReason) IsValid() bool {
	switch r {
	case SkipTestAttributeDefined, ConstructorThrewException, TypeNotSupported,
		MethodNotSupported, TestActionAttributeDefined:
		return true
	}
	return false
}

// OutcomeKind tags the result of invoking a test body or action.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeAssertFailed
	OutcomeAborted
	OutcomeThrew
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeAssertFailed:
		return "assert-failed"
	case OutcomeAborted:
		return "aborted"
	case OutcomeThrew:
		return "threw"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the tagged result of one invocation.
// Err always holds the original fault object, never a wrapper.
type Outcome struct {
	Kind        OutcomeKind
	Message     string
	UserMessage string
	Err         error
}

// OK returns the successful outcome.
func OK() Outcome { return Outcome{Kind: OutcomeOK} }

// AssertFailed returns an assertion-failure outcome.
func AssertFailed(msg, user string, err error) Outcome {
	return Outcome{Kind: OutcomeAssertFailed, Message: msg, UserMessage: user, Err: err}
}

// Aborted returns a test-abort outcome carrying the user message.
func Aborted(user string, err error) Outcome {
	return Outcome{Kind: OutcomeAborted, Message: user, UserMessage: user, Err: err}
}

// Threw returns an outcome for an unexpected fault.
func Threw(err error) Outcome {
	return Outcome{Kind: OutcomeThrew, Err: err}
}

// Failed reports whether the outcome is anything other than OK.
func (o Outcome) Failed() bool { return o.Kind != OutcomeOK }

// PanicError carries a recovered panic value that was not itself an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// QualifiedTypeName returns the package-qualified name of err's dynamic type,
// e.g. "*github.com/org/pkg.MyError".
func QualifiedTypeName(err error) string {
	if err == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(err)
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	if t.Name() == "" {
		return prefix + t.String()
	}
	if t.PkgPath() == "" {
		return prefix + t.Name()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}
