package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned when a run is started while another is active.
	ErrRunInProgress = errors.New("a test run is already in progress")
	// ErrUnknownHandle is returned by EndRun for a handle this executor did not issue.
	ErrUnknownHandle = errors.New("unknown run handle")
	// ErrHandleEnded is returned by EndRun when the handle was already ended.
	ErrHandleEnded = errors.New("run handle already ended")
	// ErrNoCapturedContext is returned when event marshaling is enabled
	// without a dispatch target.
	ErrNoCapturedContext = errors.New("event marshaling requires a captured dispatch target")
	// ErrNilMethod is returned when the method list contains a nil descriptor.
	ErrNilMethod = errors.New("nil method descriptor")
)

// PanicFault is an engine fault raised by a panic whose value is not an error.
type PanicFault struct {
	Value any
	Stack []byte
}

func (p *PanicFault) Error() string {
	return fmt.Sprintf("panic: %v\n%s", p.Value, p.Stack)
}

// recoveredFault converts a recovered panic into the fault surfaced to the
// caller. A panic carrying an error surfaces that exact error.
func recoveredFault(value any, stack []byte) error {
	if err, ok := value.(error); ok {
		return err
	}
	return &PanicFault{Value: value, Stack: stack}
}
