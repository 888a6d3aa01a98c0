package runner

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

var errNilInstance = errors.New("constructor returned a nil instance")

// SkipReporter reports a skipped method. A returned error is an engine fault.
type SkipReporter func(m *types.MethodDescriptor, reason types.SkipReason, msg string, err error) error

// InstanceLifecycle owns the current suite instance of one execution stream.
// It is not safe for concurrent use; every worker holds its own.
type InstanceLifecycle struct {
	log    log.Logger
	onSkip SkipReporter

	typ      *types.TypeDescriptor
	instance any
}

// NewInstanceLifecycle returns an empty instance slot.
func NewInstanceLifecycle(logger log.Logger, onSkip SkipReporter) *InstanceLifecycle {
	return &InstanceLifecycle{log: logger, onSkip: onSkip}
}

// EnsureInstance returns the instance that m must run against, constructing
// it when the slot holds no instance of m's declaring type. ok is false when
// the type failed validation or its constructor failed; the skip has been
// reported and the slot is left as it was.
func (l *InstanceLifecycle) EnsureInstance(m *types.MethodDescriptor) (instance any, ok bool, err error) {
	if l.typ != nil && m.Type != nil && l.typ.FullName == m.Type.FullName {
		return l.instance, true, nil
	}
	if v := ValidateType(m.Type); !v.OK() {
		return nil, false, l.onSkip(m, v.Reason, v.Message, nil)
	}
	inst, cerr := construct(m.Type)
	if cerr != nil {
		msg := fmt.Sprintf(msgConstructorThrew, m.Type.FullName)
		return nil, false, l.onSkip(m, types.ConstructorThrewException, msg, cerr)
	}
	l.Dispose()
	l.typ, l.instance = m.Type, inst
	l.log.Debug("Constructed suite instance", "type", m.Type.FullName)
	return inst, true, nil
}

// Current returns the held instance, or nil.
func (l *InstanceLifecycle) Current() any {
	return l.instance
}

// Dispose closes the held instance if it implements io.Closer and empties
// the slot. Close errors are logged and otherwise ignored.
func (l *InstanceLifecycle) Dispose() {
	inst, typ := l.instance, l.typ
	l.instance, l.typ = nil, nil
	if c, ok := inst.(io.Closer); ok {
		if err := c.Close(); err != nil {
			l.log.Warn("Failed to dispose suite instance", "type", typ, "err", err)
		}
	}
}

func construct(t *types.TypeDescriptor) (inst any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = &types.PanicError{Value: r}
			}
		}
	}()
	inst, err = t.NewInstance()
	if err == nil && inst == nil {
		err = errNilInstance
	}
	return inst, err
}
