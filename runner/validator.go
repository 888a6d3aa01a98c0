package runner

import (
	"fmt"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// Verdict is the result of validating a method or its declaring type.
// The zero value means the candidate is runnable.
type Verdict struct {
	Reason  types.SkipReason
	Message string
}

// OK reports whether validation passed.
func (v Verdict) OK() bool {
	return v.Reason == ""
}

func skip(reason types.SkipReason, msg string) Verdict {
	return Verdict{Reason: reason, Message: msg}
}

// ValidateType checks the declaring type of a test method. The first failing
// check determines the verdict.
func ValidateType(t *types.TypeDescriptor) Verdict {
	switch {
	case t == nil:
		return skip(types.TypeNotSupported, msgTypeUnknown)
	case t.Kind != types.KindClass:
		return skip(types.TypeNotSupported, fmt.Sprintf(msgTypeNotClass, t.FullName))
	case t.Generic:
		return skip(types.TypeNotSupported, fmt.Sprintf(msgTypeGeneric, t.FullName))
	case t.Abstract:
		return skip(types.TypeNotSupported, fmt.Sprintf(msgTypeAbstract, t.FullName))
	case !t.Public:
		return skip(types.TypeNotSupported, fmt.Sprintf(msgTypeNotPublic, t.FullName))
	case !t.HasConstructor():
		return skip(types.TypeNotSupported, fmt.Sprintf(msgTypeNoConstructor, t.FullName))
	}
	return Verdict{}
}

// ValidateMethod checks the method itself, independent of its type.
func ValidateMethod(m *types.MethodDescriptor) Verdict {
	switch {
	case !m.Public:
		return skip(types.MethodNotSupported, msgMethodNotPublic)
	case m.Static:
		return skip(types.MethodNotSupported, msgMethodStatic)
	case m.Abstract:
		return skip(types.MethodNotSupported, msgMethodAbstract)
	case m.Generic:
		return skip(types.MethodNotSupported, msgMethodGeneric)
	case !m.ReturnsVoid:
		return skip(types.MethodNotSupported, msgMethodNotVoid)
	case len(m.Params) > 0 && !m.TakesRunContext():
		return skip(types.MethodNotSupported, msgMethodParams)
	case m.IsAction():
		return skip(types.TestActionAttributeDefined, msgMethodIsAction)
	}
	return Verdict{}
}

// Validate runs the type checks followed by the method checks.
func Validate(m *types.MethodDescriptor) Verdict {
	if v := ValidateType(m.Type); !v.OK() {
		return v
	}
	return ValidateMethod(m)
}
