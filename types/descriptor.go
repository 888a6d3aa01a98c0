package types

import (
	"fmt"
	"strings"
)

// TypeKind classifies the declaring type of a candidate test method.
type TypeKind int

const (
	KindClass TypeKind = iota
	KindValue
	KindInterface
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindValue:
		return "value"
	case KindInterface:
		return "interface"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParamKind describes a single declared parameter of a method.
type ParamKind int

const (
	ParamRunContext ParamKind = iota
	ParamOther
)

// TypeDescriptor carries the capability requirements of a declaring type.
// It is inert metadata produced by a discovery collaborator.
type TypeDescriptor struct {
	FullName string
	Name     string
	Kind     TypeKind
	Generic  bool
	Abstract bool
	Public   bool

	// NewInstance is the public zero-argument constructor. A nil
	// constructor means the type cannot be instantiated by the engine.
	NewInstance func() (any, error)

	// Methods lists every method declared on the type, tests and actions
	// alike. The action cache scans it for pre/post actions.
	Methods []*MethodDescriptor
}

func (t *TypeDescriptor) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.FullName
}

// HasConstructor reports whether the type exposes a zero-argument constructor.
func (t *TypeDescriptor) HasConstructor() bool {
	return t != nil && t.NewInstance != nil
}

// Invoker runs a method against an instance and reports a tagged outcome.
// Implementations must never return a wrapped error in place of the
// error the method itself produced.
type Invoker func(instance any, rc *RunContext) Outcome

// MethodDescriptor identifies a candidate test or action method.
// Descriptors are immutable once captured.
type MethodDescriptor struct {
	Type *TypeDescriptor
	Name string

	Public      bool
	Static      bool
	Abstract    bool
	Generic     bool
	ReturnsVoid bool
	Params      []ParamKind

	IsTest       bool
	IsPreAction  bool
	IsPostAction bool
	ActionOrder  uint8

	Description string
	Skip        bool
	SkipMessage string
	Groups      []string

	Invoke Invoker
}

// FullName returns "<type full name>.<method name>".
func (m *MethodDescriptor) FullName() string {
	if m == nil {
		return "<nil>"
	}
	if m.Type == nil {
		return m.Name
	}
	return m.Type.FullName + "." + m.Name
}

func (m *MethodDescriptor) String() string {
	return m.FullName()
}

// TakesRunContext reports whether the method declares exactly one
// run-context parameter.
func (m *MethodDescriptor) TakesRunContext() bool {
	return len(m.Params) == 1 && m.Params[0] == ParamRunContext
}

// IsAction reports whether the method is tagged as a pre- or post-test action.
func (m *MethodDescriptor) IsAction() bool {
	return m.IsPreAction || m.IsPostAction
}

// HasGroup reports whether the method carries the given group tag.
// Comparison is case-insensitive.
func (m *MethodDescriptor) HasGroup(group string) bool {
	for _, g := range m.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// TypeName returns the full name of the declaring type, or an empty
// string when the descriptor has none.
func (m *MethodDescriptor) TypeName() string {
	if m == nil || m.Type == nil {
		return ""
	}
	return m.Type.FullName
}
