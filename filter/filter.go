// Package filter selects test methods by group tag or by a boolean expression
// over their metadata.
package filter

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

// NormalizeGroups trims the given tags and drops empty ones.
func NormalizeGroups(groups []string) []string {
	var out []string
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// MatchesGroups reports whether m carries at least one of groups. With no
// groups every method matches; with groups, untagged methods never match.
func MatchesGroups(m *types.MethodDescriptor, groups []string) bool {
	if len(groups) == 0 {
		return true
	}
	for _, g := range groups {
		if m.HasGroup(g) {
			return true
		}
	}
	return false
}

// ByGroups returns a new slice holding the methods that match groups.
func ByGroups(methods []*types.MethodDescriptor, groups []string) []*types.MethodDescriptor {
	groups = NormalizeGroups(groups)
	out := make([]*types.MethodDescriptor, 0, len(methods))
	for _, m := range methods {
		if MatchesGroups(m, groups) {
			out = append(out, m)
		}
	}
	return out
}

// Env is the environment an Expression is evaluated against.
type Env struct {
	Type        string
	Method      string
	Groups      []string
	Description string
	Skip        bool
}

// EnvFor builds the evaluation environment of m.
func EnvFor(m *types.MethodDescriptor) Env {
	return Env{
		Type:        m.TypeName(),
		Method:      m.Name,
		Groups:      m.Groups,
		Description: m.Description,
		Skip:        m.Skip,
	}
}

// Expression is a compiled boolean selection expression, for example
// `Type endsWith "Suite" && "smoke" in Groups`.
type Expression struct {
	src     string
	program *vm.Program
}

// Compile parses and type-checks src. An empty source yields a nil
// Expression that matches everything.
func Compile(src string) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrapf(err, "compiling filter %q", src)
	}
	return &Expression{src: src, program: program}, nil
}

func (x *Expression) String() string {
	if x == nil {
		return ""
	}
	return x.src
}

// Match evaluates the expression for m.
func (x *Expression) Match(m *types.MethodDescriptor) (bool, error) {
	if x == nil {
		return true, nil
	}
	out, err := expr.Run(x.program, EnvFor(m))
	if err != nil {
		return false, errors.Wrapf(err, "evaluating filter for %s", m)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Apply returns a new slice holding the methods the expression matches.
func (x *Expression) Apply(methods []*types.MethodDescriptor) ([]*types.MethodDescriptor, error) {
	out := make([]*types.MethodDescriptor, 0, len(methods))
	for _, m := range methods {
		ok, err := x.Match(m)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}
