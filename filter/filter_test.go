package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testexec/types"
)

func method(typ, name string, groups ...string) *types.MethodDescriptor {
	return &types.MethodDescriptor{Type: &types.TypeDescriptor{FullName: typ}, Name: name, Groups: groups}
}

func names(ms []*types.MethodDescriptor) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.FullName())
	}
	return out
}

func TestByGroups(t *testing.T) {
	methods := []*types.MethodDescriptor{
		method("A", "Smoke", "smoke"),
		method("A", "Slow", "slow", "nightly"),
		method("B", "Untagged"),
	}

	tests := []struct {
		name   string
		groups []string
		want   []string
	}{
		{name: "no filter runs everything", groups: nil, want: []string{"A.Smoke", "A.Slow", "B.Untagged"}},
		{name: "blank entries are ignored", groups: []string{" ", ""}, want: []string{"A.Smoke", "A.Slow", "B.Untagged"}},
		{name: "single group", groups: []string{"smoke"}, want: []string{"A.Smoke"}},
		{name: "case insensitive", groups: []string{"NIGHTLY"}, want: []string{"A.Slow"}},
		{name: "untagged excluded", groups: []string{"smoke", "slow"}, want: []string{"A.Smoke", "A.Slow"}},
		{name: "no match", groups: []string{"other"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(ByGroups(methods, tt.groups)))
		})
	}
}

func TestByGroupsReturnsCopy(t *testing.T) {
	methods := []*types.MethodDescriptor{method("B", "X"), method("A", "Y")}
	out := ByGroups(methods, nil)
	out[0] = nil
	require.NotNil(t, methods[0])
}

func TestExpression(t *testing.T) {
	methods := []*types.MethodDescriptor{
		method("pkg.MathSuite", "TestAdd", "smoke"),
		method("pkg.MathSuite", "TestDiv"),
		method("pkg.NetSuite", "TestDial", "slow"),
	}

	tests := []struct {
		src  string
		want []string
	}{
		{src: "", want: []string{"pkg.MathSuite.TestAdd", "pkg.MathSuite.TestDiv", "pkg.NetSuite.TestDial"}},
		{src: `Type == "pkg.MathSuite"`, want: []string{"pkg.MathSuite.TestAdd", "pkg.MathSuite.TestDiv"}},
		{src: `"slow" in Groups`, want: []string{"pkg.NetSuite.TestDial"}},
		{src: `Method startsWith "TestD" && len(Groups) == 0`, want: []string{"pkg.MathSuite.TestDiv"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			x, err := Compile(tt.src)
			require.NoError(t, err)
			got, err := x.Apply(methods)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestCompileRejectsInvalid(t *testing.T) {
	_, err := Compile(`Type +`)
	require.Error(t, err)

	_, err = Compile(`Method`)
	require.Error(t, err, "non-boolean expressions are rejected")

	_, err = Compile(`Unknown == 1`)
	require.Error(t, err)
}
