package samples

import (
	"strconv"
	"strings"

	"github.com/ethereum-optimism/infra/op-testexec/assert"
	"github.com/ethereum-optimism/infra/op-testexec/discovery"
)

func itoa(n int) string { return strconv.Itoa(n) }

// TextSuite checks string handling.
type TextSuite struct{}

func (s *TextSuite) Tags() map[string]discovery.Tags {
	return map[string]discovery.Tags{
		"TestUpper": {Groups: []string{"smoke", "text"}},
		"TestFields": {Groups: []string{"text"}},
		"TestLegacyPadding": {
			Groups:      []string{"text"},
			Skip:        true,
			SkipMessage: "padding helper was removed",
		},
	}
}

func (s *TextSuite) TestUpper() {
	assert.Equal("OP-TESTEXEC", strings.ToUpper("op-testexec"))
}

func (s *TextSuite) TestFields() {
	fields := strings.Fields("  run   the  tests ")
	assert.Equal([]string{"run", "the", "tests"}, fields)
}

func (s *TextSuite) TestLegacyPadding() {
	assert.Fail("not implemented")
}
