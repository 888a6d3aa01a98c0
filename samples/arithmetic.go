package samples

import (
	"errors"

	"github.com/ethereum-optimism/infra/op-testexec/assert"
	"github.com/ethereum-optimism/infra/op-testexec/discovery"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

var errDivideByZero = errors.New("divide by zero")

func divide(a, b int) (int, error) {
	if b == 0 {
		return 0, errDivideByZero
	}
	return a / b, nil
}

// ArithmeticSuite checks integer helpers. Operands are reset before every test.
type ArithmeticSuite struct {
	a, b int
}

func NewArithmeticSuite() *ArithmeticSuite {
	return &ArithmeticSuite{}
}

func (s *ArithmeticSuite) Tags() map[string]discovery.Tags {
	return map[string]discovery.Tags{
		"TestAdd":          {Description: "adds two operands", Groups: []string{"smoke", "math"}},
		"TestMultiply":     {Description: "multiplies two operands", Groups: []string{"math"}},
		"TestDivideByZero": {Description: "rejects a zero divisor", Groups: []string{"math"}},
	}
}

func (s *ArithmeticSuite) SetUp(rc *types.RunContext) {
	s.a, s.b = 6, 3
	rc.Logf("operands a=%d b=%d", s.a, s.b)
}

func (s *ArithmeticSuite) TestAdd() {
	assert.Equal(9, s.a+s.b)
}

func (s *ArithmeticSuite) TestMultiply(rc *types.RunContext) {
	got := s.a * s.b
	rc.LogFailure("product was " + itoa(got))
	assert.Equal(18, got, "product of %d and %d", s.a, s.b)
}

func (s *ArithmeticSuite) TestDivideByZero() {
	_, err := divide(s.a, 0)
	assert.True(errors.Is(err, errDivideByZero), "expected errDivideByZero, got %v", err)
	q, err := divide(s.a, s.b)
	assert.NoError(err)
	assert.Equal(2, q)
}
