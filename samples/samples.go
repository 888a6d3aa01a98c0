// Package samples holds the built-in suites run by op-testexec when no other
// suites are linked in. They double as examples of writing suites.
package samples

import (
	"github.com/ethereum-optimism/infra/op-testexec/discovery"
)

const (
	ArithmeticSuiteName = "samples.Arithmetic"
	TextSuiteName       = "samples.Text"
	CacheSuiteName      = "samples.Cache"
)

// Register adds every sample suite to c.
func Register(c *discovery.Catalog) error {
	if _, err := discovery.Register(c, NewArithmeticSuite, discovery.WithName(ArithmeticSuiteName)); err != nil {
		return err
	}
	if _, err := discovery.Register(c, func() *TextSuite { return &TextSuite{} }, discovery.WithName(TextSuiteName)); err != nil {
		return err
	}
	if _, err := discovery.RegisterFactory(c, NewCacheSuite, discovery.WithName(CacheSuiteName)); err != nil {
		return err
	}
	return nil
}
