// Package discovery turns Go suite types into method descriptors.
//
// A suite is a type with a pointer receiver method set:
//
//	type WalletSuite struct{ client *Client }
//
//	func (s *WalletSuite) SetUp(rc *types.RunContext)    { s.client = dial(rc.Context()) }
//	func (s *WalletSuite) TestBalance(rc *types.RunContext) { ... }
//	func (s *WalletSuite) TearDown()                       { s.client.Close() }
//
// Exported methods named Test* are tests. SetUp and TearDown are pre- and
// post-test actions. Suites implementing Annotated, or registered with
// WithTags, can tag any method with a description, skip marker, groups or
// an action order.
package discovery
