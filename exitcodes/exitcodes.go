// Package exitcodes defines the process exit codes of op-testexec.
package exitcodes

// * Success (0): every executed test passed
// * TestFailure (1): at least one test failed, threw or aborted
// * RuntimeErr (2): configuration errors, engine faults or other failures
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
