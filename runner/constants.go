package runner

import "time"

const (
	// DefaultPollInterval is how often the concurrent runner checks worker liveness.
	DefaultPollInterval = 50 * time.Millisecond

	// MaxReasonableConcurrency is the worker count above which a warning is logged.
	MaxReasonableConcurrency = 32

	// TracerName identifies spans created by the executor.
	TracerName = "op-testexec/runner"
)

// Messages attached to completed and skipped events.
const (
	msgPassed    = "Test passed."
	msgException = "An exception of type '%s' occurred during the execution of the test."

	msgTypeUnknown       = "The declaring type of the test method is unknown."
	msgTypeNotClass      = "The type '%s' is not a class."
	msgTypeGeneric       = "The type '%s' is a generic type definition."
	msgTypeAbstract      = "The type '%s' is abstract."
	msgTypeNotPublic     = "The type '%s' is not publicly visible."
	msgTypeNoConstructor = "The type '%s' does not have a public parameterless constructor."
	msgConstructorThrew  = "The constructor of type '%s' threw an exception."

	msgMethodNotPublic = "The test method is not public."
	msgMethodStatic    = "The test method is static."
	msgMethodAbstract  = "The test method is abstract."
	msgMethodGeneric   = "The test method is a generic method definition."
	msgMethodNotVoid   = "The test method does not return void."
	msgMethodParams    = "The test method has an unsupported parameter list."
	msgMethodIsAction  = "The test method is marked as a pre- or post-test action."
	msgSkipMarker      = "The test method is marked to be skipped."
)
