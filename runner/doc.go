// Package runner executes test methods and reports their progress as a
// stream of events.
//
// The main components are:
//   - Executor: Enforces one active run at a time, owns the observer list and
//     dispatches to the sequential or concurrent runner
//   - InstanceLifecycle: Holds the current suite instance of one execution
//     stream and replaces it on type transitions
//   - ActionCache: Discovers and memoizes pre/post-test actions per type
//   - Accounting: Thread-safe result counters of one execution stream
//   - RunHandle: Pollable, waitable and callback-notified handle over a run
//     started with Executor.BeginRun
//
// Validation failures are reported as skips, test failures as completed
// events. Only faults in the engine's own bookkeeping end a run early.
package runner
