// Package broadcast implements the fan-out delivery engine.
//
// A broadcast delivers one message (a verbatim copy of an existing message,
// reconstructable payload content, or both) to a large set of recipients over
// a rate-limited transport. The engine owns the work queue, the worker pool,
// the shared token-bucket throughput gate, per-recipient retry on server
// throttling, and periodic progress reporting.
//
// Delivery semantics
//
// Delivery is at-most-once per successful outcome: a recipient is counted as
// success or failed exactly once, retries happen only on server-mandated
// deferrals, and a single recipient's failure never affects other recipients
// or the run itself. A run always reaches a terminal persisted outcome, even
// when every delivery fails.
//
// Starting a run is non-blocking: Service.Start validates, records the run,
// and schedules it on a background goroutine. Callers observe completion via
// the persisted outcome or the completion notification.
package broadcast
