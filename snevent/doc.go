// Package snevent contains the request types that flow from a
// [github.com/gordian-engine/swapnet.Network] to the swarm driver.
//
// Every request that expects an answer carries its own reply handle.
// The driver must complete each handle at most once;
// a handle that the driver gives up on should be dropped with [Reply.Drop]
// so the waiting caller observes a failure immediately
// instead of waiting for its own timeout.
//
// Replies may be completed in any order.
// Callers never assume that replies arrive in the order requests were queued.
package snevent
