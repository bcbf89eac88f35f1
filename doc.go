// Package swapnet is the transport adapter between a block exchange engine
// and a peer-to-peer swarm.
//
// The swarm is driven by a single, externally owned event loop
// that must never block.
// Callers of swapnet, on the other hand, want to issue
// "dial this peer" or "send this message" from many goroutines
// and wait for an answer.
//
// A [Network] bridges the two with a bounded outbound queue of
// [snevent.OutEvent] values, each carrying a one-shot reply.
// Enqueueing never blocks: a full queue is reported as [ErrQueueFull].
// The driver drains the queue with [*Network.Poll] or [*Network.Outbound],
// performs the I/O, and completes the replies.
//
// On top of that bridge, [*Network.SendMessageWithRetry] retries transient failures
// within an overall deadline, and a [MessageSender] caches
// a dialed connection for repeated sends to one peer.
//
// The [sndriver] package contains a reference driver,
// and [snquic] a QUIC swarm for it to drive.
package swapnet
