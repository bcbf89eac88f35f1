package swapnet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gordian-engine/swapnet/snevent"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/multierr"
)

// ErrQueueFull is returned when the outbound event queue is at capacity.
// It is reported immediately and is never retried by swapnet itself.
var ErrQueueFull = errors.New("outbound event queue full")

// ErrNetworkStopped is returned for any request made after [*Network.Stop].
var ErrNetworkStopped = errors.New("network stopped")

// ErrPingUnavailable is returned from [*Network.Ping]
// when the driver has no round trip measurement for the peer.
var ErrPingUnavailable = errors.New("no ping measurement available")

// ErrProtocolNotSupported is an alias of [snevent.ErrProtocolNotSupported],
// so callers can check send errors without importing snevent.
var ErrProtocolNotSupported = snevent.ErrProtocolNotSupported

// DialErrorKind classifies a [DialError].
type DialErrorKind uint8

const (
	// The dial request could not be queued.
	DialQueueFull DialErrorKind = iota + 1

	// The driver did not answer within the dial timeout.
	DialTimeout

	// The driver reported a failure, or dropped the request.
	DialRefused
)

func (k DialErrorKind) String() string {
	switch k {
	case DialQueueFull:
		return "queue full"
	case DialTimeout:
		return "timeout"
	case DialRefused:
		return "refused"
	default:
		return fmt.Sprintf("DialErrorKind(%d)", uint8(k))
	}
}

// DialError is returned from [*Network.Dial].
type DialError struct {
	Peer peer.ID
	Kind DialErrorKind

	// Set for DialTimeout.
	Timeout time.Duration

	// The underlying cause:
	// [ErrQueueFull], [context.DeadlineExceeded],
	// or the driver's reported failure.
	Err error
}

func (e *DialError) Error() string {
	switch e.Kind {
	case DialTimeout:
		return fmt.Sprintf("dial %s: timed out after %s", e.Peer, e.Timeout)
	case DialRefused:
		return fmt.Sprintf("dial %s: refused: %v", e.Peer, e.Err)
	default:
		return fmt.Sprintf("dial %s: %v", e.Peer, e.Err)
	}
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// SendFailedError is returned when every attempt of a retrying send
// failed with a transient error.
type SendFailedError struct {
	Peer     peer.ID
	Attempts int

	// Every attempt's error, combined with multierr.
	Err error
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf(
		"failed to send message to %s after %d attempt(s): %v",
		e.Peer, e.Attempts, e.Err,
	)
}

// Errors returns each attempt's error, in attempt order.
func (e *SendFailedError) Errors() []error {
	return multierr.Errors(e.Err)
}

func (e *SendFailedError) Unwrap() []error {
	return multierr.Errors(e.Err)
}

// SendDeadlineError is returned when the overall send timeout elapses
// before the retry loop concludes.
type SendDeadlineError struct {
	Peer    peer.ID
	Timeout time.Duration

	// Number of attempts handed to the driver before the deadline.
	Attempts int

	// Errors from the attempts that completed before the deadline, if any.
	Err error
}

func (e *SendDeadlineError) Error() string {
	msg := fmt.Sprintf(
		"failed to send message to %s: deadline of %s exceeded after %d attempt(s)",
		e.Peer, e.Timeout, e.Attempts,
	)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Errors returns the errors collected before the deadline, in attempt order.
func (e *SendDeadlineError) Errors() []error {
	return multierr.Errors(e.Err)
}

// Unwrap exposes [context.DeadlineExceeded]
// along with every collected attempt error.
func (e *SendDeadlineError) Unwrap() []error {
	return append([]error{context.DeadlineExceeded}, multierr.Errors(e.Err)...)
}
