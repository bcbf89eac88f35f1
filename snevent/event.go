package snevent

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
)

// ConnectionID names an established connection to a peer.
// The driver allocates connection IDs; they are opaque to swapnet.
type ConnectionID uint64

// NoConnection indicates that the caller has no preferred connection,
// and the driver should pick or open one.
const NoConnection ConnectionID = 0

func (c ConnectionID) String() string {
	if c == NoConnection {
		return "none"
	}
	return strconv.FormatUint(uint64(c), 10)
}

// OutEvent is a request queued for the swarm driver.
// It is one of [DialEvent], [SendMessageEvent], or [EmitEvent].
type OutEvent interface {
	// Kind is a short, stable name for logs and metrics.
	Kind() string

	isOutEvent()
}

// DialEvent asks the driver to connect to Peer
// and negotiate a protocol version.
type DialEvent struct {
	// Correlates log lines between the caller and the driver.
	ReqID uuid.UUID

	Peer peer.ID

	Reply *Reply[DialResult]
}

// DialResult is the driver's answer to a [DialEvent].
// If Err is set, the other fields are meaningless.
type DialResult struct {
	Conn     ConnectionID
	Protocol snproto.ProtocolID

	Err error
}

// SendMessageEvent asks the driver to deliver Message to Peer.
type SendMessageEvent struct {
	ReqID uuid.UUID

	Peer    peer.ID
	Message snproto.Message

	// The connection to send on, or [NoConnection].
	Conn ConnectionID

	// A nil error indicates successful delivery.
	// [ErrProtocolNotSupported] is fatal;
	// any other error is considered transient.
	Reply *Reply[error]
}

// EmitEvent carries an auxiliary exchange event toward the driver.
type EmitEvent struct {
	Event ExchangeEvent
}

func (DialEvent) Kind() string        { return "dial" }
func (SendMessageEvent) Kind() string { return "send_message" }
func (e EmitEvent) Kind() string      { return e.Event.Kind() }

func (DialEvent) isOutEvent()        {}
func (SendMessageEvent) isOutEvent() {}
func (EmitEvent) isOutEvent()        {}

// ExchangeEvent is one of [PingEvent], [FindProvidersEvent], or [ProvideEvent].
type ExchangeEvent interface {
	Kind() string

	isExchangeEvent()
}

// PingEvent asks the driver to measure round trip time to Peer.
type PingEvent struct {
	Peer peer.ID

	Reply *Reply[PingResult]
}

// PingResult is the driver's answer to a [PingEvent].
// Measured is false when the driver has no measurement available.
type PingResult struct {
	RTT      time.Duration
	Measured bool
}

// FindProvidersEvent asks the driver to look up peers providing Key.
// The driver sends zero or more results on Providers
// and then must close it.
type FindProvidersEvent struct {
	Key cid.Cid

	Providers *ProviderStream
}

// ProvideEvent announces that the local node provides Key.
// There is no reply.
type ProvideEvent struct {
	Key cid.Cid
}

func (PingEvent) Kind() string          { return "ping" }
func (FindProvidersEvent) Kind() string { return "find_providers" }
func (ProvideEvent) Kind() string       { return "provide" }

func (PingEvent) isExchangeEvent()          {}
func (FindProvidersEvent) isExchangeEvent() {}
func (ProvideEvent) isExchangeEvent()       {}

// ProviderResult is a single batch of providers,
// or an error from the routing system.
type ProviderResult struct {
	Providers map[peer.ID]struct{}

	Err error
}

// ProviderStream is a multi-value reply channel for [FindProvidersEvent].
// The driver is the only writer; the requester is the only reader.
type ProviderStream struct {
	ch chan ProviderResult

	// Closed when the requester stops reading.
	abandoned <-chan struct{}

	closeOnce sync.Once
}

// NewProviderStream returns a stream buffering up to size results.
// The abandoned channel, typically the requester's ctx.Done(),
// unblocks [*ProviderStream.Send] when the requester goes away.
// It may be nil.
func NewProviderStream(size int, abandoned <-chan struct{}) *ProviderStream {
	return &ProviderStream{
		ch:        make(chan ProviderResult, size),
		abandoned: abandoned,
	}
}

// Send delivers res to the requester,
// blocking while the stream's buffer is full.
// Send must not be called after Close.
func (s *ProviderStream) Send(ctx context.Context, res ProviderResult) error {
	select {
	case s.ch <- res:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-s.abandoned:
		return ErrStreamAbandoned
	}
}

// Close terminates the stream.
// It is safe to call Close more than once.
func (s *ProviderStream) Close() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// C returns the channel the requester reads from.
// It is closed once the driver finishes the lookup.
func (s *ProviderStream) C() <-chan ProviderResult {
	return s.ch
}
