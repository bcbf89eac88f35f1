package swapnet

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gordian-engine/swapnet/internal/snchan"
	"github.com/gordian-engine/swapnet/internal/sntrace"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snmetrics"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Network is the producer side of the outbound event queue,
// plus the request/response operations built on it.
//
// A *Network is shared by every caller;
// all methods are safe for concurrent use.
// Exactly one driver should consume the queue.
type Network struct {
	log *slog.Logger

	selfID peer.ID

	q *snchan.Queue[snevent.OutEvent]

	clock   clock.Clock
	tracer  sntrace.Tracer
	metrics *snmetrics.Metrics

	dialTimeout        time.Duration
	pingTimeout        time.Duration
	providerBufferSize int

	stopped atomic.Bool
}

// NewNetwork returns a new Network for the local peer selfID.
//
// Configuration errors cause a panic.
func NewNetwork(log *slog.Logger, selfID peer.ID, cfg NetworkConfig) *Network {
	if selfID == "" {
		panic("BUG: NewNetwork requires a non-empty self ID")
	}

	cfg.validate()
	cfg = cfg.withDefaults()

	return &Network{
		log: log,

		selfID: selfID,

		q: snchan.NewQueue[snevent.OutEvent](cfg.QueueCapacity),

		clock:   cfg.Clock,
		tracer:  cfg.TracerProvider.Tracer(sntrace.InstrumentationName),
		metrics: cfg.Metrics,

		dialTimeout:        cfg.DialTimeout,
		pingTimeout:        cfg.PingTimeout,
		providerBufferSize: cfg.ProviderBufferSize,
	}
}

// SelfID returns the local peer ID given to [NewNetwork].
func (n *Network) SelfID() peer.ID {
	return n.selfID
}

// Poll returns the oldest queued request, without blocking.
// The boolean result is false if the queue is empty.
//
// Poll is intended for drivers that run their own poll loop.
// Drivers that block in a select statement should use [*Network.Outbound].
func (n *Network) Poll() (snevent.OutEvent, bool) {
	return n.q.TryPop()
}

// Outbound returns the receive side of the outbound event queue.
// The channel is never closed.
func (n *Network) Outbound() <-chan snevent.OutEvent {
	return n.q.C()
}

// QueueLen reports how many requests are waiting for the driver.
func (n *Network) QueueLen() int {
	return n.q.Len()
}

// Stop causes every subsequent request to fail with [ErrNetworkStopped].
// Requests already queued remain available to the driver.
func (n *Network) Stop() {
	if n.stopped.CompareAndSwap(false, true) {
		n.log.Info("Network stopped", "pending", n.q.Len(), "capacity", n.q.Cap())
	}
}

// enqueue hands ev to the driver without blocking.
func (n *Network) enqueue(ev snevent.OutEvent) error {
	if n.stopped.Load() {
		return ErrNetworkStopped
	}

	if !n.q.TryPush(ev) {
		n.metrics.ObserveQueueFull(ev.Kind())
		return ErrQueueFull
	}

	n.metrics.ObserveEnqueued(ev.Kind())
	return nil
}
