// Package sndriver contains a reference consumer of the swapnet outbound event queue.
//
// The [Driver] owns the queue's receive side.
// It hands each request to a [Swarm] or a content router
// and completes the request's reply with the outcome.
package sndriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordian-engine/swapnet"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/routing"
)

// Swarm is the connection layer the driver delegates to.
type Swarm interface {
	// Dial connects to p, or reuses an existing connection,
	// and reports the connection and negotiated protocol.
	Dial(ctx context.Context, p peer.ID) (snevent.ConnectionID, snproto.ProtocolID, error)

	// SendMessage writes msg to p.
	// If conn is not [snevent.NoConnection], it must be used.
	// Returning [snevent.ErrProtocolNotSupported] stops the sender from retrying.
	SendMessage(ctx context.Context, p peer.ID, conn snevent.ConnectionID, msg snproto.Message) error

	// Ping measures the round trip time to p.
	// The boolean result is false if no measurement was possible.
	Ping(ctx context.Context, p peer.ID) (time.Duration, bool)
}

// Config is the configuration for [NewDriver].
type Config struct {
	// Required.
	Swarm Swarm

	// Optional content router.
	// Without one, provider lookups end with no results
	// and announcements are discarded.
	Routing routing.ContentRouting

	// Bounds on the driver's own work for each request.
	// A zero DialTimeout or PingTimeout uses the swapnet default.
	// A zero SendTimeout derives the bound from the message size
	// with [swapnet.SendTimeout].
	DialTimeout time.Duration
	SendTimeout time.Duration
	PingTimeout time.Duration

	// Maximum number of providers reported per lookup.
	// Zero means no limit.
	MaxProviders int
}

func (c Config) validate() {
	var panicErrs error

	if c.Swarm == nil {
		panicErrs = errors.Join(panicErrs, errors.New("Config.Swarm must not be nil"))
	}
	if c.DialTimeout < 0 || c.SendTimeout < 0 || c.PingTimeout < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"Config timeouts must not be negative (got dial=%s send=%s ping=%s)",
			c.DialTimeout, c.SendTimeout, c.PingTimeout,
		))
	}
	if c.MaxProviders < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"Config.MaxProviders must not be negative (got %d)", c.MaxProviders,
		))
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// Driver consumes a [swapnet.Network]'s outbound queue.
type Driver struct {
	log *slog.Logger

	n   *swapnet.Network
	cfg Config

	wg   sync.WaitGroup
	done chan struct{}
}

// NewDriver starts a driver consuming n's queue.
// The driver runs until ctx is canceled;
// use [*Driver.Wait] to block until it has fully stopped.
//
// Configuration errors cause a panic.
func NewDriver(ctx context.Context, log *slog.Logger, n *swapnet.Network, cfg Config) *Driver {
	cfg.validate()

	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = swapnet.ConnectTimeout
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = swapnet.DefaultPingTimeout
	}

	d := &Driver{
		log: log,

		n:   n,
		cfg: cfg,

		done: make(chan struct{}),
	}

	go d.mainLoop(ctx)

	return d
}

// Wait blocks until the main loop and every in-flight request handler have returned.
func (d *Driver) Wait() {
	<-d.done
}

func (d *Driver) mainLoop(ctx context.Context) {
	defer close(d.done)
	defer d.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Stopping due to context cancellation", "cause", context.Cause(ctx))
			d.dropPending()
			return

		case ev := <-d.n.Outbound():
			// Each request is handled concurrently,
			// so a slow peer never holds up the queue.
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.handle(ctx, ev)
			}()
		}
	}
}

// dropPending fails every request still queued at shutdown.
func (d *Driver) dropPending() {
	dropped := 0
	for {
		ev, ok := d.n.Poll()
		if !ok {
			break
		}
		abandon(ev)
		dropped++
	}

	if dropped > 0 {
		d.log.Info("Dropped pending requests", "count", dropped)
	}
}

// abandon releases the requester of ev without an answer.
func abandon(ev snevent.OutEvent) {
	switch ev := ev.(type) {
	case snevent.DialEvent:
		ev.Reply.Drop()
	case snevent.SendMessageEvent:
		ev.Reply.Drop()
	case snevent.EmitEvent:
		switch e := ev.Event.(type) {
		case snevent.PingEvent:
			e.Reply.Drop()
		case snevent.FindProvidersEvent:
			e.Providers.Close()
		case snevent.ProvideEvent:
			// No reply.
		}
	}
}

func (d *Driver) handle(ctx context.Context, ev snevent.OutEvent) {
	switch ev := ev.(type) {
	case snevent.DialEvent:
		d.handleDial(ctx, ev)
	case snevent.SendMessageEvent:
		d.handleSendMessage(ctx, ev)
	case snevent.EmitEvent:
		switch e := ev.Event.(type) {
		case snevent.PingEvent:
			d.handlePing(ctx, e)
		case snevent.FindProvidersEvent:
			d.handleFindProviders(ctx, e)
		case snevent.ProvideEvent:
			d.handleProvide(ctx, e)
		default:
			panic(fmt.Errorf("BUG: unhandled exchange event type %T", e))
		}
	default:
		panic(fmt.Errorf("BUG: unhandled outbound event type %T", ev))
	}
}

func (d *Driver) handleDial(ctx context.Context, ev snevent.DialEvent) {
	dctx, cancel := context.WithTimeout(ctx, d.cfg.DialTimeout)
	defer cancel()

	conn, proto, err := d.cfg.Swarm.Dial(dctx, ev.Peer)
	if ctx.Err() != nil {
		ev.Reply.Drop()
		return
	}

	if err != nil {
		d.log.Debug("Dial failed", "peer", ev.Peer, "req_id", ev.ReqID, "err", err)
		ev.Reply.Complete(snevent.DialResult{Err: err})
		return
	}

	ev.Reply.Complete(snevent.DialResult{Conn: conn, Protocol: proto})
}

func (d *Driver) handleSendMessage(ctx context.Context, ev snevent.SendMessageEvent) {
	timeout := d.cfg.SendTimeout
	if timeout == 0 {
		timeout = swapnet.SendTimeout(ev.Message.EncodedLen())
	}

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := d.cfg.Swarm.SendMessage(sctx, ev.Peer, ev.Conn, ev.Message)
	if ctx.Err() != nil {
		ev.Reply.Drop()
		return
	}

	if err != nil {
		d.log.Debug(
			"Send failed",
			"peer", ev.Peer, "conn", ev.Conn, "req_id", ev.ReqID, "err", err,
		)
	}
	ev.Reply.Complete(err)
}

func (d *Driver) handlePing(ctx context.Context, ev snevent.PingEvent) {
	pctx, cancel := context.WithTimeout(ctx, d.cfg.PingTimeout)
	defer cancel()

	rtt, ok := d.cfg.Swarm.Ping(pctx, ev.Peer)
	if ctx.Err() != nil {
		ev.Reply.Drop()
		return
	}

	ev.Reply.Complete(snevent.PingResult{RTT: rtt, Measured: ok})
}

func (d *Driver) handleFindProviders(ctx context.Context, ev snevent.FindProvidersEvent) {
	defer ev.Providers.Close()

	if d.cfg.Routing == nil {
		return
	}

	// Canceled on return, to release the router
	// if the requester stops reading early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := 0
	for ai := range d.cfg.Routing.FindProvidersAsync(ctx, ev.Key, d.cfg.MaxProviders) {
		if err := ev.Providers.Send(ctx, snevent.ProviderResult{
			Providers: map[peer.ID]struct{}{ai.ID: {}},
		}); err != nil {
			d.log.Debug("Stopped provider lookup early", "key", ev.Key, "found", found, "err", err)
			return
		}
		found++
	}

	d.log.Debug("Provider lookup finished", "key", ev.Key, "found", found)
}

func (d *Driver) handleProvide(ctx context.Context, ev snevent.ProvideEvent) {
	if d.cfg.Routing == nil {
		d.log.Debug("Discarding provide without content router", "key", ev.Key)
		return
	}

	if err := d.cfg.Routing.Provide(ctx, ev.Key, true); err != nil {
		d.log.Info("Failed to provide", "key", ev.Key, "err", err)
	}
}
