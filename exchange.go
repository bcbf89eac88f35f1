package swapnet

import (
	"context"
	"fmt"
	"time"

	"github.com/gordian-engine/swapnet/internal/sntrace"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Ping asks the driver for the round trip time to p,
// waiting at most the configured ping timeout.
//
// If the driver has no measurement, Ping returns [ErrPingUnavailable]
// rather than a zero duration.
func (n *Network) Ping(ctx context.Context, p peer.ID) (time.Duration, error) {
	ctx, span := n.tracer.Start(ctx, "swapnet.Ping", sntrace.WithAttributes(sntrace.PeerAttr(p)))
	defer span.End()

	reply := snevent.NewReply[snevent.PingResult]()
	if err := n.enqueue(snevent.EmitEvent{
		Event: snevent.PingEvent{
			Peer:  p,
			Reply: reply,
		},
	}); err != nil {
		sntrace.SpanError(span, err)
		return 0, fmt.Errorf("ping %s: %w", p, err)
	}

	timer := n.clock.Timer(n.pingTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-ctx.Done():
		err = fmt.Errorf("context canceled while awaiting ping to %s: %w", p, context.Cause(ctx))

	case <-timer.C:
		err = fmt.Errorf("ping %s: timed out after %s: %w", p, n.pingTimeout, context.DeadlineExceeded)

	case res, ok := <-reply.C():
		switch {
		case !ok:
			err = fmt.Errorf("ping %s: %w", p, snevent.ErrReplyDropped)
		case !res.Measured:
			err = fmt.Errorf("ping %s: %w", p, ErrPingUnavailable)
		default:
			n.metrics.ObservePingSeconds(res.RTT.Seconds())
			return res.RTT, nil
		}
	}

	sntrace.SpanError(span, err)
	return 0, err
}

// FindProviders asks the driver to look up providers of key.
//
// The returned channel yields results as the driver finds them
// and is closed when the lookup ends.
// It is not restartable: call FindProviders again for a new lookup.
//
// Canceling ctx tells the driver to stop delivering results;
// the caller should still drain or abandon the channel.
func (n *Network) FindProviders(ctx context.Context, key cid.Cid) (<-chan snevent.ProviderResult, error) {
	s := snevent.NewProviderStream(n.providerBufferSize, ctx.Done())
	if err := n.enqueue(snevent.EmitEvent{
		Event: snevent.FindProvidersEvent{
			Key:       key,
			Providers: s,
		},
	}); err != nil {
		return nil, fmt.Errorf("find providers for %s: %w", key, err)
	}

	return s.C(), nil
}

// Provide announces that the local node can provide key.
// It fails only if the announcement cannot be queued.
func (n *Network) Provide(key cid.Cid) error {
	if err := n.enqueue(snevent.EmitEvent{
		Event: snevent.ProvideEvent{Key: key},
	}); err != nil {
		return fmt.Errorf("provide %s: %w", key, err)
	}
	return nil
}

// The peer hint methods below have no effect beyond logging.
// They exist so that exchange code can express connection priorities now,
// and a connection manager can honor them later without an API change.

// TagPeer records an advisory tag with a weight on p.
func (n *Network) TagPeer(p peer.ID, tag string, value int) {
	n.log.Info("Tag peer", "peer", p, "tag", tag, "value", value)
}

// UntagPeer removes an advisory tag from p.
func (n *Network) UntagPeer(p peer.ID, tag string) {
	n.log.Info("Untag peer", "peer", p, "tag", tag)
}

// ProtectPeer asks that connections to p not be pruned, under tag.
func (n *Network) ProtectPeer(p peer.ID, tag string) {
	n.log.Info("Protect peer", "peer", p, "tag", tag)
}

// UnprotectPeer removes protection for p under tag.
// It reports whether p is still protected under another tag,
// which is currently always false.
func (n *Network) UnprotectPeer(p peer.ID, tag string) bool {
	n.log.Info("Unprotect peer", "peer", p, "tag", tag)
	return false
}
