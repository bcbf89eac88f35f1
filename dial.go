package swapnet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gordian-engine/swapnet/internal/sntrace"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snmetrics"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// DialResult is the connection and protocol
// that the driver established for a [*Network.Dial] call.
type DialResult struct {
	Conn     snevent.ConnectionID
	Protocol snproto.ProtocolID
}

// Dial asks the driver to connect to p and negotiate a protocol,
// waiting at most timeout for the answer.
//
// Failures are reported as a [*DialError].
// There is no retry at this level.
//
// If ctx is canceled first, the returned error wraps [context.Cause].
// In every failure case, a late answer from the driver is discarded.
func (n *Network) Dial(ctx context.Context, p peer.ID, timeout time.Duration) (DialResult, error) {
	ctx, span := n.tracer.Start(ctx, "swapnet.Dial", sntrace.WithAttributes(sntrace.PeerAttr(p)))
	defer span.End()

	res, err := n.dial(ctx, p, timeout)
	if err != nil {
		sntrace.SpanError(span, err)
	}
	return res, err
}

func (n *Network) dial(ctx context.Context, p peer.ID, timeout time.Duration) (DialResult, error) {
	reqID := uuid.New()
	n.log.Debug("Dialing peer", "peer", p, "req_id", reqID)

	reply := snevent.NewReply[snevent.DialResult]()
	if err := n.enqueue(snevent.DialEvent{
		ReqID: reqID,
		Peer:  p,
		Reply: reply,
	}); err != nil {
		if errors.Is(err, ErrQueueFull) {
			n.metrics.ObserveDial(snmetrics.OutcomeQueueFull)
			return DialResult{}, &DialError{Peer: p, Kind: DialQueueFull, Err: err}
		}

		n.metrics.ObserveDial(snmetrics.OutcomeStopped)
		return DialResult{}, fmt.Errorf("dial %s: %w", p, err)
	}

	timer := n.clock.Timer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		n.metrics.ObserveDial(snmetrics.OutcomeCanceled)
		return DialResult{}, fmt.Errorf(
			"context canceled while awaiting dial to %s: %w", p, context.Cause(ctx),
		)

	case <-timer.C:
		n.metrics.ObserveDial(snmetrics.OutcomeTimeout)
		n.log.Debug("Dial timed out", "peer", p, "req_id", reqID, "timeout", timeout)
		return DialResult{}, &DialError{
			Peer:    p,
			Kind:    DialTimeout,
			Timeout: timeout,
			Err:     context.DeadlineExceeded,
		}

	case res, ok := <-reply.C():
		if !ok {
			n.metrics.ObserveDial(snmetrics.OutcomeRefused)
			return DialResult{}, &DialError{Peer: p, Kind: DialRefused, Err: snevent.ErrReplyDropped}
		}

		if res.Err != nil {
			n.metrics.ObserveDial(snmetrics.OutcomeRefused)
			n.log.Debug("Dial refused", "peer", p, "req_id", reqID, "err", res.Err)
			return DialResult{}, &DialError{Peer: p, Kind: DialRefused, Err: res.Err}
		}

		n.metrics.ObserveDial(snmetrics.OutcomeOK)
		return DialResult{
			Conn:     res.Conn,
			Protocol: res.Protocol,
		}, nil
	}
}
