package swapnet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gordian-engine/swapnet"
	"github.com/gordian-engine/swapnet/internal/sntest"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snmetrics"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type dialOutcome struct {
	Res swapnet.DialResult
	Err error
}

func startDial(
	ctx context.Context, n *swapnet.Network, p string, timeout time.Duration,
) <-chan dialOutcome {
	ch := make(chan dialOutcome, 1)
	go func() {
		res, err := n.Dial(ctx, peer.ID(p), timeout)
		ch <- dialOutcome{Res: res, Err: err}
	}()
	return ch
}

func TestNetwork_Dial_success(t *testing.T) {
	t.Parallel()

	m := snmetrics.New(nil)
	n := newTestNetwork(t, swapnet.NetworkConfig{Metrics: m})

	out := startDial(context.Background(), n, "remote", time.Second)

	de := receiveEvent[snevent.DialEvent](t, n)
	require.Equal(t, peer.ID("remote"), de.Peer)
	require.True(t, de.Reply.Complete(snevent.DialResult{
		Conn:     7,
		Protocol: snproto.ProtocolBitswap,
	}))

	o := sntest.ReceiveSoon(t, out)
	require.NoError(t, o.Err)
	require.Equal(t, snevent.ConnectionID(7), o.Res.Conn)
	require.Equal(t, snproto.ProtocolBitswap, o.Res.Protocol)

	require.Equal(t, float64(1), testutil.ToFloat64(m.DialResults.WithLabelValues(snmetrics.OutcomeOK)))
}

func TestNetwork_Dial_refused(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	out := startDial(context.Background(), n, "remote", time.Second)

	driverErr := errors.New("no addresses")
	de := receiveEvent[snevent.DialEvent](t, n)
	de.Reply.Complete(snevent.DialResult{Err: driverErr})

	o := sntest.ReceiveSoon(t, out)
	var dialErr *swapnet.DialError
	require.ErrorAs(t, o.Err, &dialErr)
	require.Equal(t, swapnet.DialRefused, dialErr.Kind)
	require.ErrorIs(t, o.Err, driverErr)
	require.Contains(t, o.Err.Error(), "no addresses")
}

func TestNetwork_Dial_dropped(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	out := startDial(context.Background(), n, "remote", time.Second)

	de := receiveEvent[snevent.DialEvent](t, n)
	require.True(t, de.Reply.Drop())

	o := sntest.ReceiveSoon(t, out)
	var dialErr *swapnet.DialError
	require.ErrorAs(t, o.Err, &dialErr)
	require.Equal(t, swapnet.DialRefused, dialErr.Kind)
	require.ErrorIs(t, o.Err, snevent.ErrReplyDropped)
}

func TestNetwork_Dial_timeout(t *testing.T) {
	t.Parallel()

	m := snmetrics.New(nil)
	n := newTestNetwork(t, swapnet.NetworkConfig{Metrics: m})

	const timeout = 100 * time.Millisecond

	start := time.Now()
	out := startDial(context.Background(), n, "remote", timeout)

	// The driver takes the request but never answers.
	de := receiveEvent[snevent.DialEvent](t, n)

	o := sntest.ReceiveSoon(t, out)
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, timeout)
	require.Less(t, elapsed, 2*timeout)

	var dialErr *swapnet.DialError
	require.ErrorAs(t, o.Err, &dialErr)
	require.Equal(t, swapnet.DialTimeout, dialErr.Kind)
	require.Equal(t, timeout, dialErr.Timeout)
	require.ErrorIs(t, o.Err, context.DeadlineExceeded)

	// A late answer is accepted by the reply and silently discarded.
	require.True(t, de.Reply.Complete(snevent.DialResult{Conn: 1}))

	require.Equal(t, float64(1), testutil.ToFloat64(m.DialResults.WithLabelValues(snmetrics.OutcomeTimeout)))
}

func TestNetwork_Dial_queueFull(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{QueueCapacity: 1})
	require.NoError(t, n.Provide(testCID(t, "filler")))

	_, err := n.Dial(context.Background(), "remote", time.Second)

	var dialErr *swapnet.DialError
	require.ErrorAs(t, err, &dialErr)
	require.Equal(t, swapnet.DialQueueFull, dialErr.Kind)
	require.ErrorIs(t, err, swapnet.ErrQueueFull)
}

func TestNetwork_Dial_contextCanceled(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	out := startDial(ctx, n, "remote", time.Minute)

	_ = receiveEvent[snevent.DialEvent](t, n)
	cancel()

	o := sntest.ReceiveSoon(t, out)
	require.ErrorIs(t, o.Err, context.Canceled)

	var dialErr *swapnet.DialError
	require.False(t, errors.As(o.Err, &dialErr))
}

func TestNetwork_Dial_concurrentRepliesMatchRequests(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	outA := startDial(context.Background(), n, "a", time.Second)
	deA := receiveEvent[snevent.DialEvent](t, n)
	outB := startDial(context.Background(), n, "b", time.Second)
	deB := receiveEvent[snevent.DialEvent](t, n)

	// Answer in the opposite order.
	deB.Reply.Complete(snevent.DialResult{Conn: 2, Protocol: snproto.ProtocolBitswapOneOne})
	deA.Reply.Complete(snevent.DialResult{Conn: 1, Protocol: snproto.ProtocolBitswap})

	oB := sntest.ReceiveSoon(t, outB)
	require.NoError(t, oB.Err)
	require.Equal(t, snevent.ConnectionID(2), oB.Res.Conn)

	oA := sntest.ReceiveSoon(t, outA)
	require.NoError(t, oA.Err)
	require.Equal(t, snevent.ConnectionID(1), oA.Res.Conn)
}
