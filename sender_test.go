package swapnet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gordian-engine/swapnet"
	"github.com/gordian-engine/swapnet/internal/sntest"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"
)

type senderOutcome struct {
	S   *swapnet.MessageSender
	Err error
}

// newSender creates a sender to p, acting as the driver for its dial.
func newSender(
	t *testing.T, n *swapnet.Network, p peer.ID, cfg swapnet.MessageSenderConfig, res snevent.DialResult,
) (*swapnet.MessageSender, error) {
	t.Helper()

	out := make(chan senderOutcome, 1)
	go func() {
		s, err := n.NewMessageSender(context.Background(), p, cfg)
		out <- senderOutcome{S: s, Err: err}
	}()

	de := receiveEvent[snevent.DialEvent](t, n)
	require.Equal(t, p, de.Peer)
	de.Reply.Complete(res)

	o := sntest.ReceiveSoon(t, out)
	return o.S, o.Err
}

func TestMessageSender_retriesThenSucceeds(t *testing.T) {
	t.Parallel()

	const backoff = 50 * time.Millisecond

	clk := sntest.NewCountingClock()
	n := newTestNetwork(t, swapnet.NetworkConfig{Clock: clk})

	s, err := newSender(t, n, "remote", swapnet.MessageSenderConfig{
		MaxRetries:       3,
		SendTimeout:      500 * time.Millisecond,
		SendErrorBackoff: backoff,
	}, snevent.DialResult{Conn: 3, Protocol: snproto.ProtocolBitswap})
	require.NoError(t, err)

	d := runSendDriver(t, n, func(attempt int) error {
		if attempt < 2 {
			return errTimeout
		}
		return nil
	})

	require.NoError(t, s.SendMessage(context.Background(), snproto.RawMessage("block")))

	evs := d.Events()
	require.Len(t, evs, 3)
	for _, ev := range evs {
		require.Equal(t, peer.ID("remote"), ev.Peer)
		require.Equal(t, snevent.ConnectionID(3), ev.Conn)
	}

	require.Equal(t, 2, clk.TimersOf(backoff))
}

func TestMessageSender_accessors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		proto        snproto.ProtocolID
		supportsHave bool
	}{
		{proto: snproto.ProtocolBitswap, supportsHave: true},
		{proto: snproto.ProtocolBitswapOneOne, supportsHave: false},
		{proto: snproto.ProtocolBitswapOneZero, supportsHave: false},
		{proto: snproto.ProtocolBitswapNoVers, supportsHave: false},
	} {
		t.Run(string(tc.proto), func(t *testing.T) {
			t.Parallel()

			n := newTestNetwork(t, swapnet.NetworkConfig{})
			cfg := swapnet.DefaultMessageSenderConfig()

			s, err := newSender(t, n, "remote", cfg, snevent.DialResult{Conn: 9, Protocol: tc.proto})
			require.NoError(t, err)

			require.Equal(t, peer.ID("remote"), s.Peer())
			require.Equal(t, snevent.ConnectionID(9), s.Conn())
			require.Equal(t, tc.proto, s.Protocol())
			require.Equal(t, cfg, s.Config())
			require.Equal(t, tc.supportsHave, s.SupportsHave())

			// The capability check does no I/O.
			sntest.NotSending(t, n.Outbound())
		})
	}
}

func TestNetwork_NewMessageSender_dialRefused(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	driverErr := errors.New("connection refused")
	s, err := newSender(
		t, n, "remote", swapnet.DefaultMessageSenderConfig(), snevent.DialResult{Err: driverErr},
	)
	require.Nil(t, s)
	require.ErrorIs(t, err, driverErr)

	var dialErr *swapnet.DialError
	require.ErrorAs(t, err, &dialErr)
	require.Equal(t, swapnet.DialRefused, dialErr.Kind)
}

func TestNetwork_NewMessageSender_invalidConfig(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	_, err := n.NewMessageSender(context.Background(), "remote", swapnet.MessageSenderConfig{})
	require.Error(t, err)

	// Nothing was dialed.
	require.Zero(t, n.QueueLen())
}

func TestNetwork_NewMessageSender_usesDialTimeout(t *testing.T) {
	t.Parallel()

	const dialTimeout = 40 * time.Millisecond

	clk := sntest.NewCountingClock()
	n := newTestNetwork(t, swapnet.NetworkConfig{Clock: clk, DialTimeout: dialTimeout})

	out := make(chan error, 1)
	go func() {
		_, err := n.NewMessageSender(context.Background(), "remote", swapnet.DefaultMessageSenderConfig())
		out <- err
	}()

	_ = receiveEvent[snevent.DialEvent](t, n)

	var dialErr *swapnet.DialError
	require.ErrorAs(t, sntest.ReceiveSoon(t, out), &dialErr)
	require.Equal(t, swapnet.DialTimeout, dialErr.Kind)
	require.Equal(t, 1, clk.TimersOf(dialTimeout))
}
