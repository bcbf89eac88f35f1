package sndriver_test

import (
	"context"
	"testing"
	"time"

	"github.com/gordian-engine/swapnet"
	"github.com/gordian-engine/swapnet/internal/sntest"
	"github.com/gordian-engine/swapnet/sndriver"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/gordian-engine/swapnet/snquic"
	"github.com/gordian-engine/swapnet/snquic/snquictest"
	"github.com/stretchr/testify/require"
)

func TestDriver_overQUIC(t *testing.T) {
	t.Parallel()

	ss := snquictest.NewSwarmSet(t, 2, func(i int, cfg *snquic.SwarmConfig) {
		if i == 1 {
			cfg.Protocols = []snproto.ProtocolID{snproto.ProtocolBitswapOneOne}
		}
	})

	log := sntest.NewLogger(t)
	n := swapnet.NewNetwork(log.With("sys", "network"), ss.IDs[0], swapnet.NetworkConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	d := sndriver.NewDriver(ctx, log.With("sys", "driver"), n, sndriver.Config{
		Swarm: ss.Swarms[0],
	})
	t.Cleanup(func() {
		cancel()
		d.Wait()
	})

	sc, err := swapnet.NewSenderCache(n, 4, swapnet.MessageSenderConfig{
		MaxRetries:       3,
		SendTimeout:      5 * time.Second,
		SendErrorBackoff: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	s, err := sc.Sender(ctx, ss.IDs[1])
	require.NoError(t, err)
	require.Equal(t, snproto.ProtocolBitswapOneOne, s.Protocol())
	require.False(t, s.SupportsHave())

	require.NoError(t, s.SendMessage(ctx, snproto.RawMessage("wantlist")))

	in := sntest.ReceiveSoon(t, ss.Swarms[1].Inbound())
	require.Equal(t, ss.IDs[0], in.Peer)
	require.Equal(t, snproto.RawMessage("wantlist"), in.Message)

	rtt, err := n.Ping(ctx, ss.IDs[1])
	require.NoError(t, err)
	require.Positive(t, rtt)

	// After the connection goes away, the cached sender fails
	// and a fresh sender from the cache works again.
	require.Equal(t, 1, ss.Swarms[0].Disconnect(ss.IDs[1]))

	err = s.SendMessage(ctx, snproto.RawMessage("stale"))
	var failed *swapnet.SendFailedError
	require.ErrorAs(t, err, &failed)
	require.ErrorIs(t, err, snquic.ErrUnknownConnection)

	require.True(t, sc.Discard(ss.IDs[1]))
	s, err = sc.Sender(ctx, ss.IDs[1])
	require.NoError(t, err)
	require.NoError(t, s.SendMessage(ctx, snproto.RawMessage("fresh")))

	in = sntest.ReceiveSoon(t, ss.Swarms[1].Inbound())
	require.Equal(t, snproto.RawMessage("fresh"), in.Message)
}
