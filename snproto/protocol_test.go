package snproto_test

import (
	"testing"

	"github.com/gordian-engine/swapnet/snproto"
	"github.com/stretchr/testify/require"
)

func TestProtocolID_SupportsHave(t *testing.T) {
	t.Parallel()

	require.True(t, snproto.ProtocolBitswap.SupportsHave())

	require.False(t, snproto.ProtocolBitswapOneOne.SupportsHave())
	require.False(t, snproto.ProtocolBitswapOneZero.SupportsHave())
	require.False(t, snproto.ProtocolBitswapNoVers.SupportsHave())
}

func TestNegotiate(t *testing.T) {
	t.Parallel()

	t.Run("local preference wins", func(t *testing.T) {
		t.Parallel()

		p, ok := snproto.Negotiate(
			snproto.DefaultProtocols(),
			[]snproto.ProtocolID{snproto.ProtocolBitswapOneZero, snproto.ProtocolBitswap},
		)
		require.True(t, ok)
		require.Equal(t, snproto.ProtocolBitswap, p)
	})

	t.Run("falls back to older version", func(t *testing.T) {
		t.Parallel()

		p, ok := snproto.Negotiate(
			snproto.DefaultProtocols(),
			[]snproto.ProtocolID{snproto.ProtocolBitswapOneOne},
		)
		require.True(t, ok)
		require.Equal(t, snproto.ProtocolBitswapOneOne, p)
		require.False(t, p.SupportsHave())
	})

	t.Run("no common protocol", func(t *testing.T) {
		t.Parallel()

		_, ok := snproto.Negotiate(
			snproto.DefaultProtocols(),
			[]snproto.ProtocolID{"/other/1.0.0"},
		)
		require.False(t, ok)
	})
}

func TestRawMessage(t *testing.T) {
	t.Parallel()

	m := snproto.RawMessage("hello")
	require.Equal(t, 5, m.EncodedLen())

	b, err := m.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), b)
}
