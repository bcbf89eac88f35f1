package snquic

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/gordian-engine/swapnet/snproto"
	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/require"
)

func TestHello_roundTrip(t *testing.T) {
	t.Parallel()

	h := hello{
		Peer:      "peer00",
		Protocols: snproto.DefaultProtocols(),
	}

	got, err := readHello(bufio.NewReader(bytes.NewReader(h.appendTo(nil))))
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestReadHello_rejectsOversizedFields(t *testing.T) {
	t.Parallel()

	t.Run("peer ID", func(t *testing.T) {
		t.Parallel()

		buf := appendString(nil, strings.Repeat("x", maxPeerIDLen+1))
		_, err := readHello(bufio.NewReader(bytes.NewReader(buf)))
		require.Error(t, err)
	})

	t.Run("empty peer ID", func(t *testing.T) {
		t.Parallel()

		buf := hello{}.appendTo(nil)
		_, err := readHello(bufio.NewReader(bytes.NewReader(buf)))
		require.Error(t, err)
	})

	t.Run("protocol count", func(t *testing.T) {
		t.Parallel()

		buf := appendString(nil, "peer00")
		buf = append(buf, varint.ToUvarint(maxHelloProtocol+1)...)
		_, err := readHello(bufio.NewReader(bytes.NewReader(buf)))
		require.ErrorContains(t, err, "too many protocols")
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()

		buf := hello{Peer: "peer00", Protocols: snproto.DefaultProtocols()}.appendTo(nil)
		_, err := readHello(bufio.NewReader(bytes.NewReader(buf[:len(buf)-3])))
		require.Error(t, err)
	})
}

func TestMessageHeader(t *testing.T) {
	t.Parallel()

	buf := appendMessageHeader(nil, snproto.ProtocolBitswap, 300)
	require.Equal(t, streamKindMessage, buf[0])

	proto, size, err := readMessageHeader(bufio.NewReader(bytes.NewReader(buf[1:])))
	require.NoError(t, err)
	require.Equal(t, snproto.ProtocolBitswap, proto)
	require.Equal(t, uint64(300), size)
}
