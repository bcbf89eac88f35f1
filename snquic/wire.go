package snquic

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-varint"
)

// The first byte of every stream identifies its purpose.
const (
	streamKindHello   byte = 1
	streamKindMessage byte = 2
	streamKindPing    byte = 3
)

// A message stream is answered with a single status byte.
const (
	statusOK                  byte = 0
	statusUnsupportedProtocol byte = 1
	statusTooLarge            byte = 2
	statusRejected            byte = 3
)

const (
	pingSize = 32

	maxPeerIDLen     = 256
	maxProtocolLen   = 256
	maxHelloProtocol = 32
)

// hello is exchanged once, on the first stream of each connection.
type hello struct {
	Peer      peer.ID
	Protocols []snproto.ProtocolID
}

func (h hello) appendTo(buf []byte) []byte {
	buf = appendString(buf, string(h.Peer))
	buf = append(buf, varint.ToUvarint(uint64(len(h.Protocols)))...)
	for _, p := range h.Protocols {
		buf = appendString(buf, string(p))
	}
	return buf
}

func readHello(r *bufio.Reader) (hello, error) {
	id, err := readString(r, maxPeerIDLen)
	if err != nil {
		return hello{}, fmt.Errorf("failed to read peer ID: %w", err)
	}
	if id == "" {
		return hello{}, errors.New("empty peer ID")
	}

	n, err := varint.ReadUvarint(r)
	if err != nil {
		return hello{}, fmt.Errorf("failed to read protocol count: %w", err)
	}
	if n > maxHelloProtocol {
		return hello{}, fmt.Errorf("too many protocols: %d > %d", n, maxHelloProtocol)
	}

	h := hello{
		Peer:      peer.ID(id),
		Protocols: make([]snproto.ProtocolID, n),
	}
	for i := range h.Protocols {
		p, err := readString(r, maxProtocolLen)
		if err != nil {
			return hello{}, fmt.Errorf("failed to read protocol %d: %w", i, err)
		}
		h.Protocols[i] = snproto.ProtocolID(p)
	}
	return h, nil
}

// appendMessageHeader appends the header of a message stream,
// including the stream kind byte.
// The payload follows directly.
func appendMessageHeader(buf []byte, proto snproto.ProtocolID, size int) []byte {
	buf = append(buf, streamKindMessage)
	buf = appendString(buf, string(proto))
	return append(buf, varint.ToUvarint(uint64(size))...)
}

// readMessageHeader reads the header that follows the stream kind byte.
func readMessageHeader(r *bufio.Reader) (snproto.ProtocolID, uint64, error) {
	p, err := readString(r, maxProtocolLen)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read protocol: %w", err)
	}

	size, err := varint.ReadUvarint(r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read payload size: %w", err)
	}

	return snproto.ProtocolID(p), size, nil
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, varint.ToUvarint(uint64(len(s)))...)
	return append(buf, s...)
}

func readString(r *bufio.Reader, maxLen int) (string, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > uint64(maxLen) {
		return "", fmt.Errorf("length %d exceeds maximum %d", n, maxLen)
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
