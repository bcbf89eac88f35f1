// Package snproto contains the protocol identifiers and message abstraction
// that cross the boundary between swapnet and the exchange engine.
//
// swapnet never interprets message contents;
// it only needs a message's encoded size, for timeout calculation,
// and its encoded bytes, for transports that write them to the wire.
package snproto

import (
	"slices"

	"github.com/libp2p/go-libp2p/core/protocol"
)

// ProtocolID is a negotiated block exchange protocol version.
type ProtocolID protocol.ID

const (
	// ProtocolBitswap is the current protocol version,
	// which supports HAVE and DONT_HAVE responses.
	ProtocolBitswap ProtocolID = "/ipfs/bitswap/1.2.0"

	ProtocolBitswapOneOne  ProtocolID = "/ipfs/bitswap/1.1.0"
	ProtocolBitswapOneZero ProtocolID = "/ipfs/bitswap/1.0.0"

	// ProtocolBitswapNoVers is the original, unversioned protocol ID.
	ProtocolBitswapNoVers ProtocolID = "/ipfs/bitswap"
)

// DefaultProtocols returns every known protocol,
// most preferred first.
func DefaultProtocols() []ProtocolID {
	return []ProtocolID{
		ProtocolBitswap,
		ProtocolBitswapOneOne,
		ProtocolBitswapOneZero,
		ProtocolBitswapNoVers,
	}
}

// SupportsHave reports whether peers speaking p
// can respond with HAVE and DONT_HAVE.
func (p ProtocolID) SupportsHave() bool {
	return p == ProtocolBitswap
}

func (p ProtocolID) String() string {
	return string(p)
}

// Negotiate returns the first protocol in local that remote also supports.
// The boolean result is false if there is no protocol in common.
func Negotiate(local, remote []ProtocolID) (ProtocolID, bool) {
	for _, p := range local {
		if slices.Contains(remote, p) {
			return p, true
		}
	}
	return "", false
}
