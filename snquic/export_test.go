package snquic

import (
	"context"

	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// SendWithProtocol is like SendMessage,
// but it labels the message with proto instead of the negotiated protocol.
func (s *Swarm) SendWithProtocol(
	ctx context.Context, p peer.ID, conn snevent.ConnectionID, proto snproto.ProtocolID, msg snproto.Message,
) error {
	pc, err := s.resolve(ctx, p, conn)
	if err != nil {
		return err
	}
	return s.send(ctx, pc, proto, msg)
}

// ClaimPeerIDForTest changes the peer ID s announces in its hello,
// without changing its certificate.
// It must be called before s dials or accepts any connection.
func (s *Swarm) ClaimPeerIDForTest(id peer.ID) {
	s.selfID = id
}
