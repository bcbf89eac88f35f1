package swapnet

import (
	"context"
	"fmt"

	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// MessageSender sends messages to a single peer
// over the connection established when the sender was created.
//
// The connection and protocol are fixed for the sender's lifetime.
// If the connection goes away, sends fail as transient errors;
// it is up to the caller to discard the sender and create a new one.
// A MessageSender holds no resources of its own,
// so discarding it only means dropping the reference.
type MessageSender struct {
	n *Network

	to  peer.ID
	cfg MessageSenderConfig

	conn     snevent.ConnectionID
	protocol snproto.ProtocolID
}

// NewMessageSender dials to with the network's dial timeout
// and returns a sender bound to the resulting connection.
func (n *Network) NewMessageSender(
	ctx context.Context, to peer.ID, cfg MessageSenderConfig,
) (*MessageSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message sender configuration: %w", err)
	}

	res, err := n.Dial(ctx, to, n.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create message sender: %w", err)
	}

	return &MessageSender{
		n: n,

		to:  to,
		cfg: cfg,

		conn:     res.Conn,
		protocol: res.Protocol,
	}, nil
}

// Peer returns the destination of every message sent through s.
func (s *MessageSender) Peer() peer.ID { return s.to }

// Conn returns the connection chosen by the driver when s was created.
func (s *MessageSender) Conn() snevent.ConnectionID { return s.conn }

// Protocol returns the protocol negotiated when s was created.
func (s *MessageSender) Protocol() snproto.ProtocolID { return s.protocol }

// Config returns the retry configuration of s.
func (s *MessageSender) Config() MessageSenderConfig { return s.cfg }

// SupportsHave reports whether the negotiated protocol
// supports HAVE and DONT_HAVE responses.
// It does not perform any I/O.
func (s *MessageSender) SupportsHave() bool {
	return s.protocol.SupportsHave()
}

// SendMessage delivers msg on the cached connection,
// retrying according to the sender's configuration.
// See [*Network.SendMessageWithRetry] for the possible errors.
func (s *MessageSender) SendMessage(ctx context.Context, msg snproto.Message) error {
	return s.n.SendMessageWithRetry(ctx, s.to, s.conn, msg, s.cfg.RetryConfig())
}
