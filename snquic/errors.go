package snquic

import "errors"

var (
	// ErrUnknownPeer is returned when dialing a peer with no known address.
	ErrUnknownPeer = errors.New("no address for peer")

	// ErrNoCommonProtocol is returned when the hello exchange
	// finds no protocol supported by both sides.
	ErrNoCommonProtocol = errors.New("no common protocol")

	// ErrUnknownConnection is returned when a send names
	// a connection that is closed or belongs to another peer.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrMessageTooLarge is returned when a message exceeds
	// the local or remote maximum message size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageRejected is returned when the remote could not accept a message,
	// for instance because it is shutting down.
	ErrMessageRejected = errors.New("message rejected by remote")

	// ErrPeerIDMismatch is returned when a peer ID
	// does not match the peer ID derived from the corresponding TLS certificate.
	ErrPeerIDMismatch = errors.New("peer ID does not match certificate")

	// ErrSwarmStopped is returned for operations after the swarm's context is canceled.
	ErrSwarmStopped = errors.New("swarm stopped")
)
