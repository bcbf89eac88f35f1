// Package sndrivertest contains in-memory implementations
// of the dependencies of [sndriver.Driver], for use in tests.
package sndrivertest

import (
	"context"
	"sync"
	"time"

	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Sent is a message recorded by [*Swarm.SendMessage].
type Sent struct {
	Peer    peer.ID
	Conn    snevent.ConnectionID
	Message snproto.Message
}

// Swarm is a scripted [sndriver.Swarm].
//
// Each hook may be nil, in which case the operation succeeds:
// dials return a new connection speaking [snproto.ProtocolBitswap],
// sends are recorded, and pings report a one millisecond round trip.
// Set the hooks before handing the Swarm to a driver.
type Swarm struct {
	DialHook func(ctx context.Context, p peer.ID) (snevent.ConnectionID, snproto.ProtocolID, error)

	// SendHook is called with the zero-based attempt number
	// across every send the swarm has seen.
	SendHook func(ctx context.Context, attempt int, p peer.ID, conn snevent.ConnectionID) error

	PingHook func(ctx context.Context, p peer.ID) (time.Duration, bool)

	mu       sync.Mutex
	lastConn snevent.ConnectionID
	dials    int
	attempts int
	sent     []Sent
}

func (s *Swarm) Dial(ctx context.Context, p peer.ID) (snevent.ConnectionID, snproto.ProtocolID, error) {
	s.mu.Lock()
	s.dials++
	s.mu.Unlock()

	if s.DialHook != nil {
		return s.DialHook(ctx, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastConn++
	return s.lastConn, snproto.ProtocolBitswap, nil
}

func (s *Swarm) SendMessage(
	ctx context.Context, p peer.ID, conn snevent.ConnectionID, msg snproto.Message,
) error {
	s.mu.Lock()
	attempt := s.attempts
	s.attempts++
	s.mu.Unlock()

	if s.SendHook != nil {
		if err := s.SendHook(ctx, attempt, p, conn); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Sent{Peer: p, Conn: conn, Message: msg})
	return nil
}

func (s *Swarm) Ping(ctx context.Context, p peer.ID) (time.Duration, bool) {
	if s.PingHook != nil {
		return s.PingHook(ctx, p)
	}
	return time.Millisecond, true
}

// Dials returns the number of Dial calls so far.
func (s *Swarm) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Attempts returns the number of SendMessage calls so far,
// successful or not.
func (s *Swarm) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Sent returns a copy of every successfully sent message.
func (s *Swarm) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}
