// Package snquic is a QUIC implementation of the connection layer
// used by the swapnet reference driver.
//
// Every connection starts with a hello stream,
// where both sides state their peer ID and supported protocols.
// Each message is then sent on its own stream,
// and the receiver answers with a single status byte.
package snquic

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/quic-go/quic-go"
	"golang.org/x/sync/singleflight"
)

// ALPN is the application protocol negotiated during the TLS handshake.
const ALPN = "swapnet/1"

const (
	DefaultInboundBuffer  = 64
	DefaultMaxMessageSize = 4 << 20
	DefaultHelloTimeout   = 5 * time.Second
	DefaultDialTimeout    = 10 * time.Second
	DefaultStreamTimeout  = time.Minute
)

// DefaultQUICConfig returns the QUIC configuration used
// when [SwarmConfig.QUIC] is nil.
func DefaultQUICConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout: DefaultHelloTimeout,
		MaxIdleTimeout:       30 * time.Second,
		KeepAlivePeriod:      10 * time.Second,
	}
}

// SwarmConfig is the configuration for [NewSwarm].
type SwarmConfig struct {
	// Required. The swarm does not close the connection.
	UDPConn net.PacketConn

	// Required. Used for both the listening and dialing roles,
	// so it must hold the local certificate,
	// and the trust roots for both servers and clients.
	// The NextProtos field is overwritten.
	TLS *tls.Config

	// Defaults to [DefaultQUICConfig].
	QUIC *quic.Config

	// Supported protocols in order of preference.
	// Defaults to [snproto.DefaultProtocols].
	Protocols []snproto.ProtocolID

	// Capacity of the channel returned by [*Swarm.Inbound].
	InboundBuffer int

	MaxMessageSize int

	// How long an accepted connection may take to send its hello.
	HelloTimeout time.Duration

	// Upper bound on an outbound dial, including the hello exchange.
	// Concurrent dials to one peer share this bound.
	DialTimeout time.Duration

	// Upper bound on the lifetime of an inbound stream.
	StreamTimeout time.Duration
}

func (c SwarmConfig) validate() {
	var panicErrs error

	if c.UDPConn == nil {
		panicErrs = errors.Join(panicErrs, errors.New("SwarmConfig.UDPConn must not be nil"))
	}
	if c.TLS == nil {
		panicErrs = errors.Join(panicErrs, errors.New("SwarmConfig.TLS must not be nil"))
	}
	if c.HelloTimeout < 0 || c.DialTimeout < 0 || c.StreamTimeout < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"SwarmConfig timeouts must not be negative (got HelloTimeout=%s DialTimeout=%s StreamTimeout=%s)",
			c.HelloTimeout, c.DialTimeout, c.StreamTimeout,
		))
	}
	if c.InboundBuffer < 0 || c.MaxMessageSize < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"SwarmConfig sizes must not be negative (got InboundBuffer=%d MaxMessageSize=%d)",
			c.InboundBuffer, c.MaxMessageSize,
		))
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

func (c SwarmConfig) withDefaults() SwarmConfig {
	if c.QUIC == nil {
		c.QUIC = DefaultQUICConfig()
	}
	if len(c.Protocols) == 0 {
		c.Protocols = snproto.DefaultProtocols()
	}
	if c.InboundBuffer == 0 {
		c.InboundBuffer = DefaultInboundBuffer
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.HelloTimeout == 0 {
		c.HelloTimeout = DefaultHelloTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.StreamTimeout == 0 {
		c.StreamTimeout = DefaultStreamTimeout
	}
	return c
}

// InboundMessage is a message received from a remote peer.
type InboundMessage struct {
	Peer     peer.ID
	Conn     snevent.ConnectionID
	Protocol snproto.ProtocolID

	Message snproto.RawMessage
}

// Swarm manages QUIC connections to remote peers.
// It satisfies the sndriver.Swarm interface.
type Swarm struct {
	log *slog.Logger

	selfID peer.ID

	protocols      []snproto.ProtocolID
	maxMessageSize int
	helloTimeout   time.Duration
	dialTimeout    time.Duration
	streamTimeout  time.Duration

	qt       *quic.Transport
	ql       *quic.Listener
	tlsConf  *tls.Config
	quicConf *quic.Config

	inbound chan InboundMessage

	dials singleflight.Group

	mu     sync.Mutex
	closed bool
	addrs  map[peer.ID]net.Addr
	conns  map[snevent.ConnectionID]*peerConn
	byPeer map[peer.ID]*peerConn
	ids    connIDs

	wg   sync.WaitGroup
	done chan struct{}
}

// peerConn is a connection that completed the hello exchange.
type peerConn struct {
	id       snevent.ConnectionID
	peer     peer.ID
	protocol snproto.ProtocolID

	conn Conn
}

// NewSwarm starts listening on cfg.UDPConn.
// selfID must be the peer ID derived from the first certificate in cfg.TLS
// (see [PeerIDFromCert]).
// The swarm runs until ctx is canceled;
// use [*Swarm.Wait] to block until all its goroutines have returned.
//
// Configuration errors cause a panic.
func NewSwarm(ctx context.Context, log *slog.Logger, selfID peer.ID, cfg SwarmConfig) (*Swarm, error) {
	if selfID == "" {
		panic("BUG: NewSwarm requires a non-empty self ID")
	}

	cfg.validate()
	cfg = cfg.withDefaults()

	certID, err := localPeerID(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to derive local peer ID: %w", err)
	}
	if certID != selfID {
		return nil, fmt.Errorf("self ID %s, certificate ID %s: %w", selfID, certID, ErrPeerIDMismatch)
	}

	tlsConf := cfg.TLS.Clone()
	tlsConf.NextProtos = []string{ALPN}

	qt := &quic.Transport{Conn: cfg.UDPConn}
	ql, err := qt.Listen(tlsConf, cfg.QUIC)
	if err != nil {
		return nil, fmt.Errorf("failed to start QUIC listener: %w", err)
	}

	s := &Swarm{
		log: log,

		selfID: selfID,

		protocols:      slices.Clone(cfg.Protocols),
		maxMessageSize: cfg.MaxMessageSize,
		helloTimeout:   cfg.HelloTimeout,
		dialTimeout:    cfg.DialTimeout,
		streamTimeout:  cfg.StreamTimeout,

		qt:       qt,
		ql:       ql,
		tlsConf:  tlsConf,
		quicConf: cfg.QUIC,

		inbound: make(chan InboundMessage, cfg.InboundBuffer),

		addrs:  make(map[peer.ID]net.Addr),
		conns:  make(map[snevent.ConnectionID]*peerConn),
		byPeer: make(map[peer.ID]*peerConn),

		done: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	go s.run(ctx)

	return s, nil
}

// SelfID returns the local peer ID.
func (s *Swarm) SelfID() peer.ID { return s.selfID }

// Addr returns the local listening address.
func (s *Swarm) Addr() net.Addr { return s.ql.Addr() }

// Inbound returns the channel of messages received from remote peers.
// If the channel is full, remote senders wait until their stream times out.
func (s *Swarm) Inbound() <-chan InboundMessage {
	return s.inbound
}

// Wait blocks until the swarm has closed every connection
// and all of its goroutines have returned.
func (s *Swarm) Wait() {
	<-s.done
}

// AddAddr records addr as the address to dial for p,
// replacing any previous address.
func (s *Swarm) AddAddr(p peer.ID, addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrs[p] = addr
}

// NumConns reports the number of established connections.
func (s *Swarm) NumConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.InUse()
}

// Disconnect closes every connection to p
// and returns how many were closed.
// Their connection IDs become available for reuse.
func (s *Swarm) Disconnect(p peer.ID) int {
	s.mu.Lock()
	var conns []*peerConn
	for _, pc := range s.conns {
		if pc.peer == p {
			conns = append(conns, pc)
		}
	}
	s.mu.Unlock()

	for _, pc := range conns {
		_ = pc.conn.CloseWithError(closeCodeShutdown, "disconnect")
		s.unregister(pc)
	}
	return len(conns)
}

func (s *Swarm) run(ctx context.Context) {
	defer close(s.done)

	<-ctx.Done()
	s.log.Info("Stopping due to context cancellation", "cause", context.Cause(ctx))

	if err := s.ql.Close(); err != nil {
		s.log.Debug("Error closing listener", "err", err)
	}

	s.mu.Lock()
	s.closed = true
	conns := make([]*peerConn, 0, len(s.conns))
	for _, pc := range s.conns {
		conns = append(conns, pc)
	}
	s.mu.Unlock()

	for _, pc := range conns {
		_ = pc.conn.CloseWithError(closeCodeShutdown, "shutting down")
	}

	s.wg.Wait()

	if err := s.qt.Close(); err != nil {
		s.log.Debug("Error closing transport", "err", err)
	}
}

func (s *Swarm) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		qc, err := s.ql.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Info("Stopping accept loop", "err", err)
			}
			return
		}

		s.wg.Add(1)
		go s.handleIncoming(ctx, WrapConn(qc))
	}
}

// handleIncoming completes the hello exchange on an accepted connection.
func (s *Swarm) handleIncoming(ctx context.Context, c Conn) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, s.helloTimeout)
	defer cancel()

	st, err := c.AcceptStream(ctx)
	if err != nil {
		s.log.Debug("Failed to accept hello stream", "remote", c.RemoteAddr(), "err", err)
		_ = c.CloseWithError(closeCodeBadHello, "no hello")
		return
	}

	certID, err := remotePeerID(c)
	if err != nil {
		s.log.Debug("Failed to identify remote", "remote", c.RemoteAddr(), "err", err)
		_ = c.CloseWithError(closeCodeWrongPeer, "unidentified certificate")
		return
	}

	remote, err := s.answerHello(ctx, st, certID)
	if errors.Is(err, ErrPeerIDMismatch) {
		s.log.Info("Remote claimed a peer ID not bound to its certificate", "remote", c.RemoteAddr(), "err", err)
		_ = c.CloseWithError(closeCodeWrongPeer, ErrPeerIDMismatch.Error())
		return
	}
	if err != nil {
		s.log.Debug("Hello exchange failed", "remote", c.RemoteAddr(), "err", err)
		_ = c.CloseWithError(closeCodeBadHello, "bad hello")
		return
	}

	// Use the dialer's preference order,
	// so both sides settle on the same protocol.
	proto, ok := snproto.Negotiate(remote.Protocols, s.protocols)
	if !ok {
		s.log.Debug("No common protocol with remote", "peer", remote.Peer, "remote_protocols", remote.Protocols)
		_ = c.CloseWithError(closeCodeNoCommonProtocol, ErrNoCommonProtocol.Error())
		return
	}

	pc, err := s.register(remote.Peer, proto, c)
	if err != nil {
		_ = c.CloseWithError(closeCodeShutdown, "shutting down")
		return
	}

	s.log.Debug("Accepted connection", "peer", pc.peer, "conn", pc.id, "protocol", pc.protocol)
}

// answerHello reads the remote's hello and, if it claims certID, answers with ours.
func (s *Swarm) answerHello(ctx context.Context, st Stream, certID peer.ID) (hello, error) {
	defer bindStream(ctx, st)()

	r := bufio.NewReader(st)
	kind, err := r.ReadByte()
	if err != nil {
		return hello{}, fmt.Errorf("failed to read stream kind: %w", err)
	}
	if kind != streamKindHello {
		st.CancelRead(streamCodeBadKind)
		st.CancelWrite(streamCodeBadKind)
		return hello{}, fmt.Errorf("expected hello stream, got kind %d", kind)
	}

	remote, err := readHello(r)
	if err != nil {
		st.CancelRead(streamCodeBadHeader)
		st.CancelWrite(streamCodeBadHeader)
		return hello{}, err
	}

	if remote.Peer != certID {
		st.CancelRead(streamCodeBadHeader)
		st.CancelWrite(streamCodeBadHeader)
		return hello{}, fmt.Errorf("hello claimed %s, certificate ID %s: %w", remote.Peer, certID, ErrPeerIDMismatch)
	}

	local := hello{Peer: s.selfID, Protocols: s.protocols}
	if _, err := st.Write(local.appendTo(nil)); err != nil {
		return hello{}, fmt.Errorf("failed to write hello: %w", err)
	}
	if err := st.Close(); err != nil {
		return hello{}, fmt.Errorf("failed to close hello stream: %w", err)
	}

	return remote, nil
}

// register records a connection that completed its hello exchange,
// and starts serving its inbound streams.
func (s *Swarm) register(p peer.ID, proto snproto.ProtocolID, c Conn) (*peerConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSwarmStopped
	}

	pc := &peerConn{
		id:       s.ids.Acquire(),
		peer:     p,
		protocol: proto,

		conn: c,
	}
	s.conns[pc.id] = pc

	// The most recent connection is preferred for new sends.
	s.byPeer[p] = pc

	s.wg.Add(1)
	go s.serveConn(pc)

	return pc, nil
}

func (s *Swarm) unregister(pc *peerConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns[pc.id] != pc {
		return
	}

	delete(s.conns, pc.id)
	if s.byPeer[pc.peer] == pc {
		delete(s.byPeer, pc.peer)
	}
	s.ids.Release(pc.id)
}

// serveConn accepts streams on pc until the connection closes.
func (s *Swarm) serveConn(pc *peerConn) {
	defer s.wg.Done()
	defer s.unregister(pc)

	ctx := pc.conn.Context()
	for {
		st, err := pc.conn.AcceptStream(ctx)
		if err != nil {
			s.log.Debug("Connection finished", "peer", pc.peer, "conn", pc.id, "err", err)
			return
		}

		s.wg.Add(1)
		go s.handleStream(ctx, pc, st)
	}
}

func (s *Swarm) handleStream(ctx context.Context, pc *peerConn, st Stream) {
	defer s.wg.Done()

	_ = st.SetDeadline(time.Now().Add(s.streamTimeout))

	r := bufio.NewReader(st)
	kind, err := r.ReadByte()
	if err != nil {
		st.CancelWrite(streamCodeBadKind)
		return
	}

	switch kind {
	case streamKindMessage:
		s.receiveMessage(ctx, pc, r, st)
	case streamKindPing:
		s.answerPing(pc, r, st)
	default:
		s.log.Debug("Unexpected stream kind", "peer", pc.peer, "conn", pc.id, "kind", kind)
		st.CancelRead(streamCodeBadKind)
		st.CancelWrite(streamCodeBadKind)
	}
}

func (s *Swarm) receiveMessage(ctx context.Context, pc *peerConn, r *bufio.Reader, st Stream) {
	proto, size, err := readMessageHeader(r)
	if err != nil {
		s.log.Debug("Bad message header", "peer", pc.peer, "conn", pc.id, "err", err)
		st.CancelRead(streamCodeBadHeader)
		st.CancelWrite(streamCodeBadHeader)
		return
	}

	if size > uint64(s.maxMessageSize) {
		st.CancelRead(streamCodeRejected)
		s.writeStatus(pc, st, statusTooLarge)
		return
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		s.log.Debug("Failed to read message", "peer", pc.peer, "conn", pc.id, "err", err)
		st.CancelWrite(streamCodeBadHeader)
		return
	}

	if !slices.Contains(s.protocols, proto) {
		s.writeStatus(pc, st, statusUnsupportedProtocol)
		return
	}

	status := statusOK
	select {
	case <-ctx.Done():
		status = statusRejected
	case s.inbound <- InboundMessage{
		Peer:     pc.peer,
		Conn:     pc.id,
		Protocol: proto,
		Message:  payload,
	}:
		// Okay.
	}

	s.writeStatus(pc, st, status)
}

func (s *Swarm) writeStatus(pc *peerConn, st Stream, status byte) {
	if _, err := st.Write([]byte{status}); err != nil {
		s.log.Debug("Failed to write message status", "peer", pc.peer, "conn", pc.id, "err", err)
		return
	}
	_ = st.Close()
}

func (s *Swarm) answerPing(pc *peerConn, r *bufio.Reader, st Stream) {
	var buf [pingSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		s.log.Debug("Failed to read ping", "peer", pc.peer, "conn", pc.id, "err", err)
		st.CancelWrite(streamCodeBadHeader)
		return
	}

	if _, err := st.Write(buf[:]); err != nil {
		return
	}
	_ = st.Close()
}

// Dial returns the live connection to p,
// establishing one if necessary.
// Concurrent dials to the same peer share one attempt,
// which canceling ctx does not abort for the other callers.
func (s *Swarm) Dial(ctx context.Context, p peer.ID) (snevent.ConnectionID, snproto.ProtocolID, error) {
	pc, err := s.connection(ctx, p)
	if err != nil {
		return snevent.NoConnection, "", err
	}
	return pc.id, pc.protocol, nil
}

func (s *Swarm) connection(ctx context.Context, p peer.ID) (*peerConn, error) {
	s.mu.Lock()
	pc := s.byPeer[p]
	s.mu.Unlock()

	if pc != nil && pc.conn.Context().Err() == nil {
		return pc, nil
	}

	dialCtx := context.WithoutCancel(ctx)
	ch := s.dials.DoChan(string(p), func() (any, error) {
		ctx, cancel := context.WithTimeout(dialCtx, s.dialTimeout)
		defer cancel()
		return s.dial(ctx, p)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context canceled while dialing %s: %w", p, context.Cause(ctx))
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*peerConn), nil
	}
}

func (s *Swarm) dial(ctx context.Context, p peer.ID) (*peerConn, error) {
	s.mu.Lock()
	addr, ok := s.addrs[p]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dial %s: %w", p, ErrUnknownPeer)
	}

	qc, err := s.qt.Dial(ctx, addr, s.tlsConf, s.quicConf)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s at %s: %w", p, addr, err)
	}
	c := WrapConn(qc)

	certID, err := remotePeerID(c)
	if err != nil {
		_ = c.CloseWithError(closeCodeWrongPeer, "unidentified certificate")
		return nil, fmt.Errorf("failed to identify %s at %s: %w", p, addr, err)
	}
	if certID != p {
		_ = c.CloseWithError(closeCodeWrongPeer, ErrPeerIDMismatch.Error())
		return nil, fmt.Errorf("dialed %s at %s but reached %s: %w", p, addr, certID, ErrPeerIDMismatch)
	}

	remote, err := s.sendHello(ctx, c)
	if err != nil {
		_ = c.CloseWithError(closeCodeBadHello, "hello failed")
		return nil, fmt.Errorf("hello with %s failed: %w", p, err)
	}

	if remote.Peer != p {
		_ = c.CloseWithError(closeCodeWrongPeer, ErrPeerIDMismatch.Error())
		return nil, fmt.Errorf("dialed %s at %s but hello claimed %s: %w", p, addr, remote.Peer, ErrPeerIDMismatch)
	}

	proto, ok := snproto.Negotiate(s.protocols, remote.Protocols)
	if !ok {
		_ = c.CloseWithError(closeCodeNoCommonProtocol, ErrNoCommonProtocol.Error())
		return nil, fmt.Errorf("dial %s: %w", p, ErrNoCommonProtocol)
	}

	pc, err := s.register(p, proto, c)
	if err != nil {
		_ = c.CloseWithError(closeCodeShutdown, "shutting down")
		return nil, err
	}

	s.log.Debug("Dialed connection", "peer", p, "conn", pc.id, "protocol", proto)
	return pc, nil
}

func (s *Swarm) sendHello(ctx context.Context, c Conn) (hello, error) {
	st, err := c.OpenStreamSync(ctx)
	if err != nil {
		return hello{}, fmt.Errorf("failed to open hello stream: %w", err)
	}
	defer bindStream(ctx, st)()

	local := hello{Peer: s.selfID, Protocols: s.protocols}
	buf := local.appendTo([]byte{streamKindHello})
	if _, err := st.Write(buf); err != nil {
		return hello{}, fmt.Errorf("failed to write hello: %w", err)
	}
	if err := st.Close(); err != nil {
		return hello{}, fmt.Errorf("failed to close hello stream: %w", err)
	}

	remote, err := readHello(bufio.NewReader(st))
	if err != nil {
		return hello{}, fmt.Errorf("failed to read hello: %w", err)
	}
	return remote, nil
}

// SendMessage writes msg to p on its own stream and waits for the remote's status.
//
// If conn is [snevent.NoConnection], the live connection to p is used,
// or a new one is dialed.
// Otherwise conn must name a live connection to p.
func (s *Swarm) SendMessage(
	ctx context.Context, p peer.ID, conn snevent.ConnectionID, msg snproto.Message,
) error {
	pc, err := s.resolve(ctx, p, conn)
	if err != nil {
		return err
	}
	return s.send(ctx, pc, pc.protocol, msg)
}

func (s *Swarm) resolve(ctx context.Context, p peer.ID, conn snevent.ConnectionID) (*peerConn, error) {
	if conn == snevent.NoConnection {
		return s.connection(ctx, p)
	}

	s.mu.Lock()
	pc := s.conns[conn]
	s.mu.Unlock()

	if pc == nil || pc.peer != p {
		return nil, fmt.Errorf("connection %s to %s: %w", conn, p, ErrUnknownConnection)
	}
	return pc, nil
}

func (s *Swarm) send(ctx context.Context, pc *peerConn, proto snproto.ProtocolID, msg snproto.Message) error {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if len(payload) > s.maxMessageSize {
		return fmt.Errorf(
			"message of %d bytes exceeds maximum %d: %w",
			len(payload), s.maxMessageSize, ErrMessageTooLarge,
		)
	}

	st, err := pc.conn.OpenStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("failed to open stream to %s: %w", pc.peer, err)
	}
	defer bindStream(ctx, st)()

	buf := appendMessageHeader(nil, proto, len(payload))
	buf = append(buf, payload...)
	_, writeErr := st.Write(buf)
	if writeErr == nil {
		writeErr = st.Close()
	}

	// The remote may stop reading early and still report a status,
	// so a write error only matters if there is no status.
	var status [1]byte
	if _, err := io.ReadFull(st, status[:]); err != nil {
		if writeErr != nil {
			return fmt.Errorf("failed to write message to %s: %w", pc.peer, writeErr)
		}
		return fmt.Errorf("failed to read status from %s: %w", pc.peer, err)
	}

	switch status[0] {
	case statusOK:
		return nil
	case statusUnsupportedProtocol:
		return fmt.Errorf("send to %s with %s: %w", pc.peer, proto, snevent.ErrProtocolNotSupported)
	case statusTooLarge:
		return fmt.Errorf("send to %s: remote refused: %w", pc.peer, ErrMessageTooLarge)
	default:
		return fmt.Errorf("send to %s: %w (status %d)", pc.peer, ErrMessageRejected, status[0])
	}
}

// Ping measures the round trip time of a small echo on a new stream to p.
// The boolean result is false if the peer could not be reached.
func (s *Swarm) Ping(ctx context.Context, p peer.ID) (time.Duration, bool) {
	rtt, err := s.ping(ctx, p)
	if err != nil {
		s.log.Debug("Ping failed", "peer", p, "err", err)
		return 0, false
	}
	return rtt, true
}

func (s *Swarm) ping(ctx context.Context, p peer.ID) (time.Duration, error) {
	pc, err := s.connection(ctx, p)
	if err != nil {
		return 0, err
	}

	var nonce [pingSize]byte
	_, _ = rand.Read(nonce[:])

	st, err := pc.conn.OpenStreamSync(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open ping stream: %w", err)
	}
	defer bindStream(ctx, st)()

	start := time.Now()

	buf := append([]byte{streamKindPing}, nonce[:]...)
	if _, err := st.Write(buf); err != nil {
		return 0, fmt.Errorf("failed to write ping: %w", err)
	}
	if err := st.Close(); err != nil {
		return 0, fmt.Errorf("failed to close ping stream: %w", err)
	}

	var echo [pingSize]byte
	if _, err := io.ReadFull(st, echo[:]); err != nil {
		return 0, fmt.Errorf("failed to read ping echo: %w", err)
	}

	rtt := time.Since(start)

	if !bytes.Equal(nonce[:], echo[:]) {
		return 0, errors.New("ping echo mismatch")
	}
	return rtt, nil
}
