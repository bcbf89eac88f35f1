package snquic

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// ApplicationErrorCode is used for [Conn.CloseWithError].
type ApplicationErrorCode uint64

// StreamErrorCode is used for [Stream.CancelRead] and [Stream.CancelWrite],
// to inform the peer of why the stream is canceled.
type StreamErrorCode uint64

const (
	closeCodeShutdown         ApplicationErrorCode = 0
	closeCodeBadHello         ApplicationErrorCode = 1
	closeCodeNoCommonProtocol ApplicationErrorCode = 2
	closeCodeWrongPeer        ApplicationErrorCode = 3

	streamCodeCanceled  StreamErrorCode = 1
	streamCodeBadKind   StreamErrorCode = 2
	streamCodeBadHeader StreamErrorCode = 3
	streamCodeRejected  StreamErrorCode = 4
)

// Conn is the subset of a QUIC connection that the swarm uses.
type Conn interface {
	AcceptStream(context.Context) (Stream, error)
	OpenStreamSync(context.Context) (Stream, error)

	CloseWithError(code ApplicationErrorCode, msg string) error

	// Context is canceled when the connection closes.
	Context() context.Context

	RemoteAddr() net.Addr

	// PeerCertificates returns the certificate chain
	// the remote presented during the TLS handshake.
	PeerCertificates() []*x509.Certificate
}

// Stream is a bidirectional QUIC stream.
type Stream interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)

	// Close closes the write side of the stream.
	Close() error

	CancelRead(StreamErrorCode)
	CancelWrite(StreamErrorCode)

	SetDeadline(time.Time) error
}

var _ Conn = ConnAdapter{}

// ConnAdapter wraps a [quic.Connection], implementing the [Conn] interface.
//
// Create an instance with [WrapConn].
type ConnAdapter struct {
	qc quic.Connection
}

// WrapConn wraps the given connection,
// returning a value implementing [Conn].
func WrapConn(qc quic.Connection) ConnAdapter {
	return ConnAdapter{qc: qc}
}

func (c ConnAdapter) AcceptStream(ctx context.Context) (Stream, error) {
	s, err := c.qc.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return StreamAdapter{s: s}, nil
}

func (c ConnAdapter) OpenStreamSync(ctx context.Context) (Stream, error) {
	s, err := c.qc.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return StreamAdapter{s: s}, nil
}

func (c ConnAdapter) CloseWithError(code ApplicationErrorCode, msg string) error {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: application error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	return c.qc.CloseWithError(quic.ApplicationErrorCode(code), msg)
}

func (c ConnAdapter) Context() context.Context { return c.qc.Context() }

func (c ConnAdapter) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }

func (c ConnAdapter) PeerCertificates() []*x509.Certificate {
	return c.qc.ConnectionState().TLS.PeerCertificates
}

// StreamAdapter wraps a [quic.Stream] to satisfy the [Stream] interface.
type StreamAdapter struct {
	s quic.Stream
}

func (a StreamAdapter) Read(p []byte) (int, error)  { return a.s.Read(p) }
func (a StreamAdapter) Write(p []byte) (int, error) { return a.s.Write(p) }
func (a StreamAdapter) Close() error                { return a.s.Close() }

func (a StreamAdapter) CancelRead(code StreamErrorCode) {
	a.s.CancelRead(quic.StreamErrorCode(checkStreamCode(code)))
}

func (a StreamAdapter) CancelWrite(code StreamErrorCode) {
	a.s.CancelWrite(quic.StreamErrorCode(checkStreamCode(code)))
}

func (a StreamAdapter) SetDeadline(t time.Time) error { return a.s.SetDeadline(t) }

func checkStreamCode(code StreamErrorCode) StreamErrorCode {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: stream error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	return code
}

// bindStream applies ctx's deadline to s,
// and cancels both directions of s if ctx is canceled first.
// Call the returned function once s is no longer in use.
func bindStream(ctx context.Context, s Stream) (stop func() bool) {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(dl)
	}
	return context.AfterFunc(ctx, func() {
		s.CancelRead(streamCodeCanceled)
		s.CancelWrite(streamCodeCanceled)
	})
}
