// Package sntrace wraps the OpenTelemetry tracing API
// so that the rest of swapnet only references this package.
package sntrace

import (
	"github.com/libp2p/go-libp2p/core/peer"
	otelattr "go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	otpnoop "go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer name swapnet requests from a provider.
const InstrumentationName = "github.com/gordian-engine/swapnet"

type TracerProvider = oteltrace.TracerProvider

type Tracer = oteltrace.Tracer

type Span = oteltrace.Span

type KeyValueAttr = otelattr.KeyValue

// NopTracerProvider returns the otel no-op tracer provider.
// This is intended to use as a fallback when a nil tracer provider is given.
func NopTracerProvider() TracerProvider {
	return otpnoop.NewTracerProvider()
}

// WithAttributes is an alias to [oteltrace.WithAttributes]
// to allow consumers to only reference the sntrace package.
func WithAttributes(attrs ...KeyValueAttr) oteltrace.SpanStartEventOption {
	return oteltrace.WithAttributes(attrs...)
}

// SpanError sets the given span to error status,
// with detail from err.Error().
func SpanError(span Span, err error) {
	span.SetStatus(otelcodes.Error, err.Error())
}

// ErrorAttr returns an attribute with the key "err"
// and the lazily evaluated value of err's Error() method.
func ErrorAttr(err error) KeyValueAttr {
	return otelattr.Stringer("err", errStringer{err: err})
}

type errStringer struct {
	err error
}

func (e errStringer) String() string {
	return e.err.Error()
}

// PeerAttr returns an attribute for the remote peer.
// The peer ID's base58 encoding is only computed if the span is recorded.
func PeerAttr(p peer.ID) KeyValueAttr {
	return otelattr.Stringer("peer", p)
}

// AttemptAttr records a zero-based retry attempt number.
func AttemptAttr(n int) KeyValueAttr {
	return otelattr.Int("swapnet.send.attempt", n)
}

// SizeAttr records the encoded size of a message in bytes.
func SizeAttr(n int) KeyValueAttr {
	return otelattr.Int("swapnet.message.size", n)
}
