package snevent

import "errors"

// ErrProtocolNotSupported is reported by the driver
// when the remote peer cannot speak the negotiated protocol.
// It is fatal to a send: retrying cannot change the remote's capabilities.
var ErrProtocolNotSupported = errors.New("protocol not supported")

// ErrReplyDropped is observed by a caller whose reply
// was closed by the driver without a value.
var ErrReplyDropped = errors.New("reply dropped by driver")

// ErrStreamAbandoned is returned from [*ProviderStream.Send]
// when the requester is no longer reading results.
var ErrStreamAbandoned = errors.New("provider stream abandoned by requester")
