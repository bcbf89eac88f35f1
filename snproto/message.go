package snproto

// Message is an encoded block exchange message.
//
// Implementations must be safe for concurrent reads,
// because a retrying send hands the same value to the driver
// once per attempt.
type Message interface {
	// EncodedLen is the size of the message on the wire, in bytes.
	EncodedLen() int

	// MarshalBinary returns the wire encoding of the message.
	MarshalBinary() ([]byte, error)
}

// RawMessage is a Message whose wire encoding is the byte slice itself.
// Transports use it for inbound messages,
// leaving decoding to the exchange engine.
type RawMessage []byte

func (m RawMessage) EncodedLen() int { return len(m) }

func (m RawMessage) MarshalBinary() ([]byte, error) { return m, nil }
