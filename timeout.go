package swapnet

import "time"

const (
	// ConnectTimeout bounds dials performed implicitly
	// while creating a [MessageSender] or sending a one-off message.
	ConnectTimeout = 5 * time.Second

	MaxSendTimeout = 60 * time.Second
	MinSendTimeout = 2 * time.Second

	// SendLatency is the fixed allowance added to every send timeout.
	SendLatency = time.Second

	// MinSendRate is the slowest bandwidth we tolerate
	// before giving up on a send: 100kbit/s, in bytes per second.
	MinSendRate = (100 * 1000) / 8
)

// Messages at least this large always get MaxSendTimeout.
// Checking this first also keeps the multiplication below from overflowing.
const maxRatedSize = int((MaxSendTimeout - SendLatency) / time.Second * MinSendRate)

// SendTimeout returns the time allowed to send a message of size bytes:
// SendLatency plus one second for every whole MinSendRate bytes,
// clamped to [MinSendTimeout, MaxSendTimeout].
// A trailing partial second of transfer is not counted.
func SendTimeout(size int) time.Duration {
	if size >= maxRatedSize {
		return MaxSendTimeout
	}
	if size < 0 {
		size = 0
	}

	timeout := SendLatency + time.Duration(size/MinSendRate)*time.Second

	return min(max(timeout, MinSendTimeout), MaxSendTimeout)
}
