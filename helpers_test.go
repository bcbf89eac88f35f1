package swapnet_test

import (
	"context"
	"sync"
	"testing"

	"github.com/gordian-engine/swapnet"
	"github.com/gordian-engine/swapnet/internal/sntest"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"
)

const selfID = peer.ID("self")

func newTestNetwork(t *testing.T, cfg swapnet.NetworkConfig) *swapnet.Network {
	t.Helper()
	return swapnet.NewNetwork(sntest.NewLogger(t), selfID, cfg)
}

// receiveEvent waits for the next queued event and asserts it is a T.
func receiveEvent[T snevent.OutEvent](t *testing.T, n *swapnet.Network) T {
	t.Helper()

	ev := sntest.ReceiveSoon(t, n.Outbound())
	out, ok := ev.(T)
	require.Truef(t, ok, "expected event of type %T, got %T", out, ev)
	return out
}

// receiveEmit waits for the next queued event and asserts it is
// an EmitEvent carrying a T.
func receiveEmit[T snevent.ExchangeEvent](t *testing.T, n *swapnet.Network) T {
	t.Helper()

	e := receiveEvent[snevent.EmitEvent](t, n)
	out, ok := e.Event.(T)
	require.Truef(t, ok, "expected exchange event of type %T, got %T", out, e.Event)
	return out
}

// sendDriver answers SendMessageEvents in the background,
// using respond to decide each attempt's outcome.
type sendDriver struct {
	mu     sync.Mutex
	events []snevent.SendMessageEvent
}

func runSendDriver(
	t *testing.T, n *swapnet.Network, respond func(attempt int) error,
) *sendDriver {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
	})

	d := new(sendDriver)
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-n.Outbound():
				sm, ok := ev.(snevent.SendMessageEvent)
				if !ok {
					t.Errorf("unexpected event %T", ev)
					continue
				}

				d.mu.Lock()
				attempt := len(d.events)
				d.events = append(d.events, sm)
				d.mu.Unlock()

				sm.Reply.Complete(respond(attempt))
			}
		}
	}()

	return d
}

func (d *sendDriver) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func (d *sendDriver) Events() []snevent.SendMessageEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]snevent.SendMessageEvent(nil), d.events...)
}

func testCID(t *testing.T, data string) cid.Cid {
	t.Helper()

	mh, err := multihash.Sum([]byte(data), multihash.SHA2_256, -1)
	require.NoError(t, err)
	return cid.NewCidV1(cid.Raw, mh)
}
