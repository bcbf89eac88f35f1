package swapnet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gordian-engine/swapnet"
	"github.com/gordian-engine/swapnet/internal/sntest"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snmetrics"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewNetwork_panics(t *testing.T) {
	t.Parallel()

	log := sntest.NewLogger(t)

	require.Panics(t, func() {
		_ = swapnet.NewNetwork(log, "", swapnet.NetworkConfig{})
	})

	require.Panics(t, func() {
		_ = swapnet.NewNetwork(log, selfID, swapnet.NetworkConfig{
			QueueCapacity: -1,
			DialTimeout:   -time.Second,
		})
	})
}

func TestNetwork_SelfID(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})
	require.Equal(t, selfID, n.SelfID())
}

func TestNetwork_Poll_fifo(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	_, ok := n.Poll()
	require.False(t, ok)

	a, b := testCID(t, "a"), testCID(t, "b")
	require.NoError(t, n.Provide(a))
	require.NoError(t, n.Provide(b))
	require.Equal(t, 2, n.QueueLen())

	ev, ok := n.Poll()
	require.True(t, ok)
	require.Equal(t, a, ev.(snevent.EmitEvent).Event.(snevent.ProvideEvent).Key)

	ev, ok = n.Poll()
	require.True(t, ok)
	require.Equal(t, b, ev.(snevent.EmitEvent).Event.(snevent.ProvideEvent).Key)

	_, ok = n.Poll()
	require.False(t, ok)
	require.Zero(t, n.QueueLen())
}

func TestNetwork_queueFull_synchronous(t *testing.T) {
	t.Parallel()

	const capacity = 4

	m := snmetrics.New(nil)
	n := newTestNetwork(t, swapnet.NetworkConfig{
		QueueCapacity: capacity,
		Metrics:       m,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fill the queue with dials that nobody answers.
	var wg sync.WaitGroup
	for i := range capacity {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = n.Dial(ctx, peer.ID(rune('a'+i)), time.Minute)
		}()
	}
	require.Eventually(t, func() bool {
		return n.QueueLen() == capacity
	}, time.Second, 5*time.Millisecond)

	start := time.Now()
	_, err := n.Dial(ctx, "overflow", time.Minute)
	require.Less(t, time.Since(start), 50*time.Millisecond)

	var dialErr *swapnet.DialError
	require.ErrorAs(t, err, &dialErr)
	require.Equal(t, swapnet.DialQueueFull, dialErr.Kind)
	require.ErrorIs(t, err, swapnet.ErrQueueFull)

	require.Equal(t, float64(capacity), testutil.ToFloat64(m.Enqueued.WithLabelValues("dial")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.QueueFull.WithLabelValues("dial")))

	// Every kind of request fails the same way.
	require.ErrorIs(t, n.Provide(testCID(t, "x")), swapnet.ErrQueueFull)
	_, err = n.Ping(ctx, "p")
	require.ErrorIs(t, err, swapnet.ErrQueueFull)
	_, err = n.FindProviders(ctx, testCID(t, "x"))
	require.ErrorIs(t, err, swapnet.ErrQueueFull)

	cancel()
	wg.Wait()
}

func TestNetwork_Stop(t *testing.T) {
	t.Parallel()

	n := newTestNetwork(t, swapnet.NetworkConfig{})

	require.NoError(t, n.Provide(testCID(t, "before")))

	n.Stop()
	n.Stop() // Idempotent.

	err := n.Provide(testCID(t, "after"))
	require.ErrorIs(t, err, swapnet.ErrNetworkStopped)
	require.False(t, errors.Is(err, swapnet.ErrQueueFull))

	_, err = n.Dial(context.Background(), "p", time.Second)
	require.ErrorIs(t, err, swapnet.ErrNetworkStopped)

	err = n.SendMessageWithRetry(
		context.Background(), "p", snevent.NoConnection,
		snproto.RawMessage("hi"), swapnet.RetryConfig{MaxRetries: 1, OverallTimeout: time.Second},
	)
	require.ErrorIs(t, err, swapnet.ErrNetworkStopped)

	// The request queued before Stop is still delivered to the driver.
	_ = receiveEmit[snevent.ProvideEvent](t, n)
	sntest.NotSending(t, n.Outbound())
}
