package swapnet_test

import (
	"math"
	"testing"
	"time"

	"github.com/gordian-engine/swapnet"
	"github.com/stretchr/testify/require"
)

func TestSendTimeout_bounds(t *testing.T) {
	t.Parallel()

	require.Equal(t, swapnet.MinSendTimeout, swapnet.SendTimeout(0))
	require.Equal(t, swapnet.MinSendTimeout, swapnet.SendTimeout(-1))
	require.Equal(t, swapnet.MinSendTimeout, swapnet.SendTimeout(swapnet.MinSendRate))

	require.Equal(t, swapnet.MaxSendTimeout, swapnet.SendTimeout(100*1024*1024))
	require.Equal(t, swapnet.MaxSendTimeout, swapnet.SendTimeout(math.MaxInt))
}

func TestSendTimeout_bandwidth(t *testing.T) {
	t.Parallel()

	// Ten seconds of transfer at the minimum rate, plus the fixed latency.
	require.Equal(t, 11*time.Second, swapnet.SendTimeout(10*swapnet.MinSendRate))

	// Only whole seconds of transfer count.
	require.Equal(t, 3*time.Second, swapnet.SendTimeout(2*swapnet.MinSendRate+swapnet.MinSendRate/2))
	require.Equal(t, 3*time.Second, swapnet.SendTimeout(3*swapnet.MinSendRate-1))
	require.Equal(t, 4*time.Second, swapnet.SendTimeout(3*swapnet.MinSendRate))

	// One byte short of the cap still rounds down below it.
	require.Equal(t, swapnet.MaxSendTimeout-time.Second, swapnet.SendTimeout(59*swapnet.MinSendRate-1))
}

func TestSendTimeout_monotonic(t *testing.T) {
	t.Parallel()

	prev := swapnet.SendTimeout(0)
	for size := 0; size <= 60*swapnet.MinSendRate; size += 997 {
		cur := swapnet.SendTimeout(size)
		require.GreaterOrEqualf(t, cur, prev, "timeout decreased at size %d", size)
		require.GreaterOrEqual(t, cur, swapnet.MinSendTimeout)
		require.LessOrEqual(t, cur, swapnet.MaxSendTimeout)
		prev = cur
	}
}
