// Package snquictest contains utilities for tests involving [snquic.Swarm].
package snquictest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"testing"

	"github.com/gordian-engine/swapnet/internal/sntest"
	"github.com/gordian-engine/swapnet/snquic"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"
)

// SwarmSet is a collection of swarms on loopback UDP sockets,
// that trust one another's certificates
// and know one another's addresses.
// Each swarm's ID is derived from its certificate.
// No connections exist until a swarm dials another.
type SwarmSet struct {
	IDs    []peer.ID
	Swarms []*snquic.Swarm

	UDPConns []*net.UDPConn
}

// NewSwarmSet starts count swarms.
// If configure is not nil, it is called with each swarm's index and configuration
// before the swarm starts.
//
// The swarms are stopped, and their UDP connections closed,
// as part of [*testing.T.Cleanup].
func NewSwarmSet(
	t *testing.T, count int, configure func(i int, cfg *snquic.SwarmConfig),
) *SwarmSet {
	t.Helper()

	ca, err := GenerateCA()
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(ca.Cert)

	ctx, cancel := context.WithCancel(context.Background())

	ss := &SwarmSet{
		IDs:    make([]peer.ID, count),
		Swarms: make([]*snquic.Swarm, count),

		UDPConns: make([]*net.UDPConn, count),
	}

	t.Cleanup(func() {
		cancel()
		for _, s := range ss.Swarms {
			if s != nil {
				s.Wait()
			}
		}
		for _, uc := range ss.UDPConns {
			if uc != nil {
				uc.Close()
			}
		}
	})

	log := sntest.NewLogger(t)

	for i := range count {
		leaf, err := ca.CreateLeaf(fmt.Sprintf("swarm%02d.example.com", i))
		require.NoError(t, err)

		id, err := snquic.PeerIDFromCert(leaf.Leaf)
		require.NoError(t, err)

		udpConn, err := net.ListenUDP("udp", &net.UDPAddr{
			IP: net.IPv4(127, 0, 0, 1),
		})
		require.NoError(t, err)
		ss.UDPConns[i] = udpConn

		cfg := snquic.SwarmConfig{
			UDPConn: udpConn,
			TLS: &tls.Config{
				Certificates: []tls.Certificate{leaf},

				RootCAs:    pool,
				ClientCAs:  pool,
				ClientAuth: tls.RequireAndVerifyClientCert,
			},
		}
		if configure != nil {
			configure(i, &cfg)
		}

		s, err := snquic.NewSwarm(ctx, log.With("swarm", i), id, cfg)
		require.NoError(t, err)

		ss.IDs[i] = id
		ss.Swarms[i] = s
	}

	for i, s := range ss.Swarms {
		for j, other := range ss.Swarms {
			if i == j {
				continue
			}
			s.AddAddr(ss.IDs[j], other.Addr())
		}
	}

	return ss
}
