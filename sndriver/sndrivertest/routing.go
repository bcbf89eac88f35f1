package sndrivertest

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/routing"
)

var _ routing.ContentRouting = (*StaticRouting)(nil)

// StaticRouting is a [routing.ContentRouting] backed by a fixed provider table.
// Calls to Provide are recorded but do not change the table.
type StaticRouting struct {
	mu        sync.Mutex
	providers map[cid.Cid][]peer.ID
	provided  []cid.Cid
}

// NewStaticRouting returns a router that reports providers for each key.
func NewStaticRouting(providers map[cid.Cid][]peer.ID) *StaticRouting {
	return &StaticRouting{providers: providers}
}

func (r *StaticRouting) Provide(_ context.Context, key cid.Cid, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provided = append(r.provided, key)
	return nil
}

func (r *StaticRouting) FindProvidersAsync(ctx context.Context, key cid.Cid, count int) <-chan peer.AddrInfo {
	r.mu.Lock()
	ps := append([]peer.ID(nil), r.providers[key]...)
	r.mu.Unlock()

	if count > 0 && len(ps) > count {
		ps = ps[:count]
	}

	out := make(chan peer.AddrInfo)
	go func() {
		defer close(out)
		for _, p := range ps {
			select {
			case <-ctx.Done():
				return
			case out <- peer.AddrInfo{ID: p}:
				// Okay.
			}
		}
	}()
	return out
}

// Provided returns every key passed to Provide, in call order.
func (r *StaticRouting) Provided() []cid.Cid {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cid.Cid(nil), r.provided...)
}
