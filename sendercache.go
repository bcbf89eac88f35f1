package swapnet

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/sync/singleflight"
)

// SenderCache keeps a [MessageSender] per destination,
// so that repeated sends to one peer do not pay for a dial each time.
//
// Concurrent requests for a sender to the same peer share a single dial.
// When the cache is full, the least recently used sender is evicted.
// Senders are otherwise never invalidated automatically;
// call [*SenderCache.Discard] after deciding a sender is unusable.
type SenderCache struct {
	n   *Network
	cfg MessageSenderConfig

	senders *lru.Cache[peer.ID, *MessageSender]

	dials singleflight.Group
}

// NewSenderCache returns a cache holding up to size senders,
// each created with cfg.
func NewSenderCache(n *Network, size int, cfg MessageSenderConfig) (*SenderCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message sender configuration: %w", err)
	}

	senders, err := lru.New[peer.ID, *MessageSender](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender cache: %w", err)
	}

	return &SenderCache{
		n:   n,
		cfg: cfg,

		senders: senders,
	}, nil
}

// Sender returns the cached sender for p, creating one if necessary.
//
// When several goroutines request the same uncached peer, they share one dial.
// The shared dial is bounded by the network's dial timeout
// and is not canceled by any single caller's ctx.
// Each caller stops waiting when its own ctx is canceled.
// A failed dial is not cached.
func (c *SenderCache) Sender(ctx context.Context, p peer.ID) (*MessageSender, error) {
	if s, ok := c.senders.Get(p); ok {
		return s, nil
	}

	dialCtx := context.WithoutCancel(ctx)
	ch := c.dials.DoChan(string(p), func() (any, error) {
		// Another caller may have finished a dial
		// between our cache miss and entering DoChan.
		if s, ok := c.senders.Get(p); ok {
			return s, nil
		}

		s, err := c.n.NewMessageSender(dialCtx, p, c.cfg)
		if err != nil {
			return nil, err
		}

		c.senders.Add(p, s)
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf(
			"context canceled while awaiting message sender for %s: %w", p, context.Cause(ctx),
		)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*MessageSender), nil
	}
}

// Discard removes the sender for p, if any,
// so the next call to Sender dials again.
// Discard reports whether a sender was removed.
func (c *SenderCache) Discard(p peer.ID) bool {
	return c.senders.Remove(p)
}

// Len returns the number of cached senders.
func (c *SenderCache) Len() int {
	return c.senders.Len()
}
