package snquic

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/swapnet/snevent"
)

// connIDs allocates connection IDs,
// always handing out the lowest free ID.
// [snevent.NoConnection] is never allocated.
//
// connIDs is not safe for concurrent use.
type connIDs struct {
	used bitset.BitSet
}

func (a *connIDs) Acquire() snevent.ConnectionID {
	id, ok := a.used.NextClear(1)
	if !ok {
		id = max(a.used.Len(), 1)
	}
	a.used.Set(id)
	return snevent.ConnectionID(id)
}

func (a *connIDs) Release(id snevent.ConnectionID) {
	a.used.Clear(uint(id))
}

// InUse returns the number of allocated IDs.
func (a *connIDs) InUse() int {
	return int(a.used.Count())
}
