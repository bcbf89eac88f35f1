package sntest

import (
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// RandomPayloads returns one pseudorandom payload for each entry in sizes.
// The payloads are derived from the test name,
// so a failing test sees the same data on every run.
func RandomPayloads(t testing.TB, sizes ...int) [][]byte {
	h := fnv.New64a()
	_, _ = h.Write([]byte(t.Name()))
	rng := rand.New(rand.NewPCG(h.Sum64(), uint64(len(sizes))))

	out := make([][]byte, len(sizes))
	for i, sz := range sizes {
		p := make([]byte, sz)
		for j := range p {
			p[j] = byte(rng.Uint32())
		}
		out[i] = p
	}
	return out
}
