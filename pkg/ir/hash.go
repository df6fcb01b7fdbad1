package ir

import (
	"encoding/binary"

	"github.com/twmb/murmur3"
)

// HashTypeSet computes a structural hash of ts so lookup tables that key
// on "this input signature" (overload indexes, delegate/closure caches)
// can hash instead of doing an O(n) slice comparison on every probe.
// Two equal TypeSets always hash equal; two different TypeSets may
// collide, so callers must still confirm with TypeSet.Equal on a hit.
func HashTypeSet(ts TypeSet) uint64 {
	h := murmur3.New64()
	buf := make([]byte, 8)
	for _, t := range ts {
		binary.LittleEndian.PutUint64(buf, uint64(t))
		h.Write(buf)
	}
	return h.Sum64()
}

// hashDelegateSig hashes a delegate's full signature (input, output,
// action-ness), used by DelegateTable to dedup synthesized delegate
// types.
func hashDelegateSig(input TypeSet, output TypeId, isAction bool) uint64 {
	h := murmur3.New64()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, HashTypeSet(input))
	h.Write(buf)
	binary.LittleEndian.PutUint64(buf, uint64(output))
	h.Write(buf)
	if isAction {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return h.Sum64()
}
