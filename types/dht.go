package types

import (
	"fmt"
	"math/bits"
)

// -----------------------------------------------------------------------------
// NodeID

// Distance returns the XOR distance between two ids.
func (id NodeID) Distance(other NodeID) NodeID {
	return id ^ other
}

// String implements fmt.Stringer.
func (id NodeID) String() string {
	return fmt.Sprintf("%#x", uint64(id))
}

// IDMask returns the mask selecting the low idBits bits of an id.
func IDMask(idBits int) NodeID {
	if idBits >= 64 {
		return ^NodeID(0)
	}
	return NodeID(1)<<uint(idBits) - 1
}

// BucketIndex returns the bucket an id at the given distance belongs to:
// the position of the highest set bit of the distance. A zero distance maps
// to bucket 0, but a node never stores itself in its own table.
func BucketIndex(dist NodeID) int {
	if dist == 0 {
		return 0
	}
	return bits.Len64(uint64(dist)) - 1
}

// Closer reports whether a is closer to target than b, breaking distance
// ties by ascending numeric id so orderings stay reproducible across runs.
func Closer(target, a, b NodeID) bool {
	da := a.Distance(target)
	db := b.Distance(target)
	if da != db {
		return da < db
	}
	return a < b
}

// -----------------------------------------------------------------------------
// LookupResult

// Exact reports whether the lookup resolved its key to an exact match.
func (r LookupResult) Exact() bool {
	return r.Responsible == r.Key
}

// Equal reports whether two results describe the same lookup outcome.
func (r LookupResult) Equal(other LookupResult) bool {
	if r.Key != other.Key || r.Responsible != other.Responsible || r.Hops != other.Hops {
		return false
	}
	if len(r.Path) != len(other.Path) {
		return false
	}
	for i := range r.Path {
		if r.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (r LookupResult) String() string {
	return fmt.Sprintf("lookup key=%v responsible=%v hops=%d", r.Key, r.Responsible, r.Hops)
}
