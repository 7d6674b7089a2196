package types

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"sort"
)

// Deterministic id and key generators for reproducible simulations.

// HashKey hashes an arbitrary string key into an idBits-wide id space.
func HashKey(key string, idBits int) NodeID {
	sum := sha1.Sum([]byte(key))
	return NodeID(binary.BigEndian.Uint64(sum[:8])) & IDMask(idBits)
}

// GenerateNodeIDs returns count distinct, well-distributed node ids in
// ascending order. The same seed always yields the same ids.
func GenerateNodeIDs(count, idBits int, seed int64) []NodeID {
	return generate("node", count, idBits, seed)
}

// GenerateKeys returns count distinct deterministic lookup keys.
func GenerateKeys(count, idBits int, seed int64) []NodeID {
	return generate("key", count, idBits, seed)
}

func generate(kind string, count, idBits int, seed int64) []NodeID {
	seen := make(map[NodeID]struct{}, count)
	ids := make([]NodeID, 0, count)

	for i := 0; len(ids) < count; i++ {
		id := HashKey(fmt.Sprintf("%s-%d-%d", kind, seed, i), idBits)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
