package impl

import (
	"container/list"
	"sort"
	"sync"

	"github.com/fiskp/dhtsim/types"
)

/* ========== KBucket ========== */

// KBucket holds up to k peers at one XOR-distance class from the owner,
// most-recently seen at the front.
type KBucket struct {
	sync.Mutex
	k        int
	contacts list.List
}

// Insert adds a peer by the least-recently seen eviction policy described
// in the Kademlia paper: refreshing a known peer moves it to the front, and
// a full bucket drops the stalest entry at the back to make room.
func (bucket *KBucket) Insert(id types.NodeID) {
	bucket.Lock()
	defer bucket.Unlock()

	for elem := bucket.contacts.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(types.NodeID) == id {
			bucket.contacts.MoveToFront(elem)
			return
		}
	}
	if bucket.contacts.Len() >= bucket.k {
		bucket.contacts.Remove(bucket.contacts.Back())
	}
	bucket.contacts.PushFront(id)
}

// Prune drops every peer the keep predicate rejects.
func (bucket *KBucket) Prune(keep func(types.NodeID) bool) {
	bucket.Lock()
	defer bucket.Unlock()

	elem := bucket.contacts.Front()
	for elem != nil {
		next := elem.Next()
		if !keep(elem.Value.(types.NodeID)) {
			bucket.contacts.Remove(elem)
		}
		elem = next
	}
}

// Contacts returns the bucket contents as a slice, most-recently seen first
// (needed because contacts are stored in a list).
func (bucket *KBucket) Contacts() []types.NodeID {
	bucket.Lock()
	defer bucket.Unlock()

	contacts := make([]types.NodeID, 0, bucket.contacts.Len())
	for elem := bucket.contacts.Front(); elem != nil; elem = elem.Next() {
		contacts = append(contacts, elem.Value.(types.NodeID))
	}
	return contacts
}

// Len returns the number of peers in the bucket.
func (bucket *KBucket) Len() int {
	bucket.Lock()
	defer bucket.Unlock()

	return bucket.contacts.Len()
}

/* ========== routingTable ========== */

// routingTable partitions the owner's known peers into one bucket per bit
// of the id space. It is owned by exactly one node and reachable only
// through it.
type routingTable struct {
	owner   types.NodeID
	buckets []KBucket
}

func newRoutingTable(owner types.NodeID, idBits, k int) *routingTable {
	rt := &routingTable{
		owner:   owner,
		buckets: make([]KBucket, idBits),
	}
	for i := range rt.buckets {
		rt.buckets[i].k = k
	}
	return rt
}

// Insert records a freshly seen peer in the bucket matching its distance
// class. Inserting the owner itself is silently ignored.
func (rt *routingTable) Insert(peer types.NodeID) {
	if peer == rt.owner {
		return
	}
	rt.buckets[types.BucketIndex(peer.Distance(rt.owner))].Insert(peer)
}

// ClosestPeers returns up to count known peers ordered by ascending XOR
// distance to target, ties broken by ascending id. It scans every bucket:
// when the table is sparse, neighbouring distance classes routinely hold
// closer peers than the single bucket matching the target.
func (rt *routingTable) ClosestPeers(target types.NodeID, count int) []types.NodeID {
	peers := make([]types.NodeID, 0, count)
	for i := range rt.buckets {
		peers = append(peers, rt.buckets[i].Contacts()...)
	}

	sort.Slice(peers, func(i, j int) bool {
		return types.Closer(target, peers[i], peers[j])
	})

	if count > len(peers) || count < 0 {
		count = len(peers)
	}
	return peers[:count]
}

// Prune applies keep to every bucket.
func (rt *routingTable) Prune(keep func(types.NodeID) bool) {
	for i := range rt.buckets {
		rt.buckets[i].Prune(keep)
	}
}

// Size returns the number of distinct peers across all buckets.
func (rt *routingTable) Size() int {
	size := 0
	for i := range rt.buckets {
		size += rt.buckets[i].Len()
	}
	return size
}

// Snapshot returns the contents of every bucket in distance-class order.
func (rt *routingTable) Snapshot() [][]types.NodeID {
	buckets := make([][]types.NodeID, len(rt.buckets))
	for i := range rt.buckets {
		buckets[i] = rt.buckets[i].Contacts()
	}
	return buckets
}

/* ========== Set ========== */

// Set tracks the node ids already visited during one lookup. A lookup runs
// on a single goroutine, so no locking is needed here.
type Set struct {
	ids map[types.NodeID]struct{}
}

func NewSet(ids ...types.NodeID) *Set {
	set := &Set{ids: make(map[types.NodeID]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

func (s *Set) Add(id types.NodeID) {
	s.ids[id] = struct{}{}
}

func (s *Set) Contains(id types.NodeID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	return len(s.ids)
}

/* ========== SafeValueMap ========== */

// SafeValueMap is a thread-safe map of key id -> stored value, the node's
// slice of the DHT's data.
type SafeValueMap struct {
	sync.Mutex
	values map[types.NodeID][]byte
}

func (m *SafeValueMap) Set(key types.NodeID, val []byte) {
	m.Lock()
	defer m.Unlock()

	m.values[key] = val
}

func (m *SafeValueMap) Get(key types.NodeID) ([]byte, bool) {
	m.Lock()
	defer m.Unlock()

	val, ok := m.values[key]
	return val, ok
}
