package impl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fiskp/dhtsim/types"
)

func Test_KBucket_insert_orders_most_recent_first(t *testing.T) {
	bucket := KBucket{k: 4}

	bucket.Insert(1)
	bucket.Insert(2)
	bucket.Insert(3)
	require.Equal(t, []types.NodeID{3, 2, 1}, bucket.Contacts())
}

func Test_KBucket_refresh_moves_to_front(t *testing.T) {
	bucket := KBucket{k: 4}

	bucket.Insert(1)
	bucket.Insert(2)
	bucket.Insert(3)
	bucket.Insert(1)
	require.Equal(t, []types.NodeID{1, 3, 2}, bucket.Contacts())
	require.Equal(t, 3, bucket.Len())
}

func Test_KBucket_full_evicts_least_recently_seen(t *testing.T) {
	bucket := KBucket{k: 2}

	bucket.Insert(1)
	bucket.Insert(2)
	bucket.Insert(3)
	require.Equal(t, []types.NodeID{3, 2}, bucket.Contacts())

	// refreshing 2 keeps it, then 4 evicts 3
	bucket.Insert(2)
	bucket.Insert(4)
	require.Equal(t, []types.NodeID{4, 2}, bucket.Contacts())
}

func Test_KBucket_prune(t *testing.T) {
	bucket := KBucket{k: 4}
	bucket.Insert(1)
	bucket.Insert(2)
	bucket.Insert(3)

	bucket.Prune(func(id types.NodeID) bool { return id != 2 })
	require.Equal(t, []types.NodeID{3, 1}, bucket.Contacts())
}

func Test_routingTable_never_stores_owner(t *testing.T) {
	rt := newRoutingTable(5, 16, 4)

	rt.Insert(5)
	require.Zero(t, rt.Size())

	rt.Insert(6)
	require.Equal(t, 1, rt.Size())
}

func Test_routingTable_bucket_placement(t *testing.T) {
	rt := newRoutingTable(0, 16, 4)

	// distance to owner 0 is the id itself, so the bucket index is the
	// position of the peer's highest set bit
	rt.Insert(1)      // bucket 0
	rt.Insert(0b0110) // bucket 2
	rt.Insert(0b0111) // bucket 2
	rt.Insert(0x8000) // bucket 15

	snapshot := rt.Snapshot()
	require.Len(t, snapshot, 16)
	require.Equal(t, []types.NodeID{1}, snapshot[0])
	require.Equal(t, []types.NodeID{0b0111, 0b0110}, snapshot[2])
	require.Equal(t, []types.NodeID{0x8000}, snapshot[15])
}

func Test_routingTable_closest_scans_across_buckets(t *testing.T) {
	rt := newRoutingTable(0, 16, 4)

	rt.Insert(1)      // bucket 0, distance 1 to target 0
	rt.Insert(0b0100) // bucket 2
	rt.Insert(0b1000) // bucket 3
	rt.Insert(0xf000) // bucket 15

	closest := rt.ClosestPeers(0, 3)
	require.Equal(t, []types.NodeID{1, 0b0100, 0b1000}, closest)

	// asking for more than exists returns all that exist, closest first
	all := rt.ClosestPeers(0, 100)
	require.Equal(t, []types.NodeID{1, 0b0100, 0b1000, 0xf000}, all)
}

func Test_routingTable_closest_ordering_is_by_target_distance(t *testing.T) {
	rt := newRoutingTable(0, 16, 8)

	rt.Insert(0b0001)
	rt.Insert(0b0010)
	rt.Insert(0b1100)

	// target 0b0011: distances are 2, 1, 15
	require.Equal(t, []types.NodeID{0b0010, 0b0001, 0b1100}, rt.ClosestPeers(0b0011, 3))
}

func Test_routingTable_empty_closest_is_empty(t *testing.T) {
	rt := newRoutingTable(0, 16, 4)
	require.Empty(t, rt.ClosestPeers(42, 5))
}

func Test_Set_visited_tracking(t *testing.T) {
	set := NewSet(1)

	require.True(t, set.Contains(1))
	require.False(t, set.Contains(2))

	set.Add(2)
	set.Add(2)
	require.True(t, set.Contains(2))
	require.Equal(t, 2, set.Len())
}
