package integration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fiskp/dhtsim/dht"
	"github.com/fiskp/dhtsim/dht/impl"
	"github.com/fiskp/dhtsim/sim"
	"github.com/fiskp/dhtsim/types"
)

const (
	idBits     = dht.IDBits
	lookupsPer = 200

	// O(log N) bound: meanLatency <= latencyCoef * log2(N) * perHopDelay
	latencyCoef = 2.5

	// seeds for reproducible topologies and workloads
	nodeSeed = 42
	keySeed  = 123
)

var nodeFac = impl.NewNode

// buildNetwork creates a stabilized DHT of n nodes: sequential joins
// through the first node as bootstrap, then enough stabilization rounds for
// the routing tables to settle.
func buildNetwork(t *testing.T, n int, perHopDelay float64) (*sim.Network, []dht.DHT) {
	return buildNetworkConf(t, n, perHopDelay, dht.Configuration{})
}

// buildNetworkConf is buildNetwork with per-node configuration overrides
// (everything but ID and Network, which the builder owns).
func buildNetworkConf(t *testing.T, n int, perHopDelay float64, conf dht.Configuration) (*sim.Network, []dht.DHT) {
	net, err := sim.NewNetwork(perHopDelay)
	require.NoError(t, err)

	ids := types.GenerateNodeIDs(n, idBits, nodeSeed)
	nodes := make([]dht.DHT, 0, n)

	for _, id := range ids {
		conf.ID = id
		conf.Network = net
		node, err := nodeFac(conf)
		require.NoError(t, err)

		var bootstrap *types.NodeID
		if len(nodes) > 0 {
			first := nodes[0].ID()
			bootstrap = &first
		}
		_, err = node.Join(bootstrap)
		require.NoError(t, err)
		nodes = append(nodes, node)
	}

	rounds := 3 * n
	if rounds < 30 {
		rounds = 30
	}
	for i := 0; i < rounds; i++ {
		for _, node := range nodes {
			node.Stabilize()
		}
	}

	return net, nodes
}

// groundTruth returns the correct responsible node for key: the closest of
// all ids by XOR distance.
func groundTruth(key types.NodeID, ids []types.NodeID) types.NodeID {
	best := ids[0]
	for _, id := range ids[1:] {
		if types.Closer(key, id, best) {
			best = id
		}
	}
	return best
}

// initiator deterministically spreads lookups across the nodes.
func initiator(nodes []dht.DHT, key types.NodeID) dht.DHT {
	return nodes[int(key)%len(nodes)]
}

func meanFloat(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func meanInt(vals []int) float64 {
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}
