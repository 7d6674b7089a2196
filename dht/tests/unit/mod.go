package unit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fiskp/dhtsim/dht"
	"github.com/fiskp/dhtsim/dht/impl"
	"github.com/fiskp/dhtsim/sim"
	"github.com/fiskp/dhtsim/types"
)

var nodeFac = impl.NewNode

func newTestNetwork(t *testing.T, perHopDelay float64) *sim.Network {
	net, err := sim.NewNetwork(perHopDelay)
	require.NoError(t, err)
	return net
}

// newTestNode creates a node with the given configuration overrides and
// joins it, optionally through a bootstrap peer.
func newTestNode(t *testing.T, net *sim.Network, id types.NodeID, bootstrap *types.NodeID) dht.DHT {
	n, err := nodeFac(dht.Configuration{ID: id, Network: net})
	require.NoError(t, err)
	_, err = n.Join(bootstrap)
	require.NoError(t, err)
	return n
}

func flatten(buckets [][]types.NodeID) []types.NodeID {
	var ids []types.NodeID
	for _, bucket := range buckets {
		ids = append(ids, bucket...)
	}
	return ids
}
