package dht

import (
	"github.com/fiskp/dhtsim/sim"
	"github.com/fiskp/dhtsim/types"
)

// DHT is implemented by every node participating in a simulated network.
type DHT interface {
	// ID returns the node's identifier.
	ID() types.NodeID

	// Join registers the node with its simulator. When a bootstrap id is
	// given it seeds the routing table and populates it with an iterative
	// lookup of the node's own id. Returns the hop cost of joining.
	Join(bootstrap *types.NodeID) (int, error)

	// Leave removes the node from the simulator's registry.
	Leave()

	// Lookup finds the node responsible for key: the closest known node by
	// XOR distance once the iterative search converges. A lookup cannot
	// fail; a result whose responsible node is not an exact match is a
	// valid, expected outcome.
	Lookup(key types.NodeID) types.LookupResult

	// Store places a value at the node responsible for key.
	Store(key types.NodeID, value []byte) bool

	// Retrieve fetches the value stored under key, if any.
	Retrieve(key types.NodeID) ([]byte, bool)

	// Stabilize runs one round of routing-table maintenance, pruning peers
	// that have left the network.
	Stabilize()

	// RoutingTableSize returns the number of distinct peers known.
	RoutingTableSize() int

	// Buckets returns a snapshot of every k-bucket, most-recently seen
	// peers first, for structural introspection.
	Buckets() [][]types.NodeID
}

// max number of contacts stored in one k-bucket
const K = 8

// degree of parallelism for queries made during one lookup round
const Alpha = 3

// default width of the id space in bits
const IDBits = 16

// Configuration gathers everything a node factory needs. Zero-value fields
// take the package defaults; MaxHops defaults to 2*IDBits.
type Configuration struct {
	ID      types.NodeID
	Network *sim.Network

	IDBits  int
	K       int
	Alpha   int
	MaxHops int
}
