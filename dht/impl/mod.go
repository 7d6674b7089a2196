package impl

import (
	"golang.org/x/xerrors"

	"github.com/fiskp/dhtsim/dht"
	"github.com/fiskp/dhtsim/types"
)

// configuration errors, fatal at setup time
var (
	// ErrNoNetwork rejects a configuration without a simulator.
	ErrNoNetwork = xerrors.New("configuration has no network")

	// ErrBadIDBits rejects an id bit width outside [1, 64].
	ErrBadIDBits = xerrors.New("id bit width out of range")

	// ErrIDOutOfSpace rejects a node id wider than the id space.
	ErrIDOutOfSpace = xerrors.New("node id outside the id space")

	// ErrBadParameter rejects a negative K, Alpha, or MaxHops.
	ErrBadParameter = xerrors.New("protocol parameter must be positive")
)

// NewNode creates a Kademlia node bound to the simulator in conf. The node
// takes part in message routing only once Join has registered it.
func NewNode(conf dht.Configuration) (dht.DHT, error) {
	if conf.Network == nil {
		return nil, xerrors.Errorf("[impl.NewNode]: %w", ErrNoNetwork)
	}
	if conf.IDBits == 0 {
		conf.IDBits = dht.IDBits
	}
	if conf.IDBits < 1 || conf.IDBits > 64 {
		return nil, xerrors.Errorf("[impl.NewNode] idBits=%d: %w", conf.IDBits, ErrBadIDBits)
	}
	if conf.K == 0 {
		conf.K = dht.K
	}
	if conf.Alpha == 0 {
		conf.Alpha = dht.Alpha
	}
	if conf.MaxHops == 0 {
		conf.MaxHops = 2 * conf.IDBits
	}
	if conf.K < 1 || conf.Alpha < 1 || conf.MaxHops < 1 {
		return nil, xerrors.Errorf("[impl.NewNode] k=%d alpha=%d maxHops=%d: %w",
			conf.K, conf.Alpha, conf.MaxHops, ErrBadParameter)
	}
	if conf.ID&types.IDMask(conf.IDBits) != conf.ID {
		return nil, xerrors.Errorf("[impl.NewNode] id=%v idBits=%d: %w", conf.ID, conf.IDBits, ErrIDOutOfSpace)
	}

	n := &node{
		conf:    conf,
		routing: newRoutingTable(conf.ID, conf.IDBits, conf.K),
		store:   SafeValueMap{values: make(map[types.NodeID][]byte)},
	}
	return n, nil
}

// node implements a Kademlia participant of one simulated network
//
// - implements dht.DHT
// - implements sim.Node
type node struct {
	conf    dht.Configuration
	routing *routingTable
	store   SafeValueMap
}
