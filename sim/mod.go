// Package sim provides the in-process substrate shared by all nodes of one
// simulated DHT: a registry used for synchronous message delivery and the
// virtual clock that lookups charge per-hop latency to. The simulator never
// advances the clock on its own; time accounting belongs to the algorithm
// under test.
package sim

import (
	"sync"

	"golang.org/x/xerrors"

	"github.com/fiskp/dhtsim/types"
)

// configuration and delivery errors
var (
	// ErrNegativeDelay rejects a negative per-hop delay at construction.
	ErrNegativeDelay = xerrors.New("per-hop delay must be >= 0")

	// ErrDuplicateNode rejects registering two nodes under the same id.
	ErrDuplicateNode = xerrors.New("node id already registered")

	// ErrUnknownNode reports a delivery to an id with no registered node.
	ErrUnknownNode = xerrors.New("no node registered under id")
)

// Node is the handler surface a participant exposes to the simulator.
//
// - implemented by impl.node
type Node interface {
	ID() types.NodeID

	HandleFindNode(req types.FindNodeRequest) types.FindNodeReply

	HandleStore(req types.StoreRequest)

	HandleRetrieve(req types.RetrieveRequest) types.RetrieveReply
}

// Network simulates a network of DHT nodes living in the same process. All
// delivery is synchronous: a query runs the target's handler on the
// caller's goroutine and returns its reply.
//
// Concurrent lookups may share one Network; the clock, registry and
// counters are each guarded so that interleaved AdvanceTime and send calls
// stay consistent.
type Network struct {
	perHopDelay float64

	mu    sync.RWMutex
	clock float64
	nodes map[types.NodeID]Node

	sent      uint64
	delivered uint64
	failed    uint64
}

// NewNetwork returns a simulator charging perHopDelay virtual-time units
// per lookup round. A delay of zero disables time accounting entirely: the
// clock then stays at zero no matter how many lookups run.
func NewNetwork(perHopDelay float64) (*Network, error) {
	if perHopDelay < 0 {
		return nil, xerrors.Errorf("[sim.NewNetwork] perHopDelay=%v: %w", perHopDelay, ErrNegativeDelay)
	}

	return &Network{
		perHopDelay: perHopDelay,
		nodes:       make(map[types.NodeID]Node),
	}, nil
}

// PerHopDelay returns the configured per-hop charge.
func (net *Network) PerHopDelay() float64 {
	return net.perHopDelay
}

// AdvanceTime advances the clock by the configured per-hop delay. Callers
// invoke it exactly once per lookup round, not once per peer contacted.
func (net *Network) AdvanceTime() {
	net.AdvanceTimeBy(net.perHopDelay)
}

// AdvanceTimeBy advances the clock by delta. Negative deltas are ignored;
// the clock is monotonic.
func (net *Network) AdvanceTimeBy(delta float64) {
	if delta < 0 {
		return
	}
	net.mu.Lock()
	net.clock += delta
	net.mu.Unlock()
}

// CurrentTime returns the accumulated virtual time. It never blocks on
// anything but the registry lock.
func (net *Network) CurrentTime() float64 {
	net.mu.RLock()
	defer net.mu.RUnlock()
	return net.clock
}

// Register adds a node to the registry. Registering an id twice is a
// configuration error and the simulation must not proceed.
func (net *Network) Register(node Node) error {
	net.mu.Lock()
	defer net.mu.Unlock()

	if _, ok := net.nodes[node.ID()]; ok {
		return xerrors.Errorf("[sim.Network.Register] id=%v: %w", node.ID(), ErrDuplicateNode)
	}
	net.nodes[node.ID()] = node
	return nil
}

// Unregister removes a node from the registry. Unknown ids are a no-op.
func (net *Network) Unregister(id types.NodeID) {
	net.mu.Lock()
	defer net.mu.Unlock()

	delete(net.nodes, id)
}

// GetNode returns the node registered under id, or nil.
func (net *Network) GetNode(id types.NodeID) Node {
	net.mu.RLock()
	defer net.mu.RUnlock()

	return net.nodes[id]
}

// NodeCount returns the number of registered nodes.
func (net *Network) NodeCount() int {
	net.mu.RLock()
	defer net.mu.RUnlock()

	return len(net.nodes)
}

// SendFindNode delivers a FIND_NODE query to its target and returns the
// reply. Delivery to an unregistered id returns ErrUnknownNode; the caller
// decides what a failed hop means.
func (net *Network) SendFindNode(from, to types.NodeID, req types.FindNodeRequest) (types.FindNodeReply, error) {
	node, err := net.pick(to)
	if err != nil {
		return types.FindNodeReply{}, err
	}
	return node.HandleFindNode(req), nil
}

// SendStore delivers a STORE to its target.
func (net *Network) SendStore(from, to types.NodeID, req types.StoreRequest) error {
	node, err := net.pick(to)
	if err != nil {
		return err
	}
	node.HandleStore(req)
	return nil
}

// SendRetrieve delivers a RETRIEVE to its target and returns the reply.
func (net *Network) SendRetrieve(from, to types.NodeID, req types.RetrieveRequest) (types.RetrieveReply, error) {
	node, err := net.pick(to)
	if err != nil {
		return types.RetrieveReply{}, err
	}
	return node.HandleRetrieve(req), nil
}

func (net *Network) pick(to types.NodeID) (Node, error) {
	net.mu.Lock()
	net.sent++
	node := net.nodes[to]
	if node == nil {
		net.failed++
		net.mu.Unlock()
		return nil, xerrors.Errorf("[sim.Network] id=%v: %w", to, ErrUnknownNode)
	}
	net.delivered++
	net.mu.Unlock()
	return node, nil
}

// Stats returns the number of queries sent, delivered, and failed since the
// last reset.
func (net *Network) Stats() (sent, delivered, failed uint64) {
	net.mu.RLock()
	defer net.mu.RUnlock()
	return net.sent, net.delivered, net.failed
}

// ResetStats zeroes the delivery counters.
func (net *Network) ResetStats() {
	net.mu.Lock()
	net.sent, net.delivered, net.failed = 0, 0, 0
	net.mu.Unlock()
}
