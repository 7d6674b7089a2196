package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fiskp/dhtsim/types"
)

// stubNode answers FIND_NODE with a fixed contact list and remembers the
// last STORE it received.
type stubNode struct {
	id       types.NodeID
	contacts []types.NodeID
	stored   map[types.NodeID][]byte
}

func newStubNode(id types.NodeID, contacts ...types.NodeID) *stubNode {
	return &stubNode{id: id, contacts: contacts, stored: make(map[types.NodeID][]byte)}
}

func (s *stubNode) ID() types.NodeID { return s.id }

func (s *stubNode) HandleFindNode(req types.FindNodeRequest) types.FindNodeReply {
	return types.FindNodeReply{RequestID: req.RequestID, Contacts: s.contacts}
}

func (s *stubNode) HandleStore(req types.StoreRequest) {
	s.stored[req.Key] = req.Value
}

func (s *stubNode) HandleRetrieve(req types.RetrieveRequest) types.RetrieveReply {
	val, ok := s.stored[req.Key]
	return types.RetrieveReply{Value: val, Found: ok}
}

func Test_Network_negative_delay_rejected(t *testing.T) {
	net, err := NewNetwork(-0.5)
	require.Nil(t, net)
	require.True(t, errors.Is(err, ErrNegativeDelay))
}

func Test_Network_clock_advances_by_delay(t *testing.T) {
	net, err := NewNetwork(1.5)
	require.NoError(t, err)
	require.Zero(t, net.CurrentTime())

	net.AdvanceTime()
	net.AdvanceTime()
	net.AdvanceTime()
	require.Equal(t, 4.5, net.CurrentTime())

	net.AdvanceTimeBy(2)
	require.Equal(t, 6.5, net.CurrentTime())
}

func Test_Network_clock_is_monotonic(t *testing.T) {
	net, err := NewNetwork(1)
	require.NoError(t, err)

	net.AdvanceTime()
	net.AdvanceTimeBy(-3)
	require.Equal(t, 1.0, net.CurrentTime())
}

func Test_Network_zero_delay_disables_time(t *testing.T) {
	net, err := NewNetwork(0)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		net.AdvanceTime()
	}
	require.Zero(t, net.CurrentTime())
}

func Test_Network_register_duplicate_rejected(t *testing.T) {
	net, err := NewNetwork(0)
	require.NoError(t, err)

	require.NoError(t, net.Register(newStubNode(7)))
	err = net.Register(newStubNode(7))
	require.True(t, errors.Is(err, ErrDuplicateNode))
	require.Equal(t, 1, net.NodeCount())
}

func Test_Network_registry_lookup(t *testing.T) {
	net, err := NewNetwork(0)
	require.NoError(t, err)

	a := newStubNode(1)
	require.NoError(t, net.Register(a))
	require.Equal(t, Node(a), net.GetNode(1))
	require.Nil(t, net.GetNode(2))

	net.Unregister(1)
	require.Nil(t, net.GetNode(1))
	require.Zero(t, net.NodeCount())

	// unknown id: no-op
	net.Unregister(99)
}

func Test_Network_delivery_and_stats(t *testing.T) {
	net, err := NewNetwork(0)
	require.NoError(t, err)

	a := newStubNode(1, 5, 6)
	require.NoError(t, net.Register(a))

	reply, err := net.SendFindNode(2, 1, types.FindNodeRequest{RequestID: "r", Target: 5})
	require.NoError(t, err)
	require.Equal(t, []types.NodeID{5, 6}, reply.Contacts)

	_, err = net.SendFindNode(2, 42, types.FindNodeRequest{RequestID: "r", Target: 5})
	require.True(t, errors.Is(err, ErrUnknownNode))

	sent, delivered, failed := net.Stats()
	require.Equal(t, uint64(2), sent)
	require.Equal(t, uint64(1), delivered)
	require.Equal(t, uint64(1), failed)

	net.ResetStats()
	sent, delivered, failed = net.Stats()
	require.Zero(t, sent)
	require.Zero(t, delivered)
	require.Zero(t, failed)
}

func Test_Network_store_retrieve_delivery(t *testing.T) {
	net, err := NewNetwork(0)
	require.NoError(t, err)

	a := newStubNode(1)
	require.NoError(t, net.Register(a))

	require.NoError(t, net.SendStore(2, 1, types.StoreRequest{Key: 9, Value: []byte("v")}))

	reply, err := net.SendRetrieve(2, 1, types.RetrieveRequest{Key: 9})
	require.NoError(t, err)
	require.True(t, reply.Found)
	require.Equal(t, []byte("v"), reply.Value)

	reply, err = net.SendRetrieve(2, 1, types.RetrieveRequest{Key: 10})
	require.NoError(t, err)
	require.False(t, reply.Found)

	err = net.SendStore(2, 3, types.StoreRequest{Key: 9, Value: []byte("v")})
	require.True(t, errors.Is(err, ErrUnknownNode))
}

func Test_Network_delivery_never_advances_clock(t *testing.T) {
	net, err := NewNetwork(1)
	require.NoError(t, err)

	require.NoError(t, net.Register(newStubNode(1)))
	_, err = net.SendFindNode(2, 1, types.FindNodeRequest{RequestID: "r"})
	require.NoError(t, err)
	require.Zero(t, net.CurrentTime())
}
