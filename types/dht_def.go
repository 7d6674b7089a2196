package types

// NodeID identifies a node in the DHT's id space. Lookup keys live in the
// same space, so equality and XOR are the only operations distance needs.
type NodeID uint64

// FIND_NODE: ask a peer for its closest known nodes to Target
type FindNodeRequest struct {
	RequestID string
	From      NodeID
	Target    NodeID
}

type FindNodeReply struct {
	RequestID string
	Contacts  []NodeID
}

type StoreRequest struct {
	Key   NodeID
	Value []byte
}

type RetrieveRequest struct {
	Key NodeID
}

type RetrieveReply struct {
	Value []byte
	Found bool
}

// LookupResult records one completed iterative lookup. It is never mutated
// after construction.
type LookupResult struct {
	Key         NodeID
	Responsible NodeID
	Hops        int
	Path        []NodeID
}
