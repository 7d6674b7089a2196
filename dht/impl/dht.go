package impl

import (
	"sort"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/fiskp/dhtsim/types"
)

// ID implements dht.DHT.
func (n *node) ID() types.NodeID {
	return n.conf.ID
}

// Join implements dht.DHT. Registering the same id twice is a configuration
// error. With a bootstrap peer the canonical join step follows: a lookup of
// our own id, which populates the buckets via iterative discovery.
func (n *node) Join(bootstrap *types.NodeID) (int, error) {
	if err := n.conf.Network.Register(n); err != nil {
		return 0, err
	}
	if bootstrap == nil {
		return 0, nil
	}

	n.routing.Insert(*bootstrap)
	result := n.Lookup(n.conf.ID)
	return result.Hops, nil
}

// Leave implements dht.DHT.
func (n *node) Leave() {
	n.conf.Network.Unregister(n.conf.ID)
}

// Stabilize implements dht.DHT. Removes peers that are no longer registered
// with the simulator from every bucket.
func (n *node) Stabilize() {
	n.routing.Prune(func(id types.NodeID) bool {
		return n.conf.Network.GetNode(id) != nil
	})
}

// RoutingTableSize implements dht.DHT.
func (n *node) RoutingTableSize() int {
	return n.routing.Size()
}

// Buckets implements dht.DHT.
func (n *node) Buckets() [][]types.NodeID {
	return n.routing.Snapshot()
}

/* ========== handlers (sim.Node) ========== */

// HandleFindNode implements sim.Node. Returns the k closest known peers to
// the requested target, the replying node included as a candidate, and
// refreshes the querier in the routing table.
func (n *node) HandleFindNode(req types.FindNodeRequest) types.FindNodeReply {
	n.routing.Insert(req.From)

	candidates := n.routing.ClosestPeers(req.Target, n.conf.K)
	candidates = append(candidates, n.conf.ID)
	sort.Slice(candidates, func(i, j int) bool {
		return types.Closer(req.Target, candidates[i], candidates[j])
	})
	if len(candidates) > n.conf.K {
		candidates = candidates[:n.conf.K]
	}

	return types.FindNodeReply{RequestID: req.RequestID, Contacts: candidates}
}

// HandleStore implements sim.Node.
func (n *node) HandleStore(req types.StoreRequest) {
	n.store.Set(req.Key, req.Value)
}

// HandleRetrieve implements sim.Node.
func (n *node) HandleRetrieve(req types.RetrieveRequest) types.RetrieveReply {
	val, ok := n.store.Get(req.Key)
	return types.RetrieveReply{Value: val, Found: ok}
}

/* ========== iterative lookup ========== */

// lookup states; one lookup runs INIT -> ROUND* -> DONE and keeps no state
// across calls
type lookupState int

const (
	stateInit lookupState = iota
	stateRound
	stateDone
)

// lookup carries the shortlist, visited set and accounting of one iterative
// search.
type lookup struct {
	n   *node
	key types.NodeID

	state     lookupState
	shortlist []types.NodeID
	queried   *Set
	path      []types.NodeID
	hops      int
	bestDist  types.NodeID
}

// Lookup implements dht.DHT.
func (n *node) Lookup(key types.NodeID) types.LookupResult {
	lk := &lookup{
		n:       n,
		key:     key,
		state:   stateInit,
		queried: NewSet(n.conf.ID),
		path:    []types.NodeID{n.conf.ID},
	}

	lk.seed()
	for lk.state == stateRound {
		lk.round()
	}
	return lk.result()
}

// seed initialises the shortlist from the local routing table. An empty
// table means no progress is possible and the lookup is already done.
func (lk *lookup) seed() {
	lk.shortlist = lk.n.routing.ClosestPeers(lk.key, lk.n.conf.K)
	if len(lk.shortlist) == 0 {
		lk.state = stateDone
		return
	}
	// ClosestPeers sorts ascending, so the first seed is the best known.
	lk.bestDist = lk.shortlist[0].Distance(lk.key)
	if lk.bestDist == 0 {
		// The exact match is already known; no rounds needed.
		lk.state = stateDone
		return
	}
	lk.state = stateRound
}

// round queries up to alpha unqueried shortlist peers and merges their
// replies. The clock is charged exactly once per round, however many peers
// the round fans out to, so hop count and virtual time stay in lockstep.
func (lk *lookup) round() {
	toQuery := pickNUnqueried(lk.shortlist, lk.n.conf.Alpha, lk.queried)
	if len(toQuery) == 0 {
		lk.state = stateDone
		return
	}

	lk.hops++
	lk.n.conf.Network.AdvanceTime()

	prevBest := lk.bestDist
	for _, peer := range toQuery {
		lk.queried.Add(peer)
		lk.path = append(lk.path, peer)

		req := types.FindNodeRequest{
			RequestID: xid.New().String(),
			From:      lk.n.conf.ID,
			Target:    lk.key,
		}
		reply, err := lk.n.conf.Network.SendFindNode(lk.n.conf.ID, peer, req)
		if err != nil {
			// An unreachable peer is dropped from this lookup only, never
			// surfaced as a lookup failure.
			log.Error().Msgf("[Kademlia] FindNode()>: <%s>", err.Error())
			continue
		}

		for _, contact := range reply.Contacts {
			lk.n.routing.Insert(contact)
			if contact == lk.n.conf.ID || containsID(lk.shortlist, contact) {
				continue
			}
			lk.shortlist = append(lk.shortlist, contact)
			if d := contact.Distance(lk.key); d < lk.bestDist {
				lk.bestDist = d
			}
		}
	}

	sort.Slice(lk.shortlist, func(i, j int) bool {
		return types.Closer(lk.key, lk.shortlist[i], lk.shortlist[j])
	})
	if len(lk.shortlist) > lk.n.conf.K {
		lk.shortlist = lk.shortlist[:lk.n.conf.K]
	}

	switch {
	case lk.bestDist == 0:
		// The exact match is in the shortlist; no further rounds needed.
		lk.state = stateDone
	case lk.bestDist >= prevBest:
		// No strictly closer peer discovered this round.
		lk.state = stateDone
	case lk.hops >= lk.n.conf.MaxHops:
		lk.state = stateDone
	}
}

// result produces the immutable record of the finished search. The
// responsible node is the closest known candidate, the initiator included.
func (lk *lookup) result() types.LookupResult {
	responsible := lk.n.conf.ID
	for _, contact := range lk.shortlist {
		if types.Closer(lk.key, contact, responsible) {
			responsible = contact
		}
	}

	return types.LookupResult{
		Key:         lk.key,
		Responsible: responsible,
		Hops:        lk.hops,
		Path:        lk.path,
	}
}

// pickNUnqueried returns at most n not-yet-queried peers. Expects contacts
// sorted in ascending order (by distance).
func pickNUnqueried(contacts []types.NodeID, n int, queried *Set) []types.NodeID {
	toQuery := make([]types.NodeID, 0, n)
	for _, contact := range contacts {
		if queried.Contains(contact) {
			continue
		}
		toQuery = append(toQuery, contact)
		if len(toQuery) == n {
			break
		}
	}
	return toQuery
}

func containsID(ids []types.NodeID, id types.NodeID) bool {
	for _, other := range ids {
		if other == id {
			return true
		}
	}
	return false
}

/* ========== store / retrieve ========== */

// Store implements dht.DHT. Places the value at the node responsible for
// key; false when that node cannot be reached.
func (n *node) Store(key types.NodeID, value []byte) bool {
	result := n.Lookup(key)

	err := n.conf.Network.SendStore(n.conf.ID, result.Responsible, types.StoreRequest{Key: key, Value: value})
	if err != nil {
		log.Error().Msgf("[Kademlia] Store()>: <%s>", err.Error())
		return false
	}
	return true
}

// Retrieve implements dht.DHT. Fetches the value from the node responsible
// for key.
func (n *node) Retrieve(key types.NodeID) ([]byte, bool) {
	result := n.Lookup(key)

	reply, err := n.conf.Network.SendRetrieve(n.conf.ID, result.Responsible, types.RetrieveRequest{Key: key})
	if err != nil {
		log.Error().Msgf("[Kademlia] Retrieve()>: <%s>", err.Error())
		return nil, false
	}
	return reply.Value, reply.Found
}
