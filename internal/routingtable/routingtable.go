// Package routingtable holds one node's view of the ring: its predecessor,
// its successor list, and its finger table.
package routingtable

import (
	"sync"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
)

// RoutingTable is the routing state a Chord node maintains about the rest
// of the ring: one predecessor, a finger table of M entries (one per bit of
// the identifier space, fingers[0] doubling as the immediate successor),
// and a backup successor list of R+1 slots. Every mutation goes through a
// single mutex (spec.md §5: "every write to fingers[*], predecessor, or
// successors[*] occurs under a single per-node mutex"); reads take the same
// lock for simplicity rather than trying to lock-free the common path.
//
// The successor list is sized succListSize+1; index succListSize is a
// sentinel slot that is never written by shiftSuccessors directly, so its
// read by a shift that has walked all the way up the list is always
// defined rather than out-of-bounds (spec.md §9's open question about
// shiftSuccessors indexing).
type RoutingTable struct {
	mu sync.Mutex

	logger       logger.Logger
	space        ring.Space
	self         *domain.Node
	predecessor  *domain.Node
	fingers      []*domain.Node
	successors   []*domain.Node
	succListSize int
}

// New creates a routing table for self. All pointers start nil except the
// successor-list sentinel, which starts pointing at self.
func New(self *domain.Node, space ring.Space, succListSize int, opts ...Option) *RoutingTable {
	rt := &RoutingTable{
		self:         self,
		space:        space,
		predecessor:  nil,
		fingers:      make([]*domain.Node, space.Bits),
		successors:   make([]*domain.Node, succListSize+1),
		succListSize: succListSize,
		logger:       &logger.NopLogger{},
	}
	rt.successors[succListSize] = self
	for _, opt := range opts {
		opt(rt)
	}
	rt.logger.Debug("routing table initialized")
	return rt
}

// InitSingleNode configures the table as if this node were the only member
// of the ring (spec.md §4.6 Bootstrap): predecessor and every finger and
// successor point at self.
func (rt *RoutingTable) InitSingleNode() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.predecessor = rt.self
	for i := range rt.fingers {
		rt.fingers[i] = rt.self
	}
	for i := range rt.successors {
		rt.successors[i] = rt.self
	}
	rt.logger.Debug("routing table set to single-node ring")
}

func (rt *RoutingTable) Space() ring.Space  { return rt.space }
func (rt *RoutingTable) Self() *domain.Node { return rt.self }
func (rt *RoutingTable) SuccListSize() int  { return rt.succListSize }
func (rt *RoutingTable) FingerCount() int   { return len(rt.fingers) }

// GetPredecessor returns the current predecessor, or nil if unset.
func (rt *RoutingTable) GetPredecessor() *domain.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.predecessor
}

// SetPredecessor assigns the predecessor pointer (spec.md §4.4
// changePredecessor).
func (rt *RoutingTable) SetPredecessor(n *domain.Node) {
	rt.mu.Lock()
	rt.predecessor = n
	rt.mu.Unlock()
	rt.logger.Debug("SetPredecessor: updated", logger.FNode("predecessor", n))
}

// GetFinger returns finger i (0-based; fingers[0] is the immediate
// successor). Out-of-range indices return nil.
func (rt *RoutingTable) GetFinger(i int) *domain.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if i < 0 || i >= len(rt.fingers) {
		return nil
	}
	return rt.fingers[i]
}

// SetFinger assigns finger i (spec.md §4.4 changeSuccessor when i==0, or
// the inductive step of updateIthFinger for i>0).
func (rt *RoutingTable) SetFinger(i int, n *domain.Node) {
	rt.mu.Lock()
	if i < 0 || i >= len(rt.fingers) {
		rt.mu.Unlock()
		rt.logger.Warn("SetFinger: index out of range", logger.F("index", i))
		return
	}
	rt.fingers[i] = n
	if i == 0 && len(rt.successors) > 0 {
		rt.successors[0] = n // fingers[0] and successors[0] stay in sync (P4)
	}
	rt.mu.Unlock()
	rt.logger.Debug("SetFinger: updated", logger.F("index", i), logger.FNode("node", n))
}

// FingerList returns a snapshot of the finger table, indexed as stored.
func (rt *RoutingTable) FingerList() []*domain.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*domain.Node, len(rt.fingers))
	copy(out, rt.fingers)
	return out
}

// FirstSuccessor is GetSuccessor(0): the node's immediate successor.
func (rt *RoutingTable) FirstSuccessor() *domain.Node { return rt.GetSuccessor(0) }

// GetSuccessor returns successor slot i. Out-of-range indices return nil.
func (rt *RoutingTable) GetSuccessor(i int) *domain.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if i < 0 || i >= len(rt.successors) {
		return nil
	}
	return rt.successors[i]
}

// SetSuccessor assigns successor slot i; slot 0 is also mirrored into
// fingers[0] so the two stay in sync (P4).
func (rt *RoutingTable) SetSuccessor(i int, n *domain.Node) {
	rt.mu.Lock()
	if i < 0 || i >= len(rt.successors) {
		rt.mu.Unlock()
		rt.logger.Warn("SetSuccessor: index out of range", logger.F("index", i))
		return
	}
	rt.successors[i] = n
	if i == 0 && len(rt.fingers) > 0 {
		rt.fingers[0] = n
	}
	rt.mu.Unlock()
	rt.logger.Debug("SetSuccessor: updated", logger.F("index", i), logger.FNode("successor", n))
}

// SuccessorList returns a snapshot of the successor list, including any nil
// (not-yet-learned) slots.
func (rt *RoutingTable) SuccessorList() []*domain.Node {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*domain.Node, len(rt.successors))
	copy(out, rt.successors)
	return out
}

// ShiftSuccessors implements spec.md §4.5.3 shiftSuccessors(i): for j from i
// to R-1, successors[j] = successors[j+1]. The final slot (the sentinel) is
// left untouched, so it is always a defined read rather than an
// out-of-bounds one.
func (rt *RoutingTable) ShiftSuccessors(i int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if i < 0 || i >= rt.succListSize {
		return
	}
	for j := i; j < rt.succListSize; j++ {
		rt.successors[j] = rt.successors[j+1]
	}
	if i == 0 && len(rt.fingers) > 0 {
		rt.fingers[0] = rt.successors[0]
	}
	rt.logger.Debug("ShiftSuccessors: closed gap", logger.F("index", i))
}

// NextSuccessor is the hook Stabilize calls when fingers[0] is found dead
// (spec.md §4.5.3): it performs ShiftSuccessors(0) and returns the new
// immediate successor.
func (rt *RoutingTable) NextSuccessor() *domain.Node {
	rt.ShiftSuccessors(0)
	return rt.FirstSuccessor()
}

// DebugLog emits one structured snapshot of the whole table.
func (rt *RoutingTable) DebugLog() {
	rt.mu.Lock()
	pred := rt.predecessor
	fingers := make([]map[string]any, len(rt.fingers))
	for i, n := range rt.fingers {
		fingers[i] = nodeLogEntry(i, n)
	}
	succs := make([]map[string]any, len(rt.successors))
	for i, n := range rt.successors {
		succs[i] = nodeLogEntry(i, n)
	}
	rt.mu.Unlock()

	rt.logger.Debug("RoutingTable snapshot",
		logger.FNode("self", rt.self),
		logger.FNode("predecessor", pred),
		logger.F("fingers", fingers),
		logger.F("successors", succs),
	)
}

func nodeLogEntry(index int, n *domain.Node) map[string]any {
	if n == nil {
		return map[string]any{"index": index, "node": nil}
	}
	return map[string]any{"index": index, "id": n.ID.String(), "addr": n.Addr}
}
