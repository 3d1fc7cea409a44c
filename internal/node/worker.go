package node

import (
	"context"
	"math/rand"
	"time"

	"chordring/internal/domain"
	"chordring/internal/logger"
)

// StartMaintenance launches the three independent periodic loops that keep
// the ring consistent as membership changes (spec.md §4.5): stabilization
// of the immediate successor/predecessor pair, finger table refresh, and
// successor-list upkeep. All three stop when ctx is canceled.
func (n *Node) StartMaintenance(ctx context.Context, stabilizeInterval, fixFingersInterval, succListInterval time.Duration) {
	go n.runLoop(ctx, "stabilize", stabilizeInterval, n.stabilize)
	go n.runLoop(ctx, "fix-fingers", fixFingersInterval, n.fixFingers)
	go n.runLoop(ctx, "successor-list-maintainer", succListInterval, n.maintainSuccessorList)
}

// runLoop is the common ticker/ctx.Done() shape shared by the maintenance
// loops; each loop owns its own goroutine and ticker so one slow pass never
// delays the others.
func (n *Node) runLoop(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			n.lgr.Info("maintenance loop stopped", logger.F("loop", name))
			return
		case <-ticker.C:
			if !n.Active() {
				continue
			}
			tick(ctx)
		}
	}
}

// stabilize asks the immediate successor for its predecessor. A dead
// successor is dropped in favor of the next entry in the successor list; a
// live successor whose reported predecessor falls strictly between self and
// it is adopted as the new, closer successor. Either way the (possibly
// updated) successor is notified of self's existence (spec.md §4.5).
//
// When the successor is still self (a single-node ring, or one that has not
// yet discovered anyone), the predecessor is read locally instead of over
// the wire: this is how a lone bootstrap node eventually discovers the
// first peer that joins it, since that peer's NOTIFY call updates this
// node's predecessor pointer before its successor pointer has any reason
// to change.
func (n *Node) stabilize(ctx context.Context) {
	self := n.rt.Self()
	succ := n.rt.FirstSuccessor()
	if succ == nil {
		return
	}

	var p *domain.Node
	if succ.ID == self.ID {
		p = n.rt.GetPredecessor()
	} else {
		var err error
		p, err = n.yourPredecessorRemote(ctx, succ)
		if err != nil {
			n.lgr.Warn("stabilize: successor unreachable, advancing to next in successor list",
				logger.FNode("successor", succ), logger.F("err", err.Error()))
			succ = n.rt.NextSuccessor()
			if succ == nil || succ.ID == self.ID {
				return
			}
			p = nil
		}
	}

	if p != nil && n.rt.Space().Belongs(self.ID, false, succ.ID, false, p.ID) {
		n.rt.SetSuccessor(0, p)
		succ = p
	}
	if succ.ID == self.ID {
		return
	}
	if err := n.notifyRemote(ctx, succ); err != nil {
		n.lgr.Warn("stabilize: notify failed", logger.FNode("successor", succ), logger.F("err", err.Error()))
	}
}

// fixFingers refreshes a single, uniformly random finger table entry per
// tick (spec.md §4.5). Index 0 is excluded: it is fingers[0], the immediate
// successor, and stabilize already owns it.
func (n *Node) fixFingers(ctx context.Context) {
	m := n.rt.FingerCount()
	if m <= 1 {
		return
	}
	i := 1 + rand.Intn(m-1)
	self := n.rt.Self()
	target := n.rt.Space().AddPow2(self.ID, i)

	succ, err := n.Successor(ctx, target)
	if err != nil {
		n.lgr.Warn("fixFingers: lookup failed", logger.F("index", i), logger.F("err", err.Error()))
		return
	}
	n.rt.SetFinger(i, succ)
}

// maintainSuccessorList probes one uniformly random successor-list slot per
// tick and asks it for its own successor, filling in the next slot. A dead
// slot at index 0 is left for stabilize to repair; a dead slot elsewhere
// closes the gap by shifting everything above it up (spec.md §4.5).
func (n *Node) maintainSuccessorList(ctx context.Context) {
	r := n.rt.SuccListSize()
	if r <= 0 {
		return
	}
	i := rand.Intn(r)
	self := n.rt.Self()
	target := n.rt.GetSuccessor(i)
	if target == nil || target.ID == self.ID {
		return
	}

	succ, err := n.yourSuccessorRemote(ctx, target)
	if err != nil {
		n.lgr.Warn("maintainSuccessorList: slot unreachable", logger.F("index", i), logger.FNode("node", target))
		if i != 0 {
			n.rt.ShiftSuccessors(i)
		}
		return
	}
	if succ != nil {
		n.rt.SetSuccessor(i+1, succ)
	}
}

// initSuccessorList populates the successor list by walking forward from
// the immediate successor, one YOUR_SUCCESSOR hop at a time, up to the list
// depth. Called once at the end of a join, before the periodic maintainer
// takes over (spec.md §4.5).
func (n *Node) initSuccessorList(ctx context.Context) {
	self := n.rt.Self()
	r := n.rt.SuccListSize()
	cur := n.rt.FirstSuccessor()

	for i := 0; i < r; i++ {
		if cur == nil || cur.ID == self.ID {
			return
		}
		next, err := n.yourSuccessorRemote(ctx, cur)
		if err != nil || next == nil {
			n.lgr.Warn("initSuccessorList: walk stopped early", logger.F("reached", i))
			return
		}
		n.rt.SetSuccessor(i+1, next)
		cur = next
	}
}
