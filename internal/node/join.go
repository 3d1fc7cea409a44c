package node

import (
	"context"
	"fmt"

	"chordring/internal/domain"
	"chordring/internal/logger"
)

// Bootstrap configures the node as the sole member of a brand-new ring:
// every pointer in the routing table is set to point at self (spec.md
// §4.6).
func (n *Node) Bootstrap() {
	n.rt.InitSingleNode()
	n.lgr.Info("bootstrap: created new ring", logger.FNode("self", n.rt.Self()))
}

// JoinVia runs the join protocol against an already-running node reachable
// at helperAddr (spec.md §4.6):
//
//  1. ask the helper to resolve successor(key); that answer, S, becomes
//     self's immediate successor.
//  2. prefill every finger with S as a placeholder, so lookups forwarded
//     through self before refinement still make progress.
//  3. adopt S's current predecessor as self's own predecessor.
//  4. notify S directly, so it can adopt self as predecessor without
//     waiting for its next stabilize tick. The caller is expected to have
//     already started the request handler before calling JoinVia: S's own
//     stabilize round may probe self before this call returns, and an
//     unreachable listener would look like a dead node.
//  5. refine the finger table for i=1..M-1 using the skip rule: if the
//     previous finger does not lie in [lastStart, thisStart), reuse it with
//     no RPC; otherwise ask the helper to resolve the new start.
//  6. announce self to every node whose finger table might need to change
//     because of it, via UPDATE_ITH_FINGER.
//  7. migrate the files that now belong to self.
//  8. walk the successor list forward to its full depth.
func (n *Node) JoinVia(ctx context.Context, helperAddr string) error {
	self := n.rt.Self()
	helper := &domain.Node{Addr: helperAddr}

	succ, err := n.successorRemote(ctx, helper, self.ID)
	if err != nil {
		return fmt.Errorf("node: join via %s: %w", helperAddr, err)
	}
	if succ == nil {
		return fmt.Errorf("node: join via %s: helper returned no successor", helperAddr)
	}
	if succ.ID == self.ID {
		return fmt.Errorf("node: join via %s: identifier %s already present in the ring", helperAddr, self.ID)
	}

	for i := 0; i < n.rt.FingerCount(); i++ {
		n.rt.SetFinger(i, succ)
	}
	n.lgr.Info("join: resolved successor", logger.FNode("successor", succ))

	pred, err := n.yourPredecessorRemote(ctx, succ)
	if err != nil {
		n.lgr.Warn("join: could not read successor's predecessor, leaving predecessor unset",
			logger.F("err", err.Error()))
	} else {
		n.rt.SetPredecessor(pred)
	}

	if err := n.notifyRemote(ctx, succ); err != nil {
		n.lgr.Warn("join: notify of successor failed, stabilize will retry", logger.F("err", err.Error()))
	}

	n.refineFingerTable(ctx, helper)
	n.announceJoin(ctx)
	n.migrateKeys(ctx, succ)
	n.initSuccessorList(ctx)

	n.lgr.Info("join: completed", logger.FNode("self", self), logger.FNode("successor", succ))
	return nil
}

// refineFingerTable replaces the placeholder successor installed in every
// finger with the correct entry, per spec.md §4.6's skip rule: when the
// previous finger's key does NOT fall in the half-open interval
// [lastStart, thisStart), that previous finger already covers this wider
// range too and is reused without a network round trip; otherwise the
// previous finger is itself inside the new interval, so it can't also be
// this interval's answer and a fresh lookup is required.
func (n *Node) refineFingerTable(ctx context.Context, helper *domain.Node) {
	self := n.rt.Self()
	space := n.rt.Space()
	m := n.rt.FingerCount()

	for i := 1; i < m; i++ {
		thisStart := space.AddPow2(self.ID, i)
		lastStart := space.AddPow2(self.ID, i-1)
		prev := n.rt.GetFinger(i - 1)

		if prev != nil && !space.Belongs(lastStart, true, thisStart, false, prev.ID) {
			n.rt.SetFinger(i, prev)
			continue
		}
		succ, err := n.successorRemote(ctx, helper, thisStart)
		if err != nil || succ == nil {
			n.lgr.Warn("join: finger refinement lookup failed", logger.F("index", i))
			continue
		}
		n.rt.SetFinger(i, succ)
	}
}

// announceJoin tells every existing node whose i-th finger might now need
// to point at self that self exists (spec.md §4.6 step 6). For each finger
// index i, requiredKey = self.key - 2^i is the start of the interval that
// finger covers; P, its predecessor, and P's own successor PS are the two
// candidates for "the node currently holding that finger slot" — PS is
// chosen when its key lies in (P, requiredKey], otherwise P. The chosen
// target's own finger table is what UPDATE_ITH_FINGER mutates.
func (n *Node) announceJoin(ctx context.Context) {
	self := n.rt.Self()
	space := n.rt.Space()
	m := n.rt.FingerCount()

	for i := 0; i < m; i++ {
		requiredKey := space.SubPow2(self.ID, i)

		p, err := n.Predecessor(ctx, requiredKey)
		if err != nil || p == nil {
			n.lgr.Warn("join: announce: predecessor lookup failed", logger.F("index", i))
			continue
		}

		target := p
		if p.ID != self.ID {
			if ps, err := n.yourSuccessorRemote(ctx, p); err == nil && ps != nil &&
				space.Belongs(p.ID, false, requiredKey, true, ps.ID) {
				target = ps
			}
		}
		if target.ID == self.ID {
			continue
		}
		if err := n.updateIthFingerRemote(ctx, target, i, self); err != nil {
			n.lgr.Warn("join: announce: update-ith-finger failed",
				logger.F("index", i), logger.FNode("target", target), logger.F("err", err.Error()))
		}
	}
}

// migrateKeys pulls across every file that now belongs to self because its
// identifier falls between succ's old predecessor and self (spec.md §4.6
// step 7, §4.1's TransferKeys predicate).
func (n *Node) migrateKeys(ctx context.Context, succ *domain.Node) {
	self := n.rt.Self()
	lower := self.ID
	if pred := n.rt.GetPredecessor(); pred != nil {
		lower = pred.ID
	}

	files, err := n.transferKeysRemote(ctx, succ, self.ID, lower)
	if err != nil {
		n.lgr.Warn("join: key transfer from successor failed", logger.F("err", err.Error()))
		return
	}
	for _, f := range files {
		n.store.Put(f)
	}
	if len(files) > 0 {
		n.lgr.Info("join: migrated files", logger.F("count", len(files)))
	}
}
