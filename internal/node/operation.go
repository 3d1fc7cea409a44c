package node

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/telemetry/lookuptrace"
	"chordring/internal/transport"
)

// ErrNotInitialized is returned by operations that require a populated
// routing table (at least one known successor) before they can run.
var ErrNotInitialized = errors.New("node: routing table not initialized")

// ErrLookupFailed is returned when a lookup could not converge within its
// bounded number of forwarding attempts, usually because every candidate
// hop died mid-resolution.
var ErrLookupFailed = errors.New("node: lookup did not converge")

// maxLookupAttempts bounds how many times Successor and Predecessor will
// advance to an alternate hop after an unreachable peer before giving up.
const maxLookupAttempts = 4

// Successor resolves the node responsible for id: it computes predecessor(id)
// and asks that node for its immediate successor. If the predecessor's
// successor cannot be reached, predecessor(id) is recomputed (the ring may
// have reshaped since the first answer) and the query retried (spec.md
// §4.3).
func (n *Node) Successor(ctx context.Context, id ring.ID) (*domain.Node, error) {
	self := n.rt.Self()
	ctx, span := lookuptrace.StartFindSuccessor(ctx, self.ID.String(), id.String())
	defer span.End()

	for attempt := 0; attempt < maxLookupAttempts; attempt++ {
		pred, err := n.Predecessor(ctx, id)
		if err != nil {
			return nil, err
		}
		if pred.ID == self.ID {
			succ := n.rt.FirstSuccessor()
			if succ == nil {
				return nil, ErrNotInitialized
			}
			return succ, nil
		}
		succ, err := n.yourSuccessorRemote(ctx, pred)
		if err == nil && succ != nil {
			return succ, nil
		}
		n.lgr.Warn("Successor: predecessor's successor unreachable, recomputing predecessor",
			logger.FNode("predecessor", pred))
	}
	return nil, fmt.Errorf("node: successor(%s): %w", id.String(), ErrLookupFailed)
}

// Predecessor resolves the node that immediately precedes id on the ring. If
// id already falls in this node's own (key, successor] span, self is the
// answer; otherwise the lookup is forwarded to the closest known preceding
// finger. A forwarding hop found dead is replaced by the closest preceding
// finger of that dead node's own key, so the search keeps advancing using
// only routing state this node already has (spec.md §4.3).
func (n *Node) Predecessor(ctx context.Context, id ring.ID) (*domain.Node, error) {
	self := n.rt.Self()
	space := n.rt.Space()

	succ := n.rt.FirstSuccessor()
	if succ == nil {
		return nil, ErrNotInitialized
	}
	if space.Belongs(self.ID, false, succ.ID, true, id) {
		return self, nil
	}

	next := n.closestPrecedingFinger(id)
	for attempt := 0; attempt < maxLookupAttempts; attempt++ {
		if next == nil || next.ID == self.ID {
			return self, nil
		}
		resp, err := n.findPredecessorRemote(ctx, next, id)
		if err == nil && resp != nil {
			return resp, nil
		}
		n.lgr.Warn("Predecessor: forwarding hop unreachable, advancing", logger.FNode("hop", next))
		next = n.closestPrecedingFinger(next.ID)
	}
	return nil, fmt.Errorf("node: predecessor(%s): %w", id.String(), ErrLookupFailed)
}

// closestPrecedingFinger scans the finger table from the widest reach down
// to the narrowest and returns the first entry strictly between self and id;
// if none qualifies, self is returned (spec.md §4.3).
func (n *Node) closestPrecedingFinger(id ring.ID) *domain.Node {
	self := n.rt.Self()
	space := n.rt.Space()

	for i := n.rt.FingerCount() - 1; i >= 0; i-- {
		f := n.rt.GetFinger(i)
		if f == nil {
			continue
		}
		if space.Belongs(self.ID, false, id, false, f.ID) {
			return f
		}
	}
	return self
}

// ChangeSuccessor and ChangePredecessor are the pure setters spec.md §4.4
// names directly; the CHANGE_SUCCESSOR/CHANGE_PREDECESSOR handlers route
// through them. Stabilize, Notify and the join path write the routing table
// directly.
func (n *Node) ChangeSuccessor(addr *domain.Node) { n.rt.SetSuccessor(0, addr) }
func (n *Node) ChangePredecessor(addr *domain.Node) { n.rt.SetPredecessor(addr) }

// Notify is called (locally by stabilize, or remotely via NOTIFY) by a node
// that believes it might be our predecessor. We probe the current
// predecessor's liveness first: a dead or unset predecessor is replaced
// unconditionally, since keeping it around serves no one; a live one is
// replaced only when candidate falls strictly between it and self (spec.md
// §4.4).
func (n *Node) Notify(ctx context.Context, candidate *domain.Node) {
	if candidate == nil {
		return
	}
	self := n.rt.Self()
	pred := n.rt.GetPredecessor()

	if pred == nil || pred.ID == self.ID || n.aliveRemote(ctx, pred) != nil {
		n.rt.SetPredecessor(candidate)
		n.lgr.Debug("Notify: adopted candidate, prior predecessor unset or unreachable",
			logger.FNode("predecessor", candidate))
		return
	}
	if n.rt.Space().Belongs(pred.ID, false, self.ID, false, candidate.ID) {
		n.rt.SetPredecessor(candidate)
		n.lgr.Debug("Notify: predecessor updated", logger.FNode("predecessor", candidate))
	}
}

// UpdateIthFinger is the inductive step of join advertisement (spec.md
// §4.4): if candidate lies strictly between self and the current i-th
// finger (or that finger is still unset), it is accepted and the same
// request is forwarded to this node's own predecessor, so the update keeps
// propagating backwards as long as it keeps improving fingers along the
// way. A rejection stops the propagation.
func (n *Node) UpdateIthFinger(ctx context.Context, i int, candidate *domain.Node) {
	if candidate == nil {
		return
	}
	self := n.rt.Self()
	current := n.rt.GetFinger(i)
	accept := current == nil || n.rt.Space().Belongs(self.ID, false, current.ID, false, candidate.ID)
	if !accept {
		return
	}
	n.rt.SetFinger(i, candidate)
	n.lgr.Debug("UpdateIthFinger: accepted", logger.F("index", i), logger.FNode("candidate", candidate))

	pred := n.rt.GetPredecessor()
	if pred == nil || pred.ID == self.ID {
		return
	}
	if err := n.updateIthFingerRemote(ctx, pred, i, candidate); err != nil {
		n.lgr.Warn("UpdateIthFinger: propagation to predecessor failed",
			logger.FNode("predecessor", pred), logger.F("err", err.Error()))
	}
}

// requestNode sends a no-argument request to peer and parses the single
// node reference expected back in its OK response. An empty payload (no
// known answer, e.g. an unset predecessor) decodes as (nil, nil).
func (n *Node) requestNode(ctx context.Context, peer *domain.Node, cmd string) (*domain.Node, error) {
	resp, err := n.tc.SendRequest(ctx, peer.Addr, transport.EncodeRequest(cmd))
	if err != nil {
		return nil, err
	}
	status, payload := transport.DecodeResponse(resp)
	if status != transport.StatusOK {
		return nil, fmt.Errorf("node: %s to %s failed: %s", cmd, peer.Addr, resp)
	}
	return parseNodePayload(payload)
}

func parseNodePayload(payload string) (*domain.Node, error) {
	if payload == "" {
		return nil, nil
	}
	got, err := domain.ParseAddr(payload)
	if err != nil {
		return nil, err
	}
	return &got, nil
}

// ackRequest sends a request expecting only a plain OK/ERR acknowledgement.
func (n *Node) ackRequest(ctx context.Context, peer *domain.Node, cmd string, args ...string) error {
	resp, err := n.tc.SendRequest(ctx, peer.Addr, transport.EncodeRequest(cmd, args...))
	if err != nil {
		return err
	}
	status, _ := transport.DecodeResponse(resp)
	if status != transport.StatusOK {
		return fmt.Errorf("node: %s to %s failed: %s", cmd, peer.Addr, resp)
	}
	return nil
}

func (n *Node) yourSuccessorRemote(ctx context.Context, peer *domain.Node) (*domain.Node, error) {
	return n.requestNode(ctx, peer, transport.CmdYourSuccessor)
}

func (n *Node) yourPredecessorRemote(ctx context.Context, peer *domain.Node) (*domain.Node, error) {
	return n.requestNode(ctx, peer, transport.CmdYourPredecessor)
}

// successorRemote asks peer to resolve id via its own FIND_SUCCESSOR
// handler; used during join, before this node has any routing state of its
// own to forward a lookup through.
func (n *Node) successorRemote(ctx context.Context, peer *domain.Node, id ring.ID) (*domain.Node, error) {
	resp, err := n.tc.SendRequest(ctx, peer.Addr, transport.EncodeRequest(transport.CmdFindSuccessor, id.String()))
	if err != nil {
		return nil, err
	}
	status, payload := transport.DecodeResponse(resp)
	if status != transport.StatusOK {
		return nil, fmt.Errorf("node: find-successor at %s failed: %s", peer.Addr, resp)
	}
	return parseNodePayload(payload)
}

func (n *Node) findPredecessorRemote(ctx context.Context, peer *domain.Node, id ring.ID) (*domain.Node, error) {
	resp, err := n.tc.SendRequest(ctx, peer.Addr, transport.EncodeRequest(transport.CmdFindPredecessor, id.String()))
	if err != nil {
		return nil, err
	}
	status, payload := transport.DecodeResponse(resp)
	if status != transport.StatusOK {
		return nil, fmt.Errorf("node: find-predecessor at %s failed: %s", peer.Addr, resp)
	}
	return parseNodePayload(payload)
}

func (n *Node) updateIthFingerRemote(ctx context.Context, peer *domain.Node, i int, candidate *domain.Node) error {
	return n.ackRequest(ctx, peer, transport.CmdUpdateIthFinger, strconv.Itoa(i), domain.FormatAddr(candidate))
}

func (n *Node) notifyRemote(ctx context.Context, peer *domain.Node) error {
	return n.ackRequest(ctx, peer, transport.CmdNotify, domain.FormatAddr(n.rt.Self()))
}

// aliveRemote probes peer's liveness; a non-nil error means peer should be
// treated as dead.
func (n *Node) aliveRemote(ctx context.Context, peer *domain.Node) error {
	resp, err := n.tc.SendRequest(ctx, peer.Addr, transport.EncodeRequest(transport.CmdAlive))
	if err != nil {
		return err
	}
	status, payload := transport.DecodeResponse(resp)
	if status != transport.StatusOK || payload == "" {
		return fmt.Errorf("node: alive check on %s failed: %s", peer.Addr, resp)
	}
	return nil
}

// transferKeysRemote asks peer for every file whose key lies in
// (secondKey, firstKey] — the span that now belongs to this node rather
// than to peer — and rehashes each returned filename locally to recover its
// key rather than carrying it over the wire.
func (n *Node) transferKeysRemote(ctx context.Context, peer *domain.Node, firstKey, secondKey ring.ID) ([]domain.File, error) {
	resp, err := n.tc.SendRequest(ctx, peer.Addr,
		transport.EncodeRequest(transport.CmdTransferKeys, firstKey.String(), secondKey.String()))
	if err != nil {
		return nil, err
	}
	status, payload := transport.DecodeResponse(resp)
	if status != transport.StatusOK {
		return nil, fmt.Errorf("node: transfer-keys from %s failed: %s", peer.Addr, resp)
	}
	if payload == "" {
		return nil, nil
	}
	names := strings.Split(payload, ":")
	files := make([]domain.File, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		files = append(files, domain.File{Name: name, Key: n.rt.Space().HashString(name)})
	}
	return files, nil
}
