package node

import (
	"context"
	"strconv"
	"strings"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/transport"
)

// Handle decodes one request line, dispatches it, and returns the response
// line to write back. An unrecognized command gets a benign acknowledgement
// rather than an error, so a peer speaking a newer protocol version is
// never mistaken for dead (spec.md §4.2, §7).
func (n *Node) Handle(ctx context.Context, line string) string {
	cmd, rest := transport.DecodeRequest(line)
	switch cmd {
	case transport.CmdYourSuccessor:
		return transport.EncodeOK(domain.FormatAddr(n.rt.FirstSuccessor()))

	case transport.CmdYourPredecessor:
		return transport.EncodeOK(domain.FormatAddr(n.rt.GetPredecessor()))

	case transport.CmdFindSuccessor:
		raw, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return transport.EncodeErr("bad id: " + err.Error())
		}
		succ, err := n.Successor(ctx, n.rt.Space().Reduce(raw))
		if err != nil {
			return transport.EncodeErr(err.Error())
		}
		return transport.EncodeOK(domain.FormatAddr(succ))

	case transport.CmdFindPredecessor:
		raw, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return transport.EncodeErr("bad id: " + err.Error())
		}
		pred, err := n.Predecessor(ctx, n.rt.Space().Reduce(raw))
		if err != nil {
			return transport.EncodeErr(err.Error())
		}
		return transport.EncodeOK(domain.FormatAddr(pred))

	case transport.CmdChangeSuccessor:
		peer, err := domain.ParseAddr(rest)
		if err != nil {
			return transport.EncodeErr(err.Error())
		}
		n.ChangeSuccessor(&peer)
		return transport.EncodeOK(transport.AckDone)

	case transport.CmdChangePredecessor:
		peer, err := domain.ParseAddr(rest)
		if err != nil {
			return transport.EncodeErr(err.Error())
		}
		n.ChangePredecessor(&peer)
		return transport.EncodeOK(transport.AckDone)

	case transport.CmdUpdateIthFinger:
		fields := transport.SplitArgs(rest, 2)
		if len(fields) < 2 {
			return transport.EncodeErr("missing index/node arguments")
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return transport.EncodeErr("bad index: " + err.Error())
		}
		peer, err := domain.ParseAddr(fields[1])
		if err != nil {
			return transport.EncodeErr(err.Error())
		}
		n.UpdateIthFinger(ctx, i, &peer)
		return transport.EncodeOK(transport.AckDone)

	case transport.CmdTransferKeys:
		fields := transport.SplitArgs(rest, 2)
		if len(fields) < 2 {
			return transport.EncodeErr("missing key arguments")
		}
		firstRaw, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return transport.EncodeErr("bad first key: " + err.Error())
		}
		secondRaw, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return transport.EncodeErr("bad second key: " + err.Error())
		}
		space := n.rt.Space()
		names := n.handleTransferKeys(space.Reduce(secondRaw), space.Reduce(firstRaw))
		return transport.EncodeOK(strings.Join(names, ":"))

	case transport.CmdNotify:
		peer, err := domain.ParseAddr(rest)
		if err != nil {
			return transport.EncodeErr(err.Error())
		}
		n.Notify(ctx, &peer)
		return transport.EncodeOK(transport.AckDone)

	case transport.CmdAlive:
		return transport.EncodeOK("alive")

	default:
		n.lgr.Debug("Handle: unrecognized command", logger.F("cmd", cmd))
		return transport.EncodeOK(transport.AckDone)
	}
}

// handleTransferKeys hands over (and forgets locally) every file this node
// stores whose key lies in (from, to] — the span the TRANSFER_KEYS caller
// just became responsible for.
func (n *Node) handleTransferKeys(from, to ring.ID) []string {
	candidates := n.store.Between(from, to)
	out := make([]string, 0, len(candidates))
	for _, f := range candidates {
		if err := n.store.Delete(f.Name); err != nil {
			continue
		}
		out = append(out, f.Name)
	}
	if len(out) > 0 {
		n.lgr.Info("handleTransferKeys: handed off files", logger.F("count", len(out)))
	}
	return out
}
