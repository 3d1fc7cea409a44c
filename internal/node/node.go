// Package node implements a Chord ring participant: the lookup and update
// operations over its routing table, the join protocol, the three
// maintenance loops, and the request dispatcher that answers peers.
package node

import (
	"sync/atomic"

	"chordring/internal/logger"
	"chordring/internal/routingtable"
	"chordring/internal/storage"
	"chordring/internal/transport"
)

// Node ties together a node's routing state, its local file store, and the
// transport client it uses to talk to peers.
type Node struct {
	rt    *routingtable.RoutingTable
	store storage.Storage
	tc    *transport.Client
	lgr   logger.Logger

	active atomic.Bool
}

// New builds a Node around an already-constructed routing table, storage,
// and transport client.
func New(rt *routingtable.RoutingTable, store storage.Storage, tc *transport.Client, opts ...Option) *Node {
	n := &Node{
		rt:    rt,
		store: store,
		tc:    tc,
		lgr:   &logger.NopLogger{},
	}
	for _, o := range opts {
		o(n)
	}
	n.active.Store(true)
	n.lgr.Debug("node initialized")
	return n
}

// Stop marks the node inactive; the maintenance loops started by
// StartMaintenance observe this and exit on their next tick.
func (n *Node) Stop() {
	n.active.Store(false)
	n.lgr.Info("node stopped")
}

// Active reports whether the node is still participating in maintenance.
func (n *Node) Active() bool { return n.active.Load() }

// RoutingTable exposes the node's routing table, mainly for the
// interactive shell and tests.
func (n *Node) RoutingTable() *routingtable.RoutingTable { return n.rt }

// Storage exposes the node's local file store, mainly for the interactive
// shell and tests.
func (n *Node) Storage() storage.Storage { return n.store }
