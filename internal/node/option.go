package node

import "chordring/internal/logger"

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger sets the logger used by the node's operations and
// maintenance loops.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) { n.lgr = l }
}
