// Package domain holds the small value types shared across the node:
// ring participants and the files they store.
package domain

import "chordring/internal/ring"

// Node represents a participant in the Chord ring.
type Node struct {
	ID   ring.ID // identifier in the 2^M space
	Addr string  // network address, e.g. "127.0.0.1:5000"
}
