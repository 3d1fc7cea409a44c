// Package storage holds the files a node is currently responsible for.
package storage

import (
	"chordring/internal/domain"
	"chordring/internal/ring"
)

// Storage is the minimal operation set a node needs over its local files.
type Storage interface {
	// Put inserts or updates a file.
	Put(f domain.File)

	// Get retrieves the file with the given name.
	Get(name string) (domain.File, error)

	// Delete removes the file with the given name.
	Delete(name string) error

	// Between returns all files whose key lies in (from, to] on the ring.
	Between(from, to ring.ID) []domain.File

	// All returns a snapshot of every file currently stored.
	All() []domain.File

	// DebugLog emits a structured snapshot of the store at DEBUG level.
	DebugLog()
}
