package domain

import (
	"errors"

	"chordring/internal/ring"
)

// ErrFileNotFound is returned when a lookup addresses a file the local
// storage does not hold.
var ErrFileNotFound = errors.New("file not found")

// File is a unit of data stored in the ring, keyed by its name's hash.
type File struct {
	Name string  // original file name, as named by the client
	Key  ring.ID // Name hashed into the ring's identifier space
}
