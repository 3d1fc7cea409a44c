// Package genfiles stands in for the specification's external random-file
// generator collaborator (spec.md §2 "out of scope: the random-file
// generator used to synthesize test keys"): it produces a batch of
// plausible-looking filenames that a freshly bootstrapped ring can be
// seeded with.
package genfiles

import (
	"fmt"

	"github.com/google/uuid"

	"chordring/internal/domain"
	"chordring/internal/ring"
)

// Generate returns n synthetic files with UUID-derived names and keys hashed
// into space.
func Generate(n int, space ring.Space) []domain.File {
	out := make([]domain.File, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("file-%s.dat", uuid.NewString())
		out = append(out, domain.File{
			Name: name,
			Key:  space.HashString(name),
		})
	}
	return out
}
