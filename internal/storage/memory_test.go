package storage

import (
	"errors"
	"testing"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
)

func newTestStorage(t *testing.T) (*MemoryStorage, ring.Space) {
	t.Helper()
	space, err := ring.NewSpace(5)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	return NewMemoryStorage(space, &logger.NopLogger{}), space
}

func TestMemoryStoragePutGetDelete(t *testing.T) {
	s, space := newTestStorage(t)
	f := domain.File{Name: "report.txt", Key: space.HashString("report.txt")}

	if _, err := s.Get(f.Name); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound before insert, got %v", err)
	}

	s.Put(f)
	got, err := s.Get(f.Name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != f {
		t.Fatalf("Get returned %+v, want %+v", got, f)
	}

	if err := s.Delete(f.Name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(f.Name); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound on second delete, got %v", err)
	}
}

func TestMemoryStorageBetween(t *testing.T) {
	s, space := newTestStorage(t)
	in := domain.File{Name: "in", Key: 10}
	out := domain.File{Name: "out", Key: 20}
	_ = space

	s.Put(in)
	s.Put(out)

	got := s.Between(5, 15)
	if len(got) != 1 || got[0].Name != "in" {
		t.Fatalf("Between(5,15) = %+v, want only %q", got, "in")
	}
}

func TestMemoryStorageAll(t *testing.T) {
	s, _ := newTestStorage(t)
	s.Put(domain.File{Name: "a", Key: 1})
	s.Put(domain.File{Name: "b", Key: 2})

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d files, want 2", len(all))
	}
}
