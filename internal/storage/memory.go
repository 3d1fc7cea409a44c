package storage

import (
	"sort"
	"sync"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
)

// MemoryStorage is a concurrency-safe in-memory Storage, suitable for a
// single node's share of the ring. It keeps no record of which node it
// received a file from; TransferKeys is responsible for moving files
// between nodes as the ring changes shape.
type MemoryStorage struct {
	lgr   logger.Logger
	space ring.Space
	mu    sync.RWMutex
	data  map[string]domain.File // keyed by file name
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(space ring.Space, lgr logger.Logger) *MemoryStorage {
	s := &MemoryStorage{
		lgr:   lgr,
		space: space,
		data:  make(map[string]domain.File),
	}
	s.lgr.Debug("initialized in-memory storage")
	return s
}

func (s *MemoryStorage) Put(f domain.File) {
	s.mu.Lock()
	_, existed := s.data[f.Name]
	s.data[f.Name] = f
	s.mu.Unlock()
	if existed {
		s.lgr.Debug("Put: file updated", logger.FFile("file", f))
	} else {
		s.lgr.Debug("Put: file inserted", logger.FFile("file", f))
	}
}

func (s *MemoryStorage) Get(name string) (domain.File, error) {
	s.mu.RLock()
	f, ok := s.data[name]
	s.mu.RUnlock()
	if !ok {
		s.lgr.Debug("Get: file not found", logger.F("name", name))
		return domain.File{}, domain.ErrFileNotFound
	}
	s.lgr.Debug("Get: file retrieved", logger.FFile("file", f))
	return f, nil
}

func (s *MemoryStorage) Delete(name string) error {
	s.mu.Lock()
	_, ok := s.data[name]
	if ok {
		delete(s.data, name)
	}
	s.mu.Unlock()
	if !ok {
		s.lgr.Debug("Delete: file not found", logger.F("name", name))
		return domain.ErrFileNotFound
	}
	s.lgr.Debug("Delete: file removed", logger.F("name", name))
	return nil
}

func (s *MemoryStorage) Between(from, to ring.ID) []domain.File {
	s.mu.RLock()
	var result []domain.File
	for _, f := range s.data {
		if s.space.Between(from, to, f.Key) {
			result = append(result, f)
		}
	}
	s.mu.RUnlock()
	s.lgr.Debug("Between: range query completed",
		logger.F("from", from.String()),
		logger.F("to", to.String()),
		logger.F("count", len(result)),
	)
	return result
}

func (s *MemoryStorage) All() []domain.File {
	s.mu.RLock()
	result := make([]domain.File, 0, len(s.data))
	for _, f := range s.data {
		result = append(result, f)
	}
	s.mu.RUnlock()
	return result
}

// DebugLog emits a single compact, deterministically ordered snapshot of
// the store for troubleshooting.
func (s *MemoryStorage) DebugLog() {
	s.mu.RLock()
	snapshot := make([]domain.File, 0, len(s.data))
	for _, f := range s.data {
		snapshot = append(snapshot, f)
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Name < snapshot[j].Name })
	entries := make([]map[string]any, 0, len(snapshot))
	for _, f := range snapshot {
		entries = append(entries, map[string]any{"name": f.Name, "key": f.Key.String()})
	}
	s.lgr.Debug("Storage snapshot", logger.F("count", len(snapshot)), logger.F("files", entries))
}
