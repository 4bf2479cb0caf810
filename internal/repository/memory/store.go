// Package memory keeps collections in process memory. It backs tests and
// single-instance development runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"logimatch/internal/repository"
)

type entry struct {
	data    []byte
	version int64
}

type Store struct {
	mu          sync.Mutex
	collections map[string]entry
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{collections: make(map[string]entry)}
}

func (s *Store) Get(_ context.Context, collection string) (repository.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.collections[collection]
	if !ok {
		return repository.Snapshot{}, nil
	}
	return repository.Snapshot{
		Data:    append(json.RawMessage(nil), current.data...),
		Version: current.version,
	}, nil
}

func (s *Store) Put(_ context.Context, collection string, data json.RawMessage, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.collections[collection]
	if current.version != expectedVersion {
		return 0, repository.ErrVersionConflict
	}

	next := entry{
		data:    append([]byte(nil), data...),
		version: current.version + 1,
	}
	s.collections[collection] = next
	return next.version, nil
}

// Seed overwrites a collection with the JSON encoding of value regardless of its version.
func (s *Store) Seed(collection string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode seed %s: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.collections[collection]
	s.collections[collection] = entry{data: raw, version: current.version + 1}
	return nil
}
