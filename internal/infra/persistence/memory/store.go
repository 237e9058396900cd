// Package memory provides a process-local collection backend used by tests
// and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"rentledger/pkg/domain"
)

var _ domain.CollectionBackend = (*Store)(nil)

// Store keeps one payload per collection in memory.
type Store struct {
	mu       sync.RWMutex
	payloads map[domain.Collection][]byte
}

// NewStore returns an empty in-memory backend.
func NewStore() *Store {
	return &Store{payloads: make(map[domain.Collection][]byte)}
}

// EnsureCollections seeds an empty list for each missing collection.
func (s *Store) EnsureCollections(_ context.Context, names []domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if _, ok := s.payloads[name]; !ok {
			s.payloads[name] = []byte("[]")
		}
	}
	return nil
}

// Load returns a copy of the stored payload.
func (s *Store) Load(_ context.Context, name domain.Collection) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.payloads[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

// Save replaces the payload of a collection.
func (s *Store) Save(_ context.Context, name domain.Collection, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[name] = append([]byte(nil), payload...)
	return nil
}

// Remove deletes a collection.
func (s *Store) Remove(_ context.Context, name domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, name)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
