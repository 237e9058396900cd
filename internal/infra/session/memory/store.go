// Package memory keeps the session username in process memory.
package memory

import (
	"context"
	"sync"

	"rentledger/pkg/domain"
)

var _ domain.SessionStore = (*Store)(nil)

// Store holds at most one username.
type Store struct {
	mu       sync.RWMutex
	username string
}

// New returns an empty store.
func New() *Store { return &Store{} }

// Load implements domain.SessionStore.
func (s *Store) Load(context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username, s.username != "", nil
}

// Save implements domain.SessionStore.
func (s *Store) Save(_ context.Context, username string) error {
	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
	return nil
}

// Clear implements domain.SessionStore.
func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	s.username = ""
	s.mu.Unlock()
	return nil
}
