package core

import (
	"context"
	"fmt"
	"sync"

	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
)

// Session tracks the single authenticated user of the process. It is created
// by StartSession, changed only by Login and Logout, and passed explicitly to
// whatever needs the current user.
type Session struct {
	store domain.SessionStore
	users *UserRepository
	log   *logrus.Entry

	mu      sync.RWMutex
	current *domain.User
}

// StartSession reads the persisted username and re-validates it against the
// users collection. A username whose user no longer exists is cleared.
func StartSession(ctx context.Context, store domain.SessionStore, users *UserRepository, log *logrus.Entry) (*Session, error) {
	if log == nil {
		log = discardEntry()
	}
	s := &Session{store: store, users: users, log: log.WithField("component", "session")}
	username, ok, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return s, nil
	}
	user, found, err := users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found {
		s.log.WithField("username", username).Warn("persisted session user no longer exists")
		if err := store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return s, nil
	}
	s.current = &user
	return s, nil
}

// StartSession opens a session backed by store against the service's users.
func (s *Service) StartSession(ctx context.Context, store domain.SessionStore) (*Session, error) {
	return StartSession(ctx, store, s.users, s.log)
}

// Login authenticates username (case-insensitive) and password (exact) and
// persists the username.
func (s *Session) Login(ctx context.Context, username, password string) (domain.User, error) {
	user, found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	if !found || user.Password != password {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err := s.store.Save(ctx, user.Username); err != nil {
		return domain.User{}, fmt.Errorf("save session: %w", err)
	}
	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()
	s.log.WithField("username", user.Username).Info("logged in")
	return user, nil
}

// Logout clears the persisted and in-memory identity.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return nil
}

// Current returns the authenticated user, if any.
func (s *Session) Current() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.User{}, false
	}
	return *s.current, true
}

// Require returns the authenticated user or ErrNotAuthenticated.
func (s *Session) Require() (domain.User, error) {
	user, ok := s.Current()
	if !ok {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return user, nil
}
