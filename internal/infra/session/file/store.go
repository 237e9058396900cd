// Package file persists the session username in a small file so a login
// survives between CLI invocations.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"rentledger/pkg/domain"
)

var _ domain.SessionStore = (*Store)(nil)

// Store keeps the username as the only line of one file. Logout removes the file.
type Store struct {
	path string
}

// New returns a store writing to path.
func New(path string) *Store { return &Store{path: path} }

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Load implements domain.SessionStore.
func (s *Store) Load(context.Context) (string, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read session file: %w", err)
	}
	username := strings.TrimSpace(string(raw))
	return username, username != "", nil
}

// Save implements domain.SessionStore.
func (s *Store) Save(_ context.Context, username string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(username+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear implements domain.SessionStore.
func (s *Store) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
