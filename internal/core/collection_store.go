package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
)

// BackendOpener opens the backend behind a CollectionStore. It is called at
// most once per store.
type BackendOpener func(ctx context.Context) (domain.CollectionBackend, error)

// CollectionStore reads and writes whole collections as ordered lists of raw
// records. The backend is opened lazily on first use; when that single
// attempt fails every later call fails with ErrStorageUnavailable.
type CollectionStore struct {
	open BackendOpener
	log  *logrus.Entry

	once    sync.Once
	backend domain.CollectionBackend
	initErr error

	locksMu sync.Mutex
	locks   map[domain.Collection]*sync.Mutex
}

// NewCollectionStore wraps open. A nil log discards output.
func NewCollectionStore(open BackendOpener, log *logrus.Entry) *CollectionStore {
	if log == nil {
		log = discardEntry()
	}
	return &CollectionStore{
		open:  open,
		log:   log.WithField("component", "collection_store"),
		locks: make(map[domain.Collection]*sync.Mutex),
	}
}

// NewCollectionStoreWithBackend wraps an already opened backend.
func NewCollectionStoreWithBackend(backend domain.CollectionBackend, log *logrus.Entry) *CollectionStore {
	return NewCollectionStore(func(context.Context) (domain.CollectionBackend, error) { return backend, nil }, log)
}

func (s *CollectionStore) ready(ctx context.Context) (domain.CollectionBackend, error) {
	s.once.Do(func() {
		// the outcome is shared by every later caller, so one caller's
		// cancellation must not decide it
		ctx := context.WithoutCancel(ctx)
		backend, err := s.open(ctx)
		if err == nil {
			if err = backend.EnsureCollections(ctx, domain.Collections); err != nil {
				_ = backend.Close()
			}
		}
		if err != nil {
			s.log.WithError(err).Error("storage initialization failed")
			s.initErr = fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
			return
		}
		s.backend = backend
	})
	return s.backend, s.initErr
}

// Ready forces initialization and reports its outcome.
func (s *CollectionStore) Ready(ctx context.Context) error {
	_, err := s.ready(ctx)
	return err
}

func (s *CollectionStore) backendFor(ctx context.Context, name domain.Collection) (domain.CollectionBackend, error) {
	if !name.Known() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, name)
	}
	return s.ready(ctx)
}

// Get returns the records of name in stored order. A missing collection is
// empty and so is one whose payload cannot be decoded.
func (s *CollectionStore) Get(ctx context.Context, name domain.Collection) ([]json.RawMessage, error) {
	backend, err := s.backendFor(ctx, name)
	if err != nil {
		return nil, err
	}
	payload, ok, err := backend.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", domain.ErrStorageFailure, name, err)
	}
	if !ok || len(payload) == 0 {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		s.log.WithField("collection", name).WithError(err).Warn("corrupt collection treated as empty")
		return nil, nil
	}
	return records, nil
}

// Set replaces the whole collection.
func (s *CollectionStore) Set(ctx context.Context, name domain.Collection, records []json.RawMessage) error {
	backend, err := s.backendFor(ctx, name)
	if err != nil {
		return err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := backend.Save(ctx, name, payload); err != nil {
		return fmt.Errorf("%w: save %s: %v", domain.ErrStorageFailure, name, err)
	}
	return nil
}

// Delete removes the collection from the backend.
func (s *CollectionStore) Delete(ctx context.Context, name domain.Collection) error {
	backend, err := s.backendFor(ctx, name)
	if err != nil {
		return err
	}
	if err := backend.Remove(ctx, name); err != nil {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStorageFailure, name, err)
	}
	return nil
}

// Lock serialises read-modify-write cycles on one collection within the
// process and returns the matching unlock.
func (s *CollectionStore) Lock(name domain.Collection) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[name] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// Close releases the backend if it was opened.
func (s *CollectionStore) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
