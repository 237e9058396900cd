package domain

import "context"

// Collection names a flat, ordered list of records of one entity type. A
// collection is the unit of read and write in storage.
type Collection string

// Named collections persisted by every backend.
const (
	CollectionUsers      Collection = "users"
	CollectionProperties Collection = "properties"
	CollectionTenants    Collection = "tenants"
	CollectionPayments   Collection = "payments"
	CollectionTodos      Collection = "todos"
)

// SchemaVersion identifies the collection layout. Versions only ever add
// collections; existing payloads are never rewritten on boot.
const SchemaVersion = 1

// Collections lists every named collection in boot order.
var Collections = []Collection{
	CollectionUsers,
	CollectionProperties,
	CollectionTenants,
	CollectionPayments,
	CollectionTodos,
}

// Known reports whether c is one of Collections.
func (c Collection) Known() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// CollectionBackend persists each collection as one opaque payload. It
// offers no locking or partial update: Save replaces the whole value.
type CollectionBackend interface {
	// EnsureCollections creates an empty payload for every missing name and
	// leaves existing payloads untouched.
	EnsureCollections(ctx context.Context, names []Collection) error
	// Load returns the stored payload and false when the collection is absent.
	Load(ctx context.Context, name Collection) ([]byte, bool, error)
	Save(ctx context.Context, name Collection, payload []byte) error
	Remove(ctx context.Context, name Collection) error
	Close() error
}

// SessionStore keeps the username of the authenticated user between
// process runs. Load returns false when nobody is logged in.
type SessionStore interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, username string) error
	Clear(ctx context.Context) error
}
