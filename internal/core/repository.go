package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
)

// errUnchanged aborts a mutation without writing.
var errUnchanged = errors.New("collection unchanged")

type slot[T domain.Record] struct {
	raw json.RawMessage
	rec T
	ok  bool
}

// Repository provides typed CRUD over one collection. Every write reads the
// whole collection, modifies it and writes it back while holding the
// collection lock. Records that fail to decode are skipped on read and
// written back untouched.
type Repository[T domain.Record] struct {
	store  *CollectionStore
	name   domain.Collection
	entity domain.EntityType
	log    *logrus.Entry
}

// NewRepository binds a repository to one collection of store.
func NewRepository[T domain.Record](store *CollectionStore, name domain.Collection, entity domain.EntityType, log *logrus.Entry) *Repository[T] {
	if log == nil {
		log = discardEntry()
	}
	return &Repository[T]{
		store:  store,
		name:   name,
		entity: entity,
		log:    log.WithFields(logrus.Fields{"component": "repository", "collection": name}),
	}
}

// Collection returns the collection name.
func (r *Repository[T]) Collection() domain.Collection { return r.name }

func (r *Repository[T]) load(ctx context.Context) ([]slot[T], error) {
	raws, err := r.store.Get(ctx, r.name)
	if err != nil {
		return nil, err
	}
	slots := make([]slot[T], 0, len(raws))
	for i, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			r.log.WithField("index", i).WithError(err).Warn("skipping undecodable record")
			slots = append(slots, slot[T]{raw: raw})
			continue
		}
		slots = append(slots, slot[T]{raw: raw, rec: rec, ok: true})
	}
	return slots, nil
}

func (r *Repository[T]) mutate(ctx context.Context, fn func([]slot[T]) ([]slot[T], error)) error {
	unlock := r.store.Lock(r.name)
	defer unlock()
	slots, err := r.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(slots)
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	raws := make([]json.RawMessage, 0, len(next))
	for _, s := range next {
		if !s.ok {
			raws = append(raws, s.raw)
			continue
		}
		encoded, err := json.Marshal(s.rec)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.entity, s.rec.RecordID(), err)
		}
		raws = append(raws, encoded)
	}
	return r.store.Set(ctx, r.name, raws)
}

// List returns every decodable record in stored order.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	slots, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.rec)
		}
	}
	return out, nil
}

// Find returns the record with id.
func (r *Repository[T]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T
	records, err := r.List(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, rec := range records {
		if rec.RecordID() == id {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

// Add appends rec. Ids are generated by the caller and assumed unique.
func (r *Repository[T]) Add(ctx context.Context, rec T) error {
	return r.mutate(ctx, func(slots []slot[T]) ([]slot[T], error) {
		return append(slots, slot[T]{rec: rec, ok: true}), nil
	})
}

// Update replaces the record sharing rec's id. A missing id is logged and
// reported as false without writing.
func (r *Repository[T]) Update(ctx context.Context, rec T) (bool, error) {
	found := false
	err := r.mutate(ctx, func(slots []slot[T]) ([]slot[T], error) {
		for i := range slots {
			if slots[i].ok && slots[i].rec.RecordID() == rec.RecordID() {
				slots[i].rec = rec
				found = true
				return slots, nil
			}
		}
		return nil, errUnchanged
	})
	if err == nil && !found {
		r.warnMissing("update", rec.RecordID())
	}
	return found, err
}

// Delete removes the record with id. A missing id is logged and reported
// as false without writing.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.deleteMatching(ctx, func(rec T) bool { return rec.RecordID() == id })
	if err == nil && n == 0 {
		r.warnMissing("delete", id)
	}
	return n > 0, err
}

// DeleteWhere removes every record matching pred and returns how many were
// removed.
func (r *Repository[T]) DeleteWhere(ctx context.Context, pred func(T) bool) (int, error) {
	return r.deleteMatching(ctx, pred)
}

func (r *Repository[T]) deleteMatching(ctx context.Context, pred func(T) bool) (int, error) {
	removed := 0
	err := r.mutate(ctx, func(slots []slot[T]) ([]slot[T], error) {
		kept := slots[:0]
		for _, s := range slots {
			if s.ok && pred(s.rec) {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if removed == 0 {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Mutate runs fn over the decoded records under the collection lock and
// writes back its result. Undecodable records are kept after the result.
// Returning an error from fn aborts without writing.
func (r *Repository[T]) Mutate(ctx context.Context, fn func([]T) ([]T, error)) error {
	return r.mutate(ctx, func(slots []slot[T]) ([]slot[T], error) {
		var (
			records []T
			opaque  []slot[T]
		)
		for _, s := range slots {
			if s.ok {
				records = append(records, s.rec)
			} else {
				opaque = append(opaque, s)
			}
		}
		next, err := fn(records)
		if err != nil {
			return nil, err
		}
		out := make([]slot[T], 0, len(next)+len(opaque))
		for _, rec := range next {
			out = append(out, slot[T]{rec: rec, ok: true})
		}
		return append(out, opaque...), nil
	})
}

func (r *Repository[T]) warnMissing(op, id string) {
	r.log.WithField("id", id).Warnf("%s skipped: %v", op, domain.NotFoundError{Entity: r.entity, ID: id})
}
