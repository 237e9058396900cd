package core

import (
	"context"
	"fmt"

	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
)

// UserRepository adds case-insensitive username uniqueness to the users
// collection.
type UserRepository struct {
	*Repository[domain.User]
}

// NewUserRepository binds a repository to the users collection.
func NewUserRepository(store *CollectionStore, log *logrus.Entry) *UserRepository {
	return &UserRepository{NewRepository[domain.User](store, domain.CollectionUsers, domain.EntityUser, log)}
}

// Add appends u unless another user already has the same username.
func (r *UserRepository) Add(ctx context.Context, u domain.User) error {
	return r.mutate(ctx, func(slots []slot[domain.User]) ([]slot[domain.User], error) {
		for _, s := range slots {
			if s.ok && domain.SameUsername(s.rec.Username, u.Username) {
				return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateUsername, u.Username)
			}
		}
		return append(slots, slot[domain.User]{rec: u, ok: true}), nil
	})
}

// FindByUsername looks a user up case-insensitively.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	users, err := r.List(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	for _, u := range users {
		if domain.SameUsername(u.Username, username) {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}
