package core

import (
	"context"
	"testing"

	memsession "rentledger/internal/infra/session/memory"
	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLoginLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.RegisterUser(ctx, domain.UserDraft{Username: "alice", Name: "Alice", Password: "secret"})
	require.NoError(t, err)

	store := memsession.New()
	session, err := svc.StartSession(ctx, store)
	require.NoError(t, err)
	_, err = session.Require()
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = session.Login(ctx, "alice", "SECRET")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials, "passwords are case-sensitive")
	_, err = session.Login(ctx, "mallory", "secret")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	user, err := session.Login(ctx, "ALICE", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	persisted, ok, _ := store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", persisted)

	// A new process picks the identity up from the store.
	resumed, err := svc.StartSession(ctx, store)
	require.NoError(t, err)
	current, ok := resumed.Current()
	require.True(t, ok)
	assert.Equal(t, "Alice", current.Name)

	require.NoError(t, resumed.Logout(ctx))
	_, ok = resumed.Current()
	assert.False(t, ok)
	_, ok, _ = store.Load(ctx)
	assert.False(t, ok)
}

func TestStartSessionClearsVanishedUser(t *testing.T) {
	ctx := context.Background()
	svc, hook := newTestService(t)
	store := memsession.New()
	require.NoError(t, store.Save(ctx, "ghost"))

	session, err := svc.StartSession(ctx, store)
	require.NoError(t, err)
	_, ok := session.Current()
	assert.False(t, ok)
	_, ok, _ = store.Load(ctx)
	assert.False(t, ok)
	assert.True(t, hasLog(hook, logrus.WarnLevel, "no longer exists"))
}

type brokenSessionStore struct{}

func (brokenSessionStore) Load(context.Context) (string, bool, error) { return "", false, errBoom }
func (brokenSessionStore) Save(context.Context, string) error          { return errBoom }
func (brokenSessionStore) Clear(context.Context) error                 { return errBoom }

func TestStartSessionStoreError(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.StartSession(context.Background(), brokenSessionStore{})
	require.ErrorIs(t, err, errBoom)
}
