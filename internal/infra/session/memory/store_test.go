package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "alice"))
	username, ok, _ := store.Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)

	require.NoError(t, store.Clear(ctx))
	_, ok, _ = store.Load(ctx)
	assert.False(t, ok)
}
