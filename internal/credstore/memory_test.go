package credstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "userId")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "userId", "42"))
	v, ok, err := s.Get(ctx, "userId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	require.NoError(t, s.Remove(ctx, "userId"))
	require.NoError(t, s.Remove(ctx, "userId"))
	_, ok, _ = s.Get(ctx, "userId")
	assert.False(t, ok)

	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "a", "1"))

	snap := s.Snapshot()
	snap["a"] = "changed"

	v, _, _ := s.Get(ctx, "a")
	assert.Equal(t, "1", v)
}
