package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixedViewsIsolated(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()

	a := NewPrefixed(backend, "dev-a:")
	b := NewPrefixed(backend, "dev-b:")

	require.NoError(t, a.Set(ctx, "token", "alpha"))
	require.NoError(t, b.Set(ctx, "token", "beta"))

	got, err := a.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)

	got, err = b.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "beta", got)

	// Deleting through one view must not touch the other.
	require.NoError(t, a.Delete(ctx, "token"))
	_, err = a.Get(ctx, "token")
	require.ErrorIs(t, err, ErrNotFound)

	got, err = b.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "beta", got)
}

func TestPrefixedWritesUnderFullKey(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()
	p := NewPrefixed(backend, "session:")

	require.NoError(t, p.Set(ctx, "k", "v"))

	got, err := backend.Get(ctx, "session:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
