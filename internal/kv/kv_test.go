package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)

	buf := []byte("one")
	require.NoError(t, m.Set(ctx, "a", buf))
	buf[0] = 'X'

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, m.Set(ctx, "a", []byte("two")))
	require.NoError(t, m.Set(ctx, "b/1", []byte("x")))
	require.NoError(t, m.Set(ctx, "b/2", []byte("y")))
	assert.Equal(t, []string{"b/1", "b/2"}, m.Keys("b/"))

	require.NoError(t, m.Delete(ctx, "a", "b/1", "missing"))
	_, err = m.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"b/2"}, m.Keys(""))
}
