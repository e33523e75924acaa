package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte("v1")))
	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	original := []byte("value")
	require.NoError(t, kv.Set(ctx, "k", original))
	original[0] = 'X'

	stored, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), stored)
}

func TestFileKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "carts.json")

	kv := NewFileKV(path)
	require.NoError(t, kv.Set(ctx, "cart:a", []byte(`[{"title":"x","quantity":1}]`)))
	require.NoError(t, kv.Set(ctx, "cart:b", []byte(`[]`)))

	// a fresh instance reads the same state from disk
	reopened := NewFileKV(path)
	value, err := reopened.Get(ctx, "cart:a")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"x","quantity":1}]`, string(value))

	require.NoError(t, reopened.Delete(ctx, "cart:a"))
	_, err = reopened.Get(ctx, "cart:a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileKVCorruptStateStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "carts.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	kv := NewFileKV(path)
	_, err := kv.Get(ctx, "cart:a")
	assert.ErrorIs(t, err, ErrNotFound)

	// writes recover the file
	require.NoError(t, kv.Set(ctx, "cart:a", []byte(`[]`)))
	value, err := kv.Get(ctx, "cart:a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), []byte(value))
}
