package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV_SetSyncsParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pos.json")

	var synced []string
	orig := syncDir
	syncDir = func(d string) error {
		synced = append(synced, d)
		return orig(d)
	}
	t.Cleanup(func() { syncDir = orig })

	kv := NewFileKV(path)
	require.NoError(t, kv.Set(context.Background(), "k", []byte(`"v"`)))
	assert.Equal(t, []string{dir}, synced)

	v, found, err := NewFileKV(path).Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `"v"`, string(v))
}

func TestFileKV_DirectorySyncFailureSurfaces(t *testing.T) {
	orig := syncDir
	syncDir = func(string) error { return errors.New("fsync: input/output error") }
	t.Cleanup(func() { syncDir = orig })

	kv := NewFileKV(filepath.Join(t.TempDir(), "pos.json"))
	err := kv.Set(context.Background(), "k", []byte(`"v"`))
	assert.ErrorContains(t, err, "input/output error")
}

func TestUnavailableStore(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("open /readonly/pos.db: permission denied")
	st := NewUnavailableStore(cause)

	assert.True(t, IsUnavailable(st))
	assert.False(t, IsUnavailable(NewFlatStore(NewMemoryKV(), "x_", nil)))
	assert.Equal(t, BackendNone, st.Backend())

	assert.ErrorIs(t, st.Init(ctx), ErrUnavailable)
	_, err := st.Put(ctx, Products, map[string]string{"id": "P1"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	_, err = st.GetAll(ctx, Products)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, _, err = st.Get(ctx, Products, "P1")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = st.Count(ctx, OfflineTransactions)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, st.Close())
}
