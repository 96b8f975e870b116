package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "session.json")
	ctx := context.Background()

	backend, err := NewFileBackend(path)
	require.NoError(t, err)

	_, err = backend.Get(ctx, "user:a:b")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.Set(ctx, "user:a:b", []byte(`{"access_token":"A"}`)))
	require.NoError(t, backend.Set(ctx, "user:a:c", []byte(`{"access_token":"C"}`)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewStore(reopened, Options{Authority: "a", ClientID: "b", Now: clock.Now})
	require.Equal(t, "A", store.Current(ctx).AccessToken)

	require.NoError(t, reopened.Delete(ctx, "user:a:b"))
	require.NoError(t, reopened.Delete(ctx, "user:a:b"))
	_, err = reopened.Get(ctx, "user:a:b")
	require.ErrorIs(t, err, ErrNotFound)

	value, err := reopened.Get(ctx, "user:a:c")
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"C"}`, string(value))
}

func TestFileBackendRejectsNonJSON(t *testing.T) {
	t.Parallel()

	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.Error(t, backend.Set(context.Background(), "k", []byte("plain")))
}

func TestFileBackendCorruptFileIsReadError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	_, err = backend.Get(context.Background(), "k")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestNewFileBackendRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileBackend("  ")
	require.Error(t, err)
}
