package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamsesh/go-jamsesh-client/credentials"
	apperrors "github.com/jamsesh/go-jamsesh-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) (*credentials.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := credentials.NewFileStore(path, "test-passphrase")
	require.NoError(t, err)
	return store, path
}

func TestNewFileStore_Validation(t *testing.T) {
	_, err := credentials.NewFileStore("", "secret")
	require.Error(t, err)

	_, err = credentials.NewFileStore("/tmp/creds.enc", "")
	require.Error(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, _ := newFileStore(t)

	require.NoError(t, store.Set(credentials.AccessKey, "tok1"))
	require.NoError(t, store.Set(credentials.RefreshKey, "refresh-1"))

	access, err := store.Get(credentials.AccessKey)
	require.NoError(t, err)
	require.Equal(t, "tok1", access)

	refresh, err := store.Get(credentials.RefreshKey)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", refresh)
}

func TestFileStore_MissingKey(t *testing.T) {
	store, _ := newFileStore(t)

	_, err := store.Get(credentials.AccessKey)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	store, _ := newFileStore(t)

	require.NoError(t, store.Set(credentials.AccessKey, "tok1"))
	require.NoError(t, store.Delete(credentials.AccessKey))
	require.NoError(t, store.Delete(credentials.AccessKey))

	_, err := store.Get(credentials.AccessKey)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, store.Set(credentials.AccessKey, "tok1"))

	reopened, err := credentials.NewFileStore(path, "test-passphrase")
	require.NoError(t, err)
	access, err := reopened.Get(credentials.AccessKey)
	require.NoError(t, err)
	require.Equal(t, "tok1", access)
}

func TestFileStore_TokensNotStoredInPlaintext(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, store.Set(credentials.AccessKey, "super-secret-access-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-access-token")
	require.NotContains(t, string(raw), credentials.AccessKey+`"`)
}

func TestFileStore_WrongPassphrase(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, store.Set(credentials.AccessKey, "tok1"))

	other, err := credentials.NewFileStore(path, "different-passphrase")
	require.NoError(t, err)

	_, err = other.Get(credentials.AccessKey)
	require.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestSetPairAndClear(t *testing.T) {
	store, _ := newFileStore(t)

	require.NoError(t, credentials.SetPair(store, "tok1", "refresh-1"))
	access, err := store.Get(credentials.AccessKey)
	require.NoError(t, err)
	require.Equal(t, "tok1", access)

	require.NoError(t, credentials.Clear(store))
	_, err = store.Get(credentials.AccessKey)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = store.Get(credentials.RefreshKey)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRead(t *testing.T) {
	store, _ := newFileStore(t)

	value, ok, err := credentials.Read(store, credentials.AccessKey)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)

	require.NoError(t, store.Set(credentials.AccessKey, "tok1"))
	value, ok, err = credentials.Read(store, credentials.AccessKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok1", value)
}
