package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

func testSession() *domain.Session {
	return &domain.Session{
		AccessToken:  "eyJhbGciOiJIUzI1NiJ9.access.sig",
		RefreshToken: "eyJhbGciOiJIUzI1NiJ9.refresh.sig",
		User: domain.SessionUser{
			UserID:   42,
			Username: "alice",
			Email:    "alice@example.com",
			IsAdmin:  true,
		},
	}
}

// storeCases builds one of each Store implementation rooted in a temp dir.
func storeCases(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	enc, err := NewEncryptedFileStore(filepath.Join(dir, "enc.json"), "correct horse")
	require.NoError(t, err)
	return map[string]Store{
		"memory":    NewMemoryStore(),
		"file":      NewFileStore(filepath.Join(dir, "nested", "session.json")),
		"encrypted": enc,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			want := testSession()
			require.NoError(t, store.Set(want))

			got, err := store.Get()
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, want.AccessToken, got.AccessToken)
			assert.Equal(t, want.RefreshToken, got.RefreshToken)
			assert.Equal(t, want.User, got.User)
		})
	}
}

func TestStoreEmptyAndClear(t *testing.T) {
	for name, store := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Get()
			require.NoError(t, err)
			assert.Nil(t, got, "fresh store should hold no session")

			require.NoError(t, store.Set(testSession()))
			require.NoError(t, store.Clear())

			got, err = store.Get()
			require.NoError(t, err)
			assert.Nil(t, got)

			// Clearing twice is fine.
			require.NoError(t, store.Clear())
		})
	}
}

func TestStoreSetReplacesWholeSession(t *testing.T) {
	for name, store := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(testSession()))

			next := &domain.Session{
				AccessToken:  "new-access",
				RefreshToken: "new-refresh",
				User:         domain.SessionUser{UserID: 7, Username: "bob"},
			}
			require.NoError(t, store.Set(next))

			got, err := store.Get()
			require.NoError(t, err)
			assert.Equal(t, next, got)
		})
	}
}

func TestStoreRejectsNil(t *testing.T) {
	for name, store := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.Set(nil))
		})
	}
}

func TestMemoryStoreKeys(t *testing.T) {
	m := NewMemoryStore()
	assert.Empty(t, m.Keys())

	require.NoError(t, m.Set(testSession()))
	assert.ElementsMatch(t, []string{KeyAccessToken, KeyRefreshToken, KeyUser}, m.Keys())

	require.NoError(t, m.Clear())
	assert.Empty(t, m.Keys())
}

func TestFileStoreLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	require.NoError(t, store.Set(testSession()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]string
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Len(t, rec, 3)
	assert.Equal(t, "eyJhbGciOiJIUzI1NiJ9.access.sig", rec[KeyAccessToken])
	assert.JSONEq(t, `{"user_id":42,"username":"alice","email":"alice@example.com","is_admin":true}`, rec[KeyUser])
}

func TestFileStorePartialRecordIsNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"a","user":"{}"}`), 0600))

	got, err := NewFileStore(path).Get()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0600))

	got, err := NewFileStore(path).Get()
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Nil(t, got)
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewEncryptedFileStore(path, "correct horse")
	require.NoError(t, err)
	require.NoError(t, store.Set(testSession()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "alice", "record must not be stored in the clear")

	t.Run("wrong passphrase", func(t *testing.T) {
		other, err := NewEncryptedFileStore(path, "battery staple")
		require.NoError(t, err)
		got, err := other.Get()
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Nil(t, got)
	})

	t.Run("empty passphrase", func(t *testing.T) {
		_, err := NewEncryptedFileStore(path, "")
		assert.ErrorIs(t, err, ErrNoPassphrase)
	})
}
