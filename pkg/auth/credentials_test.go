package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	store := NewMockStore()
	mgr := NewManagerWithStores(store)

	account := &Account{Username: "someuser", Password: "hunter2"}
	require.NoError(t, mgr.Store(account))
	assert.False(t, account.LastUsed.IsZero(), "Store should stamp LastUsed")

	got, err := mgr.Retrieve("someuser")
	require.NoError(t, err)
	assert.Equal(t, "someuser", got.Username)
	assert.Equal(t, "hunter2", got.Password)
}

func TestManagerStoreFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keyring locked")
	working := NewMockStore()
	mgr := NewManagerWithStores(broken, working)

	require.NoError(t, mgr.Store(&Account{Username: "someuser", Password: "pw"}))

	assert.False(t, broken.Exists("someuser"))
	assert.True(t, working.Exists("someuser"))
}

func TestManagerRetrieveChecksAllStores(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	require.NoError(t, second.Store(&Account{Username: "deep", Password: "pw"}))
	mgr := NewManagerWithStores(first, second)

	got, err := mgr.Retrieve("deep")
	require.NoError(t, err)
	assert.Equal(t, "deep", got.Username)

	_, err = mgr.Retrieve("nobody")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerStoreRejectsEmptyUsername(t *testing.T) {
	mgr := NewManagerWithStores(NewMockStore())
	assert.ErrorIs(t, mgr.Store(&Account{}), ErrInvalidCredentials)
	assert.ErrorIs(t, mgr.Store(nil), ErrInvalidCredentials)
}

func TestManagerListMostRecentFirst(t *testing.T) {
	store := NewMockStore()
	now := time.Now()
	require.NoError(t, store.Store(&Account{Username: "older", LastUsed: now.Add(-time.Hour)}))
	require.NoError(t, store.Store(&Account{Username: "newest", LastUsed: now}))
	require.NoError(t, store.Store(&Account{Username: "oldest", LastUsed: now.Add(-2 * time.Hour)}))
	mgr := NewManagerWithStores(store)

	accounts, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "newest", accounts[0].Username)
	assert.Equal(t, "older", accounts[1].Username)
	assert.Equal(t, "oldest", accounts[2].Username)

	recent, err := mgr.MostRecent()
	require.NoError(t, err)
	assert.Equal(t, "newest", recent.Username)
}

func TestManagerListDeduplicatesAcrossStores(t *testing.T) {
	now := time.Now()
	first := NewMockStore()
	require.NoError(t, first.Store(&Account{Username: "dup", Password: "stale", LastUsed: now.Add(-time.Hour)}))
	second := NewMockStore()
	require.NoError(t, second.Store(&Account{Username: "dup", Password: "fresh", LastUsed: now}))
	mgr := NewManagerWithStores(first, second)

	accounts, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "fresh", accounts[0].Password, "most recently used copy wins")
}

func TestManagerListCap(t *testing.T) {
	store := NewMockStore()
	for i := 0; i < MaxRememberedAccounts+5; i++ {
		require.NoError(t, store.Store(&Account{
			Username: string(rune('a'+i%26)) + string(rune('0'+i/26)),
			LastUsed: time.Now().Add(time.Duration(-i) * time.Minute),
		}))
	}
	mgr := NewManagerWithStores(store)

	accounts, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, accounts, MaxRememberedAccounts)
}

func TestManagerMostRecentEmpty(t *testing.T) {
	mgr := NewManagerWithStores(NewMockStore())
	_, err := mgr.MostRecent()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerDelete(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	require.NoError(t, first.Store(&Account{Username: "everywhere"}))
	require.NoError(t, second.Store(&Account{Username: "everywhere"}))
	mgr := NewManagerWithStores(first, second)

	require.NoError(t, mgr.Delete("everywhere"))
	assert.False(t, first.Exists("everywhere"))
	assert.False(t, second.Exists("everywhere"))

	err := mgr.Delete("everywhere")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("IGUNFOLLOW_PASSPHRASE", "test-passphrase")

	dir := t.TempDir()
	store, err := NewEncryptedFileStore(dir + "/credentials.enc")
	require.NoError(t, err)

	account := &Account{Username: "someuser", Password: "secret", LastUsed: time.Now()}
	require.NoError(t, store.Store(account))

	got, err := store.Retrieve("someuser")
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Password)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, store.Delete("someuser"))
	_, err = store.Retrieve("someuser")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreMultipleAccounts(t *testing.T) {
	t.Setenv("IGUNFOLLOW_PASSPHRASE", "test-passphrase")

	dir := t.TempDir()
	store, err := NewEncryptedFileStore(dir + "/credentials.enc")
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Username: "first", Password: "pw1"}))
	require.NoError(t, store.Store(&Account{Username: "second", Password: "pw2"}))

	// A fresh store instance with the same passphrase reads the same file
	reopened, err := NewEncryptedFileStore(dir + "/credentials.enc")
	require.NoError(t, err)

	got, err := reopened.Retrieve("second")
	require.NoError(t, err)
	assert.Equal(t, "pw2", got.Password)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("IGUNFOLLOW_USERNAME", "envuser")
	t.Setenv("IGUNFOLLOW_PASSWORD", "envpass")

	store := NewEnvironmentStore()

	got, err := store.Retrieve("envuser")
	require.NoError(t, err)
	assert.Equal(t, "envpass", got.Password)

	_, err = store.Retrieve("someoneelse")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	assert.ErrorIs(t, store.Store(&Account{Username: "x"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}
