package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/pkg/account"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func testSession() *account.Session {
	return &account.Session{
		Username:   "someuser",
		UserID:     "192008031",
		SessionID:  "sess-token-value",
		CSRFToken:  "csrf-token-value",
		CapturedAt: time.Now().Truncate(time.Second),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	sess := testSession()

	require.NoError(t, store.Save("someuser", sess))

	loaded, err := store.Load("someuser")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, sess.Username, loaded.Username)
	assert.Equal(t, sess.UserID, loaded.UserID)
	assert.Equal(t, sess.SessionID, loaded.SessionID)
	assert.Equal(t, sess.CSRFToken, loaded.CSRFToken)
	assert.True(t, sess.CapturedAt.Equal(loaded.CapturedAt))
}

func TestLoadMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Load("nobody")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCorruptFileReturnsNilAndRemoves(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "broken.session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	loaded, err := store.Load("broken")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupt file should have been removed")
}

func TestLoadIncompleteSessionTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	// Parses fine but has no tokens; must not be handed to a client.
	path := filepath.Join(dir, "empty.session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username":"empty"}`), 0600))

	loaded, err := store.Load("empty")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveRejectsIncompleteSession(t *testing.T) {
	store := newTestStore(t)
	err := store.Save("someuser", &account.Session{Username: "someuser"})
	assert.Error(t, err)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("someuser", testSession()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save("someuser", testSession()))
	require.NoError(t, store.Delete("someuser"))

	loaded, err := store.Load("someuser")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting again is fine
	assert.NoError(t, store.Delete("someuser"))
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save("alpha", testSession()))
	second := testSession()
	second.Username = "beta"
	require.NoError(t, store.Save("beta", second))

	keys, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, keys)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "some.user_1", sanitizeKey("some.user_1"))
	assert.Equal(t, "a_b_c", sanitizeKey("a/b\\c"))
	assert.Equal(t, "upper", sanitizeKey("UPPER"))
}
