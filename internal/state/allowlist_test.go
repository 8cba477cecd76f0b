package state

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempAllowlist(t *testing.T) (*Allowlist, string) {
	path := filepath.Join(t.TempDir(), "authorized.json")
	a, err := NewAllowlist(path)
	if err != nil {
		t.Fatalf("failed to create allowlist: %v", err)
	}
	return a, path
}

func TestNewAllowlist_MissingFileIsEmpty(t *testing.T) {
	a, path := tempAllowlist(t)
	assert.Equal(t, 0, a.Len())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "loading must not create the file")
}

func TestAllowlist_AddAndReload(t *testing.T) {
	a, path := tempAllowlist(t)

	require.NoError(t, a.Add("bob"))
	require.NoError(t, a.Add("alice"))
	assert.True(t, a.Contains("alice"))
	assert.False(t, a.Contains("carol"))

	reloaded, err := NewAllowlist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, reloaded.List())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file is renamed into place")
}

func TestAllowlist_AddTwice(t *testing.T) {
	a, _ := tempAllowlist(t)

	require.NoError(t, a.Add("alice"))
	assert.ErrorIs(t, a.Add("alice"), ErrAlreadyAuthorized)
	assert.Equal(t, 1, a.Len())
}

func TestAllowlist_Remove(t *testing.T) {
	a, path := tempAllowlist(t)
	require.NoError(t, a.Add("alice"))

	require.NoError(t, a.Remove("alice"))
	assert.False(t, a.Contains("alice"))
	assert.ErrorIs(t, a.Remove("alice"), ErrNotAuthorized)

	reloaded, err := NewAllowlist(path)
	require.NoError(t, err)
	assert.Empty(t, reloaded.List())
}

func TestAllowlist_InvalidIDs(t *testing.T) {
	a, _ := tempAllowlist(t)
	for _, id := range []string{"", "two words", "tab\tbed", "new\nline"} {
		assert.ErrorIs(t, a.Add(id), ErrInvalidUserID, "id %q", id)
		assert.ErrorIs(t, a.Remove(id), ErrInvalidUserID, "id %q", id)
	}
	assert.Equal(t, 0, a.Len())
}

func TestAllowlist_LoadsNumericIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_mods.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1399148894566354985, "alice"]`), 0644))

	a, err := NewAllowlist(path)
	require.NoError(t, err)
	assert.True(t, a.Contains("1399148894566354985"))
	assert.True(t, a.Contains("alice"))
}

func TestAllowlist_LoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0644))
	_, err := NewAllowlist(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`[true]`), 0644))
	_, err = NewAllowlist(path)
	assert.Error(t, err)
}

func TestAllowlist_PersistenceFailure(t *testing.T) {
	a, _ := tempAllowlist(t)

	// a regular file where the parent directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	a.path = filepath.Join(blocker, "authorized.json")

	err := a.Add("alice")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, a.Contains("alice"), "in-memory set keeps the change")

	err = a.Remove("alice")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.False(t, a.Contains("alice"))
}

func TestAllowlist_ConcurrentReaders(t *testing.T) {
	a, _ := tempAllowlist(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = a.Contains("alice")
				_ = a.List()
			}
		}()
		go func(i int) {
			defer wg.Done()
			_ = a.Add("user" + string(rune('a'+i)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, a.Len())
}
