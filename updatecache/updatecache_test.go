package updatecache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "update-cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadCreatesEmptyRecord(t *testing.T) {
	store := openTestStore(t)

	record, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, record.Version)
	assert.Empty(t, record.DownloadURL)
	assert.Empty(t, record.ReleaseNotesURL)

	// A second load finds the row created by the first.
	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, record, again)
}

func TestPutLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	record := &Record{
		Version:         "1.6.1",
		DownloadURL:     "https://x/apk",
		ReleaseNotesURL: "https://x/notes",
	}
	require.NoError(t, store.Put(record))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, record, loaded)
}

func TestPutOverwritesSingletonRow(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(&Record{Version: "1.6.1", DownloadURL: "https://x/old"}))
	require.NoError(t, store.Put(&Record{
		Version:         "1.7.0",
		DownloadURL:     "https://x/new",
		ReleaseNotesURL: "https://x/notes",
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.7.0", loaded.Version)
	assert.Equal(t, "https://x/new", loaded.DownloadURL)

	var count int
	require.NoError(t, store.db.Get(&count, `SELECT COUNT(*) FROM update_check`))
	assert.Equal(t, 1, count)
}

func TestPutFirstWithoutLoad(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(&Record{Version: "1.6.1", DownloadURL: "https://x/apk"}))
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.6.1", loaded.Version)
}

func TestRecordSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update-cache.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(&Record{Version: "1.6.1", DownloadURL: "https://x/apk"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	loaded, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.6.1", loaded.Version)
}
