package updater

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/manifest"
	"github.com/keyfold/keyfold/updatecache"
)

type fakeFetcher struct {
	manifestRaw   []byte
	manifestErr   error
	notes         string
	notesErr      error
	artifact      string
	artifactErr   error
	manifestCalls int
	notesCalls    int
	artifactCalls int
}

func (f *fakeFetcher) Manifest(ctx context.Context) ([]byte, error) {
	f.manifestCalls++
	return f.manifestRaw, f.manifestErr
}

func (f *fakeFetcher) ReleaseNotes(ctx context.Context, url string) (string, error) {
	f.notesCalls++
	return f.notes, f.notesErr
}

func (f *fakeFetcher) Artifact(ctx context.Context, url string) (io.ReadCloser, error) {
	f.artifactCalls++
	if f.artifactErr != nil {
		return nil, f.artifactErr
	}
	return io.NopCloser(strings.NewReader(f.artifact)), nil
}

type fakeCache struct {
	record    updatecache.Record
	loadErr   error
	putErr    error
	loadCalls int
	putCalls  int
}

func (c *fakeCache) Load() (*updatecache.Record, error) {
	c.loadCalls++
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	record := c.record
	return &record, nil
}

func (c *fakeCache) Put(record *updatecache.Record) error {
	c.putCalls++
	if c.putErr != nil {
		return c.putErr
	}
	c.record = *record
	return nil
}

type testEnv struct {
	checker *Checker
	fetcher *fakeFetcher
	cache   *fakeCache
	key     *ecdsa.PrivateKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	fetcher := &fakeFetcher{notes: "release notes text"}
	cache := &fakeCache{}
	log := zerolog.Nop()
	return &testEnv{
		checker: NewChecker(fetcher, manifest.NewVerifier(&key.PublicKey), cache, &log),
		fetcher: fetcher,
		cache:   cache,
		key:     key,
	}
}

func (e *testEnv) serveManifest(t *testing.T, version, downloadURL, notesURL string) {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: e.key}, nil)
	require.NoError(t, err)
	raw, err := jwt.Signed(signer).Claims(map[string]interface{}{
		"version":       version,
		"url":           downloadURL,
		"release_notes": notesURL,
	}).Serialize()
	require.NoError(t, err)
	e.fetcher.manifestRaw = []byte(raw)
}

func TestNewVersionDiscovered(t *testing.T) {
	env := newTestEnv(t)
	env.serveManifest(t, "1.6.1", "https://x/apk", "https://x/notes")

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.0")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "1.6.1", result.Version)
	assert.Equal(t, "https://x/apk", result.DownloadURL)
	assert.Equal(t, "https://x/notes", result.ReleaseNotesURL)
	assert.Equal(t, "release notes text", result.ReleaseNotes)
	assert.Equal(t, 1, env.fetcher.notesCalls)
	assert.Equal(t, 1, env.cache.putCalls)
	assert.Equal(t, "1.6.1", env.cache.record.Version)
	assert.Equal(t, "https://x/apk", env.cache.record.DownloadURL)
}

func TestRunningVersionIsCurrent(t *testing.T) {
	env := newTestEnv(t)
	env.serveManifest(t, "1.6.1", "https://x/apk", "https://x/notes")

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.1")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, env.fetcher.notesCalls)
	assert.Equal(t, 0, env.cache.putCalls)
}

func TestStaleCacheCannotMaskUpToDate(t *testing.T) {
	env := newTestEnv(t)
	env.serveManifest(t, "1.6.1", "https://x/apk", "https://x/notes")
	env.cache.record = updatecache.Record{
		Version:     "1.5.0",
		DownloadURL: "https://x/old",
	}

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.1")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, env.cache.putCalls)
	assert.Equal(t, "1.5.0", env.cache.record.Version)
}

func TestAlreadyDiscoveredVersionSkipsNotesFetch(t *testing.T) {
	env := newTestEnv(t)
	env.serveManifest(t, "1.6.1", "https://x/apk", "https://x/notes")
	env.cache.record = updatecache.Record{
		Version:         "1.6.1",
		DownloadURL:     "https://x/apk",
		ReleaseNotesURL: "https://x/notes",
	}

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.0")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.ReleaseNotes)
	assert.Equal(t, "1.6.1", result.Version)
	assert.Equal(t, "https://x/apk", result.DownloadURL)
	assert.Equal(t, 0, env.fetcher.notesCalls)
	assert.Equal(t, 0, env.cache.putCalls)
}

func TestVerificationFailurePreventsCacheAccess(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.manifestRaw = []byte("garbage")

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.0")
	assert.Nil(t, result)
	var verificationErr *manifest.VerificationError
	require.ErrorAs(t, err, &verificationErr)
	assert.Equal(t, 0, env.cache.loadCalls)
	assert.Equal(t, 0, env.cache.putCalls)
}

func TestManifestFetchFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	fetchErr := errors.New("connection reset")
	env.fetcher.manifestErr = fetchErr

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.0")
	assert.Nil(t, result)
	assert.Equal(t, fetchErr, err)
	assert.Equal(t, 0, env.cache.loadCalls)
}

func TestNotesFetchFailurePreventsCacheWrite(t *testing.T) {
	env := newTestEnv(t)
	env.serveManifest(t, "1.6.1", "https://x/apk", "https://x/notes")
	env.fetcher.notesErr = errors.New("notes unavailable")

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.0")
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Equal(t, 0, env.cache.putCalls)
}

func TestCacheWriteFailureSurfaces(t *testing.T) {
	env := newTestEnv(t)
	env.serveManifest(t, "1.6.1", "https://x/apk", "https://x/notes")
	env.cache.putErr = errors.New("disk full")

	result, err := env.checker.CheckForUpdate(context.Background(), "1.6.0")
	assert.Nil(t, result)
	assert.Error(t, err)
}
