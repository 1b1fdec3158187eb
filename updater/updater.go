// Package updater drives the update check: fetch the signed manifest, verify
// it, compare against the running build and the cached record, and report
// whether a newer release exists. It also downloads the artifact for a
// previously discovered update. Every operation is synchronous, blocking, and
// single-attempt; callers invoke it off any latency-sensitive thread.
package updater

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/keyfold/keyfold/manifest"
	"github.com/keyfold/keyfold/updatecache"
)

// UpdateCheck describes an available newer release. ReleaseNotes is populated
// only when the version was discovered by this very call; re-discovering a
// version already in the cache returns it empty rather than refetching.
type UpdateCheck struct {
	ReleaseNotes    string
	Version         string
	DownloadURL     string
	ReleaseNotesURL string
}

// Fetcher is the transport surface the checker needs.
type Fetcher interface {
	Manifest(ctx context.Context) ([]byte, error)
	ReleaseNotes(ctx context.Context, url string) (string, error)
	Artifact(ctx context.Context, url string) (io.ReadCloser, error)
}

// Cache is the persisted singleton record of the last verified manifest.
type Cache interface {
	Load() (*updatecache.Record, error)
	Put(*updatecache.Record) error
}

// Checker composes transport, verification and the cache. It is the only
// writer of the cache record.
type Checker struct {
	fetcher  Fetcher
	verifier *manifest.Verifier
	cache    Cache
	log      *zerolog.Logger
}

func NewChecker(fetcher Fetcher, verifier *manifest.Verifier, cache Cache, log *zerolog.Logger) *Checker {
	return &Checker{
		fetcher:  fetcher,
		verifier: verifier,
		cache:    cache,
		log:      log,
	}
}

// CheckForUpdate fetches and verifies the latest manifest and returns a
// present UpdateCheck when a release newer than runningVersion exists, or nil
// when the running build is current.
//
// The manifest fetch-and-verify strictly precedes any cache access, and the
// running-version comparison strictly precedes the cached-version comparison:
// a stale cache can short-circuit a release-notes fetch, but it can never mask
// "already up to date", and a failed fetch never falls back to cached data.
func (c *Checker) CheckForUpdate(ctx context.Context, runningVersion string) (*UpdateCheck, error) {
	raw, err := c.fetcher.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := c.verifier.Verify(raw)
	if err != nil {
		return nil, err
	}

	if latest.Version == runningVersion {
		c.log.Debug().Str("version", runningVersion).Msg("running build is the latest release")
		return nil, nil
	}

	cached, err := c.cache.Load()
	if err != nil {
		return nil, err
	}
	if cached.Version != "" && cached.Version == latest.Version {
		// Already discovered on an earlier check; skip the notes fetch.
		return &UpdateCheck{
			Version:         cached.Version,
			DownloadURL:     cached.DownloadURL,
			ReleaseNotesURL: cached.ReleaseNotesURL,
		}, nil
	}

	notes, err := c.fetcher.ReleaseNotes(ctx, latest.ReleaseNotesURL)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(&updatecache.Record{
		Version:         latest.Version,
		DownloadURL:     latest.DownloadURL,
		ReleaseNotesURL: latest.ReleaseNotesURL,
	}); err != nil {
		return nil, err
	}
	c.log.Info().Str("version", latest.Version).Msg("new release discovered")
	return &UpdateCheck{
		ReleaseNotes:    notes,
		Version:         latest.Version,
		DownloadURL:     latest.DownloadURL,
		ReleaseNotesURL: latest.ReleaseNotesURL,
	}, nil
}
