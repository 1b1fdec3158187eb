package updater

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DownloadError reports a failed artifact download: an unsuccessful HTTP
// response or a local write failure.
type DownloadError struct {
	Cause error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download update: %v", e.Cause)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// DownloadUpdate streams the artifact of the most recently discovered update
// to destination. It requires a prior successful CheckForUpdate to have
// persisted a record; the download URL comes from that verified manifest, not
// from any unauthenticated source.
//
// The body is copied straight to the destination file without buffering the
// whole payload. On failure the partially written destination is left as-is;
// cleanup is the caller's responsibility.
func (c *Checker) DownloadUpdate(ctx context.Context, destination string) error {
	record, err := c.cache.Load()
	if err != nil {
		return &DownloadError{Cause: err}
	}
	if record.DownloadURL == "" {
		return &DownloadError{Cause: errors.New("no update has been discovered yet")}
	}

	body, err := c.fetcher.Artifact(ctx, record.DownloadURL)
	if err != nil {
		return &DownloadError{Cause: err}
	}
	defer body.Close()

	out, err := os.Create(destination)
	if err != nil {
		return &DownloadError{Cause: err}
	}
	written, err := io.Copy(out, body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &DownloadError{Cause: err}
	}
	c.log.Info().Str("version", record.Version).Int64("bytes", written).Msg("update artifact downloaded")
	return nil
}
