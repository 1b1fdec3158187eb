// Package fetcher is the HTTP client for the update pipeline. It retrieves the
// signed manifest from the fixed release endpoint, release notes, and the
// update artifact, and classifies TLS handshake failures that are really a
// symptom of an outdated platform.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/keyfold/keyfold/platform"
)

const defaultTimeout = 15 * time.Second

// Client fetches update material over HTTPS. All calls are synchronous and
// make exactly one attempt.
type Client struct {
	manifestURL string
	client      http.Client
	caps        platform.Capabilities
	log         *zerolog.Logger
}

// userAgentTransport tags every outgoing request with a descriptive
// User-Agent so the release server can tell client populations apart.
type userAgentTransport struct {
	userAgent string
	inner     http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)
	return t.inner.RoundTrip(req)
}

// NewClient builds a Client against the given manifest endpoint. transport may
// be nil, in which case a default with handshake and response-header timeouts
// is used; a non-nil transport lets callers stack their own interceptors.
func NewClient(manifestURL, userAgent string, caps platform.Capabilities, transport http.RoundTripper, log *zerolog.Logger) *Client {
	if transport == nil {
		transport = &http.Transport{
			TLSHandshakeTimeout:   defaultTimeout,
			ResponseHeaderTimeout: defaultTimeout,
		}
	}
	return &Client{
		manifestURL: manifestURL,
		client: http.Client{
			Transport: &userAgentTransport{userAgent: userAgent, inner: transport},
		},
		caps: caps,
		log:  log,
	}
}

// Manifest GETs the signed manifest from the fixed endpoint and returns its
// raw bytes. The bytes are untrusted until the verifier accepts them.
func (c *Client) Manifest(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, "manifest fetch", c.manifestURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, &TransportError{Op: "manifest fetch", Cause: err}
	}
	return raw, nil
}

// ReleaseNotes GETs the given URL and returns the body as plain text.
func (c *Client) ReleaseNotes(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, "release notes fetch", url)
	if err != nil {
		return "", err
	}
	defer body.Close()
	notes, err := io.ReadAll(body)
	if err != nil {
		return "", &TransportError{Op: "release notes fetch", Cause: err}
	}
	return string(notes), nil
}

// Artifact GETs the update binary and returns the response body for streaming.
// The caller owns the returned reader and must close it.
func (c *Client) Artifact(ctx context.Context, url string) (io.ReadCloser, error) {
	return c.get(ctx, "artifact fetch", url)
}

func (c *Client) get(ctx context.Context, op, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Cause: err}
	}
	c.log.Debug().Str("url", url).Msgf("update client: %s", op)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(op, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, &TransportError{Op: op, Cause: errors.Errorf("unexpected status %d from %s", resp.StatusCode, url)}
	}
	return resp.Body, nil
}

// classify separates "this platform cannot do modern TLS" from every other
// transport failure. The split depends only on the error's nature and on the
// platform capability query, never on response content.
func (c *Client) classify(op string, err error) error {
	if isHandshakeFailure(err) && !c.caps.ModernTLSDefaults() {
		c.log.Debug().Err(err).Msg("TLS handshake failed on a platform without modern TLS defaults")
		return &LegacyTLSError{Cause: err}
	}
	return &TransportError{Op: op, Cause: err}
}
