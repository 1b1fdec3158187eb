// Package manifest parses and verifies signed release manifests. A manifest is
// an ES256 compact JWS whose claims name the latest version and where to fetch
// the artifact and its release notes. Decoding and signature verification are
// one atomic step; no claim is readable before the signature checks out.
package manifest

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var signatureAlgs = []jose.SignatureAlgorithm{jose.ES256}

// Manifest is the verified payload of a signed release manifest. Values of
// this type exist only as the output of Verifier.Verify.
type Manifest struct {
	Version         string
	DownloadURL     string
	ReleaseNotesURL string
}

type claims struct {
	Version         string `json:"version"`
	DownloadURL     string `json:"url"`
	ReleaseNotesURL string `json:"release_notes"`
}

// VerificationError reports a manifest that could not be trusted: a bad
// signature, a malformed token, or missing required claims. It is always fatal
// to the current check and never retried automatically.
type VerificationError struct {
	Cause error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("failed to verify update manifest: %v", e.Cause)
}

func (e *VerificationError) Unwrap() error {
	return e.Cause
}

// Verifier authenticates manifests against a single trust anchor. The key is
// handed in explicitly at construction; there is no ambient key lookup.
type Verifier struct {
	key *ecdsa.PublicKey
}

func NewVerifier(key *ecdsa.PublicKey) *Verifier {
	return &Verifier{key: key}
}

// Verify authenticates raw as a compact JWS and decodes its claims. It either
// returns a fully verified Manifest or a *VerificationError; there is no
// partially trusted result.
func (v *Verifier) Verify(raw []byte) (*Manifest, error) {
	token, err := jwt.ParseSigned(string(raw), signatureAlgs)
	if err != nil {
		return nil, &VerificationError{Cause: fmt.Errorf("malformed manifest token: %v", err)}
	}
	var c claims
	if err := token.Claims(v.key, &c); err != nil {
		return nil, &VerificationError{Cause: fmt.Errorf("manifest signature rejected: %v", err)}
	}
	if c.Version == "" || c.DownloadURL == "" {
		return nil, &VerificationError{Cause: fmt.Errorf("manifest is missing required claims")}
	}
	return &Manifest{
		Version:         c.Version,
		DownloadURL:     c.DownloadURL,
		ReleaseNotesURL: c.ReleaseNotesURL,
	}, nil
}
