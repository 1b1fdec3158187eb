// Package trust holds the release-signing trust anchor. Every update manifest
// must verify against the single public key embedded here; the key is fixed at
// build time and is not configurable.
package trust

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"

	"github.com/pkg/errors"
)

// releaseSigningKey is the X.509/SPKI encoding of the EC P-256 public key that
// signs release manifests. The matching private key lives in the release
// pipeline and never ships.
const releaseSigningKey = "MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAELOYa5ax7QZvS92HJYCBPBiR2wWfX" +
	"P9/Oq/yl2J1yg0Vovetp8i1A3yCtoqdHVdVytM1wNV0JXgRbWuNTAr9nlQ=="

// PublicKey decodes the embedded release-signing key. An error here means the
// binary was built with corrupt key material; it is a build defect, not a
// runtime condition, and callers should treat it as fatal.
func PublicKey() (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(releaseSigningKey)
	if err != nil {
		return nil, errors.Wrap(err, "embedded release-signing key is not valid base64")
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse embedded release-signing key")
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("embedded release-signing key is %T, not an EC public key", key)
	}
	return ecKey, nil
}
