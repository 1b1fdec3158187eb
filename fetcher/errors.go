package fetcher

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// TransportError is any network or HTTP failure while talking to the update
// server: connection errors, unexpected status codes, truncated bodies. A
// re-check is user-initiated; the client never retries on its own.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("update %s failed: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// LegacyTLSError means the TLS handshake with the update server failed and the
// platform predates modern default TLS support. The certificate chain is fine;
// the OS is too old to validate it. The remedy is an OS upgrade, not a retry.
type LegacyTLSError struct {
	Cause error
}

func (e *LegacyTLSError) Error() string {
	return fmt.Sprintf("cannot negotiate TLS with the update server on this OS version: %v", e.Cause)
}

func (e *LegacyTLSError) Unwrap() error {
	return e.Cause
}

// isHandshakeFailure reports whether err originates in TLS negotiation or
// certificate chain validation, as opposed to plain connectivity.
func isHandshakeFailure(err error) bool {
	var (
		certVerify  *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostname    x509.HostnameError
		invalid     x509.CertificateInvalidError
	)
	return errors.As(err, &certVerify) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid)
}
