// Package fingerprint computes the colon-separated hex certificate
// fingerprints used in SDP-style out-of-band verification and in log lines.
package fingerprint

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
)

var errHashUnavailable = errors.New("hash algorithm is not linked into the binary")

// Fingerprint returns the colon-separated uppercase-free hex digest of
// cert's raw DER bytes under the given hash algorithm.
func Fingerprint(cert *x509.Certificate, algorithm crypto.Hash) (string, error) {
	if !algorithm.Available() {
		return "", errHashUnavailable
	}

	h := algorithm.New()
	if _, err := h.Write(cert.Raw); err != nil {
		return "", err
	}
	sum := h.Sum(nil)

	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02x", b)
	}

	return strings.Join(parts, ":"), nil
}
