// Package signature provides the signature-algorithm identifiers used by
// the signature-hash pairs of TLS 1.2's CertificateVerify and TLS 1.3's
// signature schemes.
package signature

// Algorithm is the low byte of a TLS SignatureAndHashAlgorithm / the
// signature half of a TLS 1.3 SignatureScheme.
type Algorithm uint8

// Supported signature algorithms.
const (
	ECDSA   Algorithm = 3
	Ed25519 Algorithm = 7
)

// Algorithms returns the set of signature algorithms this core recognizes.
func Algorithms() map[Algorithm]bool {
	return map[Algorithm]bool{
		ECDSA:   true,
		Ed25519: true,
	}
}
