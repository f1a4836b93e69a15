// Package hash provides the hash algorithm identifiers used by the
// signature-hash pairs of TLS 1.2's CertificateVerify and TLS 1.3's
// signature schemes.
package hash

import (
	"crypto"

	// registers crypto.SHA256/384/512 with the crypto package
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Algorithm is an enumeration of the hash algorithms understood by the
// signature-hash pairing (the high byte of a TLS 1.2 SignatureAndHashAlgorithm).
type Algorithm uint8

// Supported hash algorithms. Ed25519 carries no separate hash step; it is
// listed here only so a (hash, signature) pair can name it.
const (
	None   Algorithm = 0
	SHA256 Algorithm = 4
	SHA384 Algorithm = 5
	SHA512 Algorithm = 6
	Ed25519 Algorithm = 8
)

// Algorithms returns the set of hash algorithms this core recognizes,
// mapped to their crypto.Hash equivalent (zero for Ed25519). None is not
// in the set.
func Algorithms() map[Algorithm]crypto.Hash {
	return map[Algorithm]crypto.Hash{
		SHA256:  crypto.SHA256,
		SHA384:  crypto.SHA384,
		SHA512:  crypto.SHA512,
		Ed25519: 0,
	}
}

// Insecure reports whether this hash algorithm is no longer considered
// collision resistant enough for a CertificateVerify signature.
func (a Algorithm) Insecure() bool {
	return false
}

// CryptoHash returns the stdlib crypto.Hash this algorithm corresponds to.
func (a Algorithm) CryptoHash() crypto.Hash {
	return Algorithms()[a]
}
