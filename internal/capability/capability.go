// Package capability defines the typed seams this core delegates its
// out-of-scope primitives to: hashing, AEAD sealing, signing/verification
// and certificate-chain validation. A default implementation backed by
// the standard library is provided so the module is usable without an
// external provider. The handshake consumes Signer, Verifier and
// CertVerifier through these interfaces; Hash, Aead and Rng are declared
// but not consumed, since the transcript hash, the record-layer AEAD and
// handshake randomness use crypto/sha256, crypto/sha512, crypto/cipher,
// golang.org/x/crypto and crypto/rand directly.
package capability

import (
	"crypto"
	"crypto/x509"
)

// Hash is a cloneable incremental hash, matching crypto/sha256's shape
// closely enough that the default implementation is a thin wrapper.
type Hash interface {
	Update(data []byte)
	Finish() []byte
	Clone() Hash
}

// Aead is a directional authenticated-encryption primitive.
type Aead interface {
	Seal(nonce, aad, plaintext []byte) []byte
	Open(nonce, aad, ciphertext []byte) ([]byte, error)
	KeyLen() int
	NonceLen() int
	TagLen() int
}

// SignatureScheme identifies a (hash, signature algorithm) pair in the
// IANA TLS SignatureScheme encoding (high byte hash, low byte signature).
type SignatureScheme uint16

// Signer produces a signature over msg using the named scheme.
type Signer interface {
	Sign(scheme SignatureScheme, msg []byte) ([]byte, error)
}

// Verifier checks a signature over msg under pubkey using the named scheme.
type Verifier interface {
	Verify(scheme SignatureScheme, pubkey crypto.PublicKey, msg, sig []byte) error
}

// CertVerifier validates a certificate chain and extracts the leaf's
// public key for the subsequent CertificateVerify check.
type CertVerifier interface {
	VerifyChain(chain [][]byte, serverName string) (leafPublicKey crypto.PublicKey, err error)
}

// Rng fills buf with cryptographically secure random bytes.
type Rng interface {
	Fill(buf []byte) error
}

// Provider bundles every capability a Connection needs injected at
// construction, mirroring spec §6's "Capabilities required of
// collaborators" list.
type Provider struct {
	Signer       Signer
	Verifier     Verifier
	CertVerifier CertVerifier
	Rng          Rng
}

// DefaultCertVerifier wraps x509.Certificate.Verify using the system
// root pool, or an explicit pool when one is configured.
type DefaultCertVerifier struct {
	Roots *x509.CertPool
}

// VerifyChain implements CertVerifier using crypto/x509's path builder.
func (d *DefaultCertVerifier) VerifyChain(chain [][]byte, serverName string) (crypto.PublicKey, error) {
	if len(chain) == 0 {
		return nil, errEmptyChain
	}

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, err
	}

	intermediates := x509.NewCertPool()
	for _, raw := range chain[1:] {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, err
		}
		intermediates.AddCert(cert)
	}

	opts := x509.VerifyOptions{
		DNSName:       serverName,
		Roots:         d.Roots,
		Intermediates: intermediates,
	}
	if _, err := leaf.Verify(opts); err != nil {
		return nil, err
	}

	return leaf.PublicKey, nil
}
