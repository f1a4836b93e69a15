package capability

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"

	"github.com/tlscore/tlscore/pkg/crypto/hash"
	"github.com/tlscore/tlscore/pkg/crypto/signature"
)

// DefaultSigner signs with a crypto.Signer private key, selecting the
// hash algorithm named by the SignatureScheme's high byte.
type DefaultSigner struct {
	PrivateKey crypto.Signer
}

func schemeParts(s SignatureScheme) (hash.Algorithm, signature.Algorithm) {
	return hash.Algorithm(s >> 8), signature.Algorithm(s & 0xFF)
}

// Sign implements Signer.
func (d *DefaultSigner) Sign(scheme SignatureScheme, msg []byte) ([]byte, error) {
	h, sig := schemeParts(scheme)

	switch sig {
	case signature.Ed25519:
		key, ok := d.PrivateKey.(ed25519.PrivateKey)
		if !ok {
			return nil, errWrongKeyType
		}

		return ed25519.Sign(key, msg), nil
	case signature.ECDSA:
		cryptoHash := h.CryptoHash()
		if !cryptoHash.Available() {
			return nil, errHashUnavailable
		}
		hasher := cryptoHash.New()
		hasher.Write(msg) //nolint:errcheck

		return d.PrivateKey.Sign(nil, hasher.Sum(nil), cryptoHash)
	default:
		return nil, errUnsupportedScheme
	}
}

// DefaultVerifier verifies signatures produced by DefaultSigner's peer.
type DefaultVerifier struct{}

// Verify implements Verifier.
func (d *DefaultVerifier) Verify(scheme SignatureScheme, pubkey crypto.PublicKey, msg, sig []byte) error {
	h, sa := schemeParts(scheme)

	switch sa {
	case signature.Ed25519:
		key, ok := pubkey.(ed25519.PublicKey)
		if !ok {
			return errWrongKeyType
		}
		if !ed25519.Verify(key, msg, sig) {
			return errSignatureInvalid
		}

		return nil
	case signature.ECDSA:
		key, ok := pubkey.(*ecdsa.PublicKey)
		if !ok {
			return errWrongKeyType
		}
		cryptoHash := h.CryptoHash()
		if !cryptoHash.Available() {
			return errHashUnavailable
		}
		hasher := cryptoHash.New()
		hasher.Write(msg) //nolint:errcheck
		if !ecdsa.VerifyASN1(key, hasher.Sum(nil), sig) {
			return errSignatureInvalid
		}

		return nil
	default:
		return errUnsupportedScheme
	}
}
