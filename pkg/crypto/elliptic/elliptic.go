// Package elliptic wraps crypto/ecdh for the named curves a key_share
// extension can negotiate, behind a Curve enum stable across the wire.
package elliptic

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
)

var errInvalidNamedCurve = errors.New("invalid named curve")

// Curve is a named elliptic curve / finite field group usable in key_share.
type Curve uint16

// Supported groups (IANA TLS Supported Groups registry values).
const (
	P256   Curve = 23
	P384   Curve = 24
	P521   Curve = 25
	X25519 Curve = 29
)

func (c Curve) String() string {
	switch c {
	case P256:
		return "P-256"
	case P384:
		return "P-384"
	case P521:
		return "P-521"
	case X25519:
		return "X25519"
	default:
		return fmt.Sprintf("0x%x", uint16(c))
	}
}

func (c Curve) toECDH() (ecdh.Curve, error) {
	switch c {
	case P256:
		return ecdh.P256(), nil
	case P384:
		return ecdh.P384(), nil
	case P521:
		return ecdh.P521(), nil
	case X25519:
		return ecdh.X25519(), nil
	default:
		return nil, errInvalidNamedCurve
	}
}

// Keypair is an ephemeral ECDH keypair for a single key_share entry.
type Keypair struct {
	Curve      Curve
	PublicKey  []byte
	PrivateKey *ecdh.PrivateKey
}

// GenerateKeypair generates a fresh ephemeral keypair on the given curve.
func GenerateKeypair(curve Curve) (*Keypair, error) {
	c, err := curve.toECDH()
	if err != nil {
		return nil, err
	}

	priv, err := c.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		Curve:      curve,
		PublicKey:  priv.PublicKey().Bytes(),
		PrivateKey: priv,
	}, nil
}

// SharedSecret computes the ECDH shared secret from this keypair's private
// key and a peer's raw public key bytes.
func (k *Keypair) SharedSecret(peerPublicKey []byte) ([]byte, error) {
	c, err := k.Curve.toECDH()
	if err != nil {
		return nil, err
	}

	peer, err := c.NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, err
	}

	return k.PrivateKey.ECDH(peer)
}
