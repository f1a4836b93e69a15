package handshake

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/crypto/elliptic"
	"github.com/tlscore/tlscore/pkg/crypto/hash"
	"github.com/tlscore/tlscore/pkg/crypto/signature"
)

// MessageServerKeyExchange is the TLS 1.2 ServerKeyExchange message for
// the ECDHE key exchange this core supports (named_curve form only; the
// explicit-curve forms are not offered).
type MessageServerKeyExchange struct {
	NamedCurve         elliptic.Curve
	PublicKey          []byte
	HashAlgorithm      hash.Algorithm
	SignatureAlgorithm signature.Algorithm
	Signature          []byte
}

// Type implements Message.
func (m *MessageServerKeyExchange) Type() Type { return TypeServerKeyExchange }

const ecCurveTypeNamedCurve = 0x03

// Marshal encodes the message.
func (m *MessageServerKeyExchange) Marshal() ([]byte, error) {
	out := []byte{ecCurveTypeNamedCurve}

	curve := make([]byte, 2)
	binary.BigEndian.PutUint16(curve, uint16(m.NamedCurve))
	out = append(out, curve...)

	out = append(out, byte(len(m.PublicKey)))
	out = append(out, m.PublicKey...)

	out = append(out, byte(m.HashAlgorithm), byte(m.SignatureAlgorithm))

	sigLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigLen, uint16(len(m.Signature)))
	out = append(out, sigLen...)
	out = append(out, m.Signature...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageServerKeyExchange) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	if data[0] != ecCurveTypeNamedCurve {
		return errInvalidEllipticCurveType
	}
	m.NamedCurve = elliptic.Curve(binary.BigEndian.Uint16(data[1:3]))

	pubLen := int(data[3])
	data = data[4:]
	if len(data) < pubLen {
		return errBufferTooSmall
	}
	m.PublicKey = append([]byte{}, data[:pubLen]...)
	data = data[pubLen:]

	if len(data) < 4 {
		return errBufferTooSmall
	}
	m.HashAlgorithm = hash.Algorithm(data[0])
	m.SignatureAlgorithm = signature.Algorithm(data[1])
	sigLen := int(binary.BigEndian.Uint16(data[2:4]))
	data = data[4:]
	if len(data) < sigLen {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[:sigLen]...)

	return nil
}
