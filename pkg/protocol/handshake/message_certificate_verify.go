package handshake

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/crypto/hash"
	"github.com/tlscore/tlscore/pkg/crypto/signature"
)

// MessageCertificateVerify carries the signature over the transcript hash
// (TLS 1.3) or over the handshake messages seen so far (TLS 1.2).
type MessageCertificateVerify struct {
	HashAlgorithm      hash.Algorithm
	SignatureAlgorithm signature.Algorithm
	Signature          []byte
}

// Type implements Message.
func (m *MessageCertificateVerify) Type() Type { return TypeCertificateVerify }

// Marshal encodes the message.
func (m *MessageCertificateVerify) Marshal() ([]byte, error) {
	out := []byte{byte(m.HashAlgorithm), byte(m.SignatureAlgorithm)}

	sigLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigLen, uint16(len(m.Signature)))
	out = append(out, sigLen...)
	out = append(out, m.Signature...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageCertificateVerify) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	h := hash.Algorithm(data[0])
	s := signature.Algorithm(data[1])
	if _, ok := hash.Algorithms()[h]; !ok {
		return errInvalidHashAlgorithm
	}
	if !signature.Algorithms()[s] {
		return errInvalidSignatureAlgorithm
	}
	m.HashAlgorithm = h
	m.SignatureAlgorithm = s

	sigLen := int(binary.BigEndian.Uint16(data[2:4]))
	data = data[4:]
	if len(data) < sigLen {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[:sigLen]...)

	return nil
}
