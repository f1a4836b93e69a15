package handshake

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/crypto/clientcertificate"
	"github.com/tlscore/tlscore/pkg/crypto/hash"
	"github.com/tlscore/tlscore/pkg/crypto/signature"
	"github.com/tlscore/tlscore/pkg/crypto/signaturehash"
)

// MessageCertificateRequest is the TLS 1.2 CertificateRequest handshake
// message: https://tools.ietf.org/html/rfc5246#section-7.4.4
type MessageCertificateRequest struct {
	CertificateTypes            []clientcertificate.Type
	SignatureHashAlgorithms     []signaturehash.Algorithm
	CertificateAuthoritiesNames [][]byte
}

// Type implements Message.
func (m *MessageCertificateRequest) Type() Type { return TypeCertificateRequest }

// Marshal encodes the message.
func (m *MessageCertificateRequest) Marshal() ([]byte, error) {
	out := make([]byte, 1, 1+len(m.CertificateTypes))
	out[0] = byte(len(m.CertificateTypes))
	for _, t := range m.CertificateTypes {
		out = append(out, byte(t))
	}

	sigHash := make([]byte, 0, len(m.SignatureHashAlgorithms)*2)
	for _, a := range m.SignatureHashAlgorithms {
		sigHash = append(sigHash, byte(a.Hash), byte(a.Signature))
	}
	sigHashLen := make([]byte, 2)
	binary.BigEndian.PutUint16(sigHashLen, uint16(len(sigHash)))
	out = append(out, sigHashLen...)
	out = append(out, sigHash...)

	var cas []byte
	for _, name := range m.CertificateAuthoritiesNames {
		nameLen := make([]byte, 2)
		binary.BigEndian.PutUint16(nameLen, uint16(len(name)))
		cas = append(cas, nameLen...)
		cas = append(cas, name...)
	}
	casLen := make([]byte, 2)
	binary.BigEndian.PutUint16(casLen, uint16(len(cas)))
	out = append(out, casLen...)
	out = append(out, cas...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageCertificateRequest) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	certTypesLen := int(data[0])
	data = data[1:]
	if len(data) < certTypesLen {
		return errBufferTooSmall
	}
	m.CertificateTypes = nil
	for _, b := range data[:certTypesLen] {
		m.CertificateTypes = append(m.CertificateTypes, clientcertificate.Type(b))
	}
	data = data[certTypesLen:]

	if len(data) < 2 {
		return errBufferTooSmall
	}
	sigHashLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]
	if len(data) < sigHashLen || sigHashLen%2 != 0 {
		return errBufferTooSmall
	}
	knownHashes := hash.Algorithms()
	knownSigs := signature.Algorithms()
	m.SignatureHashAlgorithms = nil
	for i := 0; i < sigHashLen; i += 2 {
		h := hash.Algorithm(data[i])
		s := signature.Algorithm(data[i+1])
		if _, ok := knownHashes[h]; !ok || !knownSigs[s] {
			continue
		}
		m.SignatureHashAlgorithms = append(m.SignatureHashAlgorithms, signaturehash.Algorithm{Hash: h, Signature: s})
	}
	data = data[sigHashLen:]

	if len(data) < 2 {
		return errBufferTooSmall
	}
	casLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]
	if len(data) < casLen {
		return errBufferTooSmall
	}
	data = data[:casLen]

	m.CertificateAuthoritiesNames = nil
	for len(data) > 0 {
		if len(data) < 2 {
			return errBufferTooSmall
		}
		nameLen := int(binary.BigEndian.Uint16(data[0:2]))
		data = data[2:]
		if len(data) < nameLen {
			return errBufferTooSmall
		}
		m.CertificateAuthoritiesNames = append(m.CertificateAuthoritiesNames, data[:nameLen])
		data = data[nameLen:]
	}

	return nil
}
