package extension

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/crypto/hash"
	"github.com/tlscore/tlscore/pkg/crypto/signature"
	"github.com/tlscore/tlscore/pkg/crypto/signaturehash"
)

// SupportedSignatureAlgorithms is the signature_algorithms extension: the
// ordered list of (hash, signature) pairs the sender is willing to verify.
type SupportedSignatureAlgorithms struct {
	SignatureHashAlgorithms []signaturehash.Algorithm
}

// TypeValue implements Extension.
func (s *SupportedSignatureAlgorithms) TypeValue() Type { return SignatureAlgorithms }

// Marshal encodes the extension.
func (s *SupportedSignatureAlgorithms) Marshal() ([]byte, error) {
	listLen := len(s.SignatureHashAlgorithms) * 2

	body := make([]byte, 2, 2+listLen)
	binary.BigEndian.PutUint16(body, uint16(listLen))
	for _, a := range s.SignatureHashAlgorithms {
		body = append(body, byte(a.Hash), byte(a.Signature))
	}

	return putHeader(s.TypeValue(), body), nil
}

// Unmarshal decodes the extension, skipping any pair naming an
// unrecognized hash or signature algorithm.
func (s *SupportedSignatureAlgorithms) Unmarshal(data []byte) error {
	body, err := parseHeader(data, s.TypeValue())
	if err != nil {
		return err
	}
	if len(body) < 2 {
		return errInvalidSignatureHashAlgorithmsFormat
	}

	listLen := int(binary.BigEndian.Uint16(body[0:2]))
	rest := body[2:]
	if listLen != len(rest) || listLen%2 != 0 {
		return errInvalidSignatureHashAlgorithmsFormat
	}

	knownHashes := hash.Algorithms()
	knownSigs := signature.Algorithms()

	s.SignatureHashAlgorithms = nil
	for i := 0; i < len(rest); i += 2 {
		h := hash.Algorithm(rest[i])
		sig := signature.Algorithm(rest[i+1])
		if _, ok := knownHashes[h]; !ok {
			continue
		}
		if !knownSigs[sig] {
			continue
		}
		s.SignatureHashAlgorithms = append(s.SignatureHashAlgorithms, signaturehash.Algorithm{Hash: h, Signature: sig})
	}

	return nil
}
