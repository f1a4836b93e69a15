// Package handshake implements the handshake protocol layer: message
// framing (with DTLS fragmentation/reassembly) and the concrete handshake
// message bodies exchanged by both TLS 1.2/1.3 and DTLS 1.2/1.3.
package handshake

import "encoding/binary"

// Type is the one-byte HandshakeType field.
type Type uint8

// Handshake message types this core sends or parses.
const (
	TypeHelloRequest       Type = 0
	TypeClientHello        Type = 1
	TypeServerHello        Type = 2
	TypeHelloVerifyRequest Type = 3
	TypeNewSessionTicket   Type = 4
	TypeEndOfEarlyData     Type = 5
	TypeEncryptedExtensions Type = 8
	TypeCertificate        Type = 11
	TypeServerKeyExchange  Type = 12
	TypeCertificateRequest Type = 13
	TypeServerHelloDone    Type = 14
	TypeCertificateVerify  Type = 15
	TypeClientKeyExchange  Type = 16
	TypeFinished           Type = 20
	TypeKeyUpdate          Type = 24
	TypeMessageHash        Type = 254
)

func (t Type) String() string {
	switch t {
	case TypeHelloRequest:
		return "HelloRequest"
	case TypeClientHello:
		return "ClientHello"
	case TypeServerHello:
		return "ServerHello"
	case TypeHelloVerifyRequest:
		return "HelloVerifyRequest"
	case TypeNewSessionTicket:
		return "NewSessionTicket"
	case TypeEndOfEarlyData:
		return "EndOfEarlyData"
	case TypeEncryptedExtensions:
		return "EncryptedExtensions"
	case TypeCertificate:
		return "Certificate"
	case TypeServerKeyExchange:
		return "ServerKeyExchange"
	case TypeCertificateRequest:
		return "CertificateRequest"
	case TypeServerHelloDone:
		return "ServerHelloDone"
	case TypeCertificateVerify:
		return "CertificateVerify"
	case TypeClientKeyExchange:
		return "ClientKeyExchange"
	case TypeFinished:
		return "Finished"
	case TypeKeyUpdate:
		return "KeyUpdate"
	case TypeMessageHash:
		return "MessageHash"
	default:
		return "Unknown"
	}
}

// Message is a single handshake message body, exclusive of its header.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	Type() Type
}

// Header is the handshake message header. Length is the TLS 1.2/1.3
// uint24 body length. MessageSequence/FragmentOffset/FragmentLength are
// DTLS-only fields, zero (and unused on the wire) for TLS.
type Header struct {
	Type            Type
	Length          uint32
	MessageSequence uint16
	FragmentOffset  uint32
	FragmentLength  uint32
}

// HeaderLength is the size of a DTLS handshake header (12 bytes); the TLS
// header is the first 4 bytes of the same layout.
const HeaderLength = 12

// Marshal encodes a DTLS-style 12-byte header. Callers targeting TLS use
// the first 4 bytes only (MarshalTLS).
func (h *Header) Marshal() ([]byte, error) {
	out := make([]byte, HeaderLength)
	out[0] = byte(h.Type)
	putUint24(out[1:4], h.Length)
	binary.BigEndian.PutUint16(out[4:6], h.MessageSequence)
	putUint24(out[6:9], h.FragmentOffset)
	putUint24(out[9:12], h.FragmentLength)

	return out, nil
}

// MarshalTLS encodes the 4-byte TLS handshake header (no message_seq /
// fragment fields).
func (h *Header) MarshalTLS() []byte {
	out := make([]byte, 4)
	out[0] = byte(h.Type)
	putUint24(out[1:4], h.Length)

	return out
}

// Unmarshal decodes a DTLS-style 12-byte header.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < HeaderLength {
		return errBufferTooSmall
	}
	h.Type = Type(data[0])
	h.Length = getUint24(data[1:4])
	h.MessageSequence = binary.BigEndian.Uint16(data[4:6])
	h.FragmentOffset = getUint24(data[6:9])
	h.FragmentLength = getUint24(data[9:12])

	if h.FragmentOffset+h.FragmentLength > h.Length {
		// A fragment reaching past the declared message length is
		// malformed; fragments covering only part of Length are
		// reassembled by the caller.
		return errLengthMismatch
	}

	return nil
}

// UnmarshalTLS decodes the 4-byte TLS handshake header.
func (h *Header) UnmarshalTLS(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	h.Type = Type(data[0])
	h.Length = getUint24(data[1:4])
	h.FragmentLength = h.Length

	return nil
}

func putUint24(dst []byte, v uint32) {
	dst[0] = byte(v >> 16)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v)
}

func getUint24(src []byte) uint32 {
	return uint32(src[0])<<16 | uint32(src[1])<<8 | uint32(src[2])
}
