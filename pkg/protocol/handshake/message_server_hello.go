package handshake

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/protocol"
	"github.com/tlscore/tlscore/pkg/protocol/extension"
)

// HelloRetryRequestRandom is the special Random value that marks a TLS 1.3
// ServerHello as a HelloRetryRequest (RFC 8446 section 4.1.3).
var HelloRetryRequestRandom = [RandomLength]byte{
	0xCF, 0x21, 0xAD, 0x74, 0xE5, 0x9A, 0x61, 0x11, 0xBE, 0x1D, 0x8C, 0x02, 0x1E, 0x65, 0xB8, 0x91,
	0xC2, 0xA2, 0x11, 0x16, 0x7A, 0xBB, 0x8C, 0x5E, 0x07, 0x9E, 0x09, 0xE2, 0xC8, 0xA8, 0x33, 0x9C,
}

// MessageServerHello is the ServerHello handshake message.
type MessageServerHello struct {
	Version           protocol.Version
	Random            Random
	SessionID         []byte
	CipherSuiteID     *uint16
	CompressionMethod byte
	Extensions        []extension.Extension
}

// Type implements Message.
func (m *MessageServerHello) Type() Type { return TypeServerHello }

// IsHelloRetryRequest reports whether this ServerHello is actually a
// HelloRetryRequest (TLS 1.3 only: same message type, special Random).
func (m *MessageServerHello) IsHelloRetryRequest() bool {
	return m.Random.MarshalFixed() == HelloRetryRequestRandom
}

// Marshal encodes the message.
func (m *MessageServerHello) Marshal() ([]byte, error) {
	if m.CipherSuiteID == nil {
		return nil, errCipherSuiteUnset
	}

	out := []byte{m.Version.Major, m.Version.Minor}

	random := m.Random.MarshalFixed()
	out = append(out, random[:]...)

	if len(m.SessionID) > 255 {
		return nil, errSessionIDTooLarge
	}
	out = append(out, byte(len(m.SessionID)))
	out = append(out, m.SessionID...)

	cs := make([]byte, 2)
	binary.BigEndian.PutUint16(cs, *m.CipherSuiteID)
	out = append(out, cs...)

	out = append(out, m.CompressionMethod)

	extBytes, err := extension.Marshal(m.Extensions)
	if err != nil {
		return nil, err
	}
	extLen := make([]byte, 2)
	binary.BigEndian.PutUint16(extLen, uint16(len(extBytes)))
	out = append(out, extLen...)
	out = append(out, extBytes...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageServerHello) Unmarshal(data []byte) error {
	if len(data) < 2+RandomLength+1 {
		return errBufferTooSmall
	}
	m.Version = protocol.Version{Major: data[0], Minor: data[1]}
	data = data[2:]

	var random [RandomLength]byte
	copy(random[:], data[:RandomLength])
	m.Random.UnmarshalFixed(random)
	data = data[RandomLength:]

	sessIDLen := int(data[0])
	data = data[1:]
	if len(data) < sessIDLen {
		return errBufferTooSmall
	}
	m.SessionID = append([]byte{}, data[:sessIDLen]...)
	data = data[sessIDLen:]

	if len(data) < 3 {
		return errBufferTooSmall
	}
	id := binary.BigEndian.Uint16(data[0:2])
	m.CipherSuiteID = &id
	m.CompressionMethod = data[2]
	data = data[3:]

	if len(data) < 2 {
		return nil
	}
	extLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]
	if len(data) < extLen {
		return errBufferTooSmall
	}
	ksMode := extension.KeyShareServerHello
	if m.IsHelloRetryRequest() {
		ksMode = extension.KeyShareHelloRetryRequest
	}
	exts, err := extension.UnmarshalWithKeyShareMode(data[:extLen], ksMode)
	if err != nil {
		return err
	}
	m.Extensions = exts

	return nil
}
