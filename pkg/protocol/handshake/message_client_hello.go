package handshake

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/protocol"
	"github.com/tlscore/tlscore/pkg/protocol/extension"
)

// MessageClientHello is the ClientHello handshake message, shared (modulo
// the Cookie field, DTLS-only) by TLS 1.2, TLS 1.3 and both DTLS versions.
type MessageClientHello struct {
	Version            protocol.Version
	Random             Random
	SessionID          []byte
	Cookie             []byte // DTLS only; empty on TLS and on an unhardened first flight
	CipherSuiteIDs     []uint16
	CompressionMethods []byte
	Extensions         []extension.Extension
}

// Type implements Message.
func (m *MessageClientHello) Type() Type { return TypeClientHello }

// Marshal encodes the message.
func (m *MessageClientHello) Marshal() ([]byte, error) {
	out := []byte{m.Version.Major, m.Version.Minor}

	random := m.Random.MarshalFixed()
	out = append(out, random[:]...)

	if len(m.SessionID) > 255 {
		return nil, errSessionIDTooLarge
	}
	out = append(out, byte(len(m.SessionID)))
	out = append(out, m.SessionID...)

	if m.Version.IsDTLS() {
		if len(m.Cookie) > 255 {
			return nil, errCookieTooLong
		}
		out = append(out, byte(len(m.Cookie)))
		out = append(out, m.Cookie...)
	}

	suites := make([]byte, len(m.CipherSuiteIDs)*2)
	for i, id := range m.CipherSuiteIDs {
		binary.BigEndian.PutUint16(suites[i*2:], id)
	}
	suitesLen := make([]byte, 2)
	binary.BigEndian.PutUint16(suitesLen, uint16(len(suites)))
	out = append(out, suitesLen...)
	out = append(out, suites...)

	out = append(out, byte(len(m.CompressionMethods)))
	out = append(out, m.CompressionMethods...)

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

// Unmarshal decodes the message. Whether a DTLS Cookie field is read is
// decided from the Version field read off the wire.
func (m *MessageClientHello) Unmarshal(data []byte) error {
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

	if m.Version.IsDTLS() {
		if len(data) < 1 {
			return errBufferTooSmall
		}
		cookieLen := int(data[0])
		data = data[1:]
		if len(data) < cookieLen {
			return errBufferTooSmall
		}
		m.Cookie = append([]byte{}, data[:cookieLen]...)
		data = data[cookieLen:]
	}

	if len(data) < 2 {
		return errBufferTooSmall
	}
	suitesLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]
	if len(data) < suitesLen || suitesLen%2 != 0 {
		return errBufferTooSmall
	}
	m.CipherSuiteIDs = nil
	for i := 0; i < suitesLen; i += 2 {
		m.CipherSuiteIDs = append(m.CipherSuiteIDs, binary.BigEndian.Uint16(data[i:i+2]))
	}
	data = data[suitesLen:]

	if len(data) < 1 {
		return errBufferTooSmall
	}
	compLen := int(data[0])
	data = data[1:]
	if len(data) < compLen {
		return errBufferTooSmall
	}
	m.CompressionMethods = append([]byte{}, data[:compLen]...)
	data = data[compLen:]

	if len(data) < 2 {
		return nil // extensions are optional
	}
	extLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]
	if len(data) < extLen {
		return errBufferTooSmall
	}
	exts, err := extension.Unmarshal(data[:extLen])
	if err != nil {
		return err
	}
	m.Extensions = exts

	return nil
}
