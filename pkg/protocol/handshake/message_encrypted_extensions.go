package handshake

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/protocol/extension"
)

// MessageEncryptedExtensions carries the TLS 1.3 EncryptedExtensions
// block: every ServerHello extension that doesn't need to be visible
// before key derivation moves here so it travels encrypted.
type MessageEncryptedExtensions struct {
	Extensions []extension.Extension
}

// Type implements Message.
func (m *MessageEncryptedExtensions) Type() Type { return TypeEncryptedExtensions }

// Marshal encodes the message.
func (m *MessageEncryptedExtensions) Marshal() ([]byte, error) {
	extBytes, err := extension.Marshal(m.Extensions)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 2, 2+len(extBytes))
	binary.BigEndian.PutUint16(out, uint16(len(extBytes)))
	out = append(out, extBytes...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageEncryptedExtensions) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
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
