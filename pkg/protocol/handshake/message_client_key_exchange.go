package handshake

// MessageClientKeyExchange is the TLS 1.2 ClientKeyExchange message for
// the ECDHE exchange: the client's ephemeral public key, length-prefixed.
type MessageClientKeyExchange struct {
	PublicKey []byte
}

// Type implements Message.
func (m *MessageClientKeyExchange) Type() Type { return TypeClientKeyExchange }

// Marshal encodes the message.
func (m *MessageClientKeyExchange) Marshal() ([]byte, error) {
	if len(m.PublicKey) > 255 {
		return nil, errInvalidClientKeyExchange
	}

	out := []byte{byte(len(m.PublicKey))}
	out = append(out, m.PublicKey...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageClientKeyExchange) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	pubLen := int(data[0])
	data = data[1:]
	if len(data) < pubLen {
		return errBufferTooSmall
	}
	m.PublicKey = append([]byte{}, data[:pubLen]...)

	return nil
}
