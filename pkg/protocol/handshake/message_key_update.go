package handshake

// KeyUpdateRequest indicates whether a KeyUpdate's sender is also asking
// the peer to update its own sending keys in response.
type KeyUpdateRequest uint8

// KeyUpdate request values (RFC 8446 section 4.6.3).
const (
	UpdateNotRequested KeyUpdateRequest = 0
	UpdateRequested    KeyUpdateRequest = 1
)

// MessageKeyUpdate signals a one-directional traffic-secret ratchet.
type MessageKeyUpdate struct {
	RequestUpdate KeyUpdateRequest
}

// Type implements Message.
func (m *MessageKeyUpdate) Type() Type { return TypeKeyUpdate }

// Marshal encodes the message.
func (m *MessageKeyUpdate) Marshal() ([]byte, error) {
	return []byte{byte(m.RequestUpdate)}, nil
}

// Unmarshal decodes the message.
func (m *MessageKeyUpdate) Unmarshal(data []byte) error {
	if len(data) != 1 {
		return errBufferTooSmall
	}
	m.RequestUpdate = KeyUpdateRequest(data[0])

	return nil
}
