package handshake

// MessageFinished carries the verify_data computed over the transcript
// hash with the per-direction finished_key (TLS 1.3) or the PRF-derived
// value (TLS 1.2).
type MessageFinished struct {
	VerifyData []byte
}

// Type implements Message.
func (m *MessageFinished) Type() Type { return TypeFinished }

// Marshal encodes the message; the body is the bare verify_data.
func (m *MessageFinished) Marshal() ([]byte, error) {
	return append([]byte{}, m.VerifyData...), nil
}

// Unmarshal decodes the message.
func (m *MessageFinished) Unmarshal(data []byte) error {
	m.VerifyData = append([]byte{}, data...)

	return nil
}
