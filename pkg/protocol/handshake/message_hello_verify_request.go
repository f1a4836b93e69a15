package handshake

import "github.com/tlscore/tlscore/pkg/protocol"

// MessageHelloVerifyRequest is DTLS's anti-amplification stateless-cookie
// message (RFC 6347 section 4.2.1), sent in place of ServerHello on a
// ClientHello that lacks a valid Cookie.
type MessageHelloVerifyRequest struct {
	Version protocol.Version
	Cookie  []byte
}

// Type implements Message.
func (m *MessageHelloVerifyRequest) Type() Type { return TypeHelloVerifyRequest }

// Marshal encodes the message.
func (m *MessageHelloVerifyRequest) Marshal() ([]byte, error) {
	if len(m.Cookie) > 255 {
		return nil, errCookieTooLong
	}

	out := []byte{m.Version.Major, m.Version.Minor, byte(len(m.Cookie))}
	out = append(out, m.Cookie...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageHelloVerifyRequest) Unmarshal(data []byte) error {
	if len(data) < 3 {
		return errBufferTooSmall
	}
	m.Version = protocol.Version{Major: data[0], Minor: data[1]}
	cookieLen := int(data[2])
	data = data[3:]
	if len(data) < cookieLen {
		return errBufferTooSmall
	}
	m.Cookie = append([]byte{}, data[:cookieLen]...)

	return nil
}
