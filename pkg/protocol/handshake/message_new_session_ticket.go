package handshake

import "encoding/binary"

// MessageNewSessionTicket is the TLS 1.3 post-handshake ticket issuance
// message (RFC 8446 section 4.6.1), carrying the resumption secret's
// opaque wire handle and the parameters that bound its use.
type MessageNewSessionTicket struct {
	LifetimeSeconds uint32
	AgeAdd          uint32
	Nonce           []byte
	Ticket          []byte
	MaxEarlyData    uint32 // 0 if early data is not permitted with this ticket
}

// Type implements Message.
func (m *MessageNewSessionTicket) Type() Type { return TypeNewSessionTicket }

// Marshal encodes the message. MaxEarlyData is carried as an
// early_data extension when nonzero, matching RFC 8446 section 4.6.1.
func (m *MessageNewSessionTicket) Marshal() ([]byte, error) {
	out := make([]byte, 8)
	binary.BigEndian.PutUint32(out[0:4], m.LifetimeSeconds)
	binary.BigEndian.PutUint32(out[4:8], m.AgeAdd)

	out = append(out, byte(len(m.Nonce)))
	out = append(out, m.Nonce...)

	ticketLen := make([]byte, 2)
	binary.BigEndian.PutUint16(ticketLen, uint16(len(m.Ticket)))
	out = append(out, ticketLen...)
	out = append(out, m.Ticket...)

	var exts []byte
	if m.MaxEarlyData > 0 {
		body := make([]byte, 4)
		binary.BigEndian.PutUint32(body, m.MaxEarlyData)
		exts = append(exts, 0x00, 0x2a, 0x00, 0x04) // early_data extension type 42
		exts = append(exts, body...)
	}
	extLen := make([]byte, 2)
	binary.BigEndian.PutUint16(extLen, uint16(len(exts)))
	out = append(out, extLen...)
	out = append(out, exts...)

	return out, nil
}

// Unmarshal decodes the message.
func (m *MessageNewSessionTicket) Unmarshal(data []byte) error {
	if len(data) < 9 {
		return errBufferTooSmall
	}
	m.LifetimeSeconds = binary.BigEndian.Uint32(data[0:4])
	m.AgeAdd = binary.BigEndian.Uint32(data[4:8])
	nonceLen := int(data[8])
	data = data[9:]
	if len(data) < nonceLen {
		return errBufferTooSmall
	}
	m.Nonce = append([]byte{}, data[:nonceLen]...)
	data = data[nonceLen:]

	if len(data) < 2 {
		return errBufferTooSmall
	}
	ticketLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]
	if len(data) < ticketLen {
		return errBufferTooSmall
	}
	m.Ticket = append([]byte{}, data[:ticketLen]...)
	data = data[ticketLen:]

	if len(data) < 2 {
		return errBufferTooSmall
	}
	extLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]
	if len(data) < extLen {
		return errBufferTooSmall
	}
	ext := data[:extLen]
	m.MaxEarlyData = 0
	for len(ext) >= 4 {
		typ := binary.BigEndian.Uint16(ext[0:2])
		l := int(binary.BigEndian.Uint16(ext[2:4]))
		if len(ext) < 4+l {
			return errBufferTooSmall
		}
		if typ == 0x2a && l == 4 {
			m.MaxEarlyData = binary.BigEndian.Uint32(ext[4 : 4+l])
		}
		ext = ext[4+l:]
	}

	return nil
}
