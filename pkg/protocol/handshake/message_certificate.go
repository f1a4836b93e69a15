package handshake

import "encoding/binary"

// MessageCertificate carries the certificate chain. TLS 1.3 wraps each
// entry with a per-certificate extensions block (always empty here,
// since this core has no certificate-specific extension to offer); the
// TLS 1.2 form omits both the context and per-cert extensions.
type MessageCertificate struct {
	Context      []byte // TLS 1.3 certificate_request_context, empty for a server Certificate
	Certificates [][]byte
}

// Type implements Message.
func (m *MessageCertificate) Type() Type { return TypeCertificate }

// Marshal encodes the message in its TLS 1.3 form (1-byte context length
// prefix). With Context set to nil, the context field and the
// per-certificate extensions are omitted, which is the TLS 1.2 form.
func (m *MessageCertificate) Marshal() ([]byte, error) {
	var out []byte
	if m.Context != nil {
		if len(m.Context) > 255 {
			return nil, errCookieTooLong
		}
		out = append(out, byte(len(m.Context)))
		out = append(out, m.Context...)
	}

	var certs []byte
	for _, c := range m.Certificates {
		certLen := make([]byte, 3)
		putUint24(certLen, uint32(len(c)))
		certs = append(certs, certLen...)
		certs = append(certs, c...)
		if m.Context != nil {
			certs = append(certs, 0x00, 0x00) // empty per-certificate extensions
		}
	}

	listLen := make([]byte, 3)
	putUint24(listLen, uint32(len(certs)))
	out = append(out, listLen...)
	out = append(out, certs...)

	return out, nil
}

// Unmarshal decodes the message. tls13 selects which wire form to expect.
func (m *MessageCertificate) Unmarshal(data []byte, tls13 bool) error {
	if tls13 {
		if len(data) < 1 {
			return errBufferTooSmall
		}
		ctxLen := int(data[0])
		data = data[1:]
		if len(data) < ctxLen {
			return errBufferTooSmall
		}
		m.Context = append([]byte{}, data[:ctxLen]...)
		data = data[ctxLen:]
	}

	if len(data) < 3 {
		return errBufferTooSmall
	}
	listLen := int(getUint24(data[0:3]))
	data = data[3:]
	if len(data) < listLen {
		return errBufferTooSmall
	}
	data = data[:listLen]

	m.Certificates = nil
	for len(data) > 0 {
		if len(data) < 3 {
			return errBufferTooSmall
		}
		certLen := int(getUint24(data[0:3]))
		data = data[3:]
		if len(data) < certLen {
			return errBufferTooSmall
		}
		m.Certificates = append(m.Certificates, append([]byte{}, data[:certLen]...))
		data = data[certLen:]

		if tls13 {
			if len(data) < 2 {
				return errBufferTooSmall
			}
			extLen := int(binary.BigEndian.Uint16(data[0:2]))
			data = data[2:]
			if len(data) < extLen {
				return errBufferTooSmall
			}
			data = data[extLen:]
		}
	}

	return nil
}
