package extension

import "encoding/binary"

const serverNameTypeHostName = 0

// ServerNameExtension is the server_name (SNI) extension: a single host_name entry,
// which is all this core ever sends or expects (RFC 6066 section 3
// permits a list, but no other name type is registered).
type ServerNameExtension struct {
	HostName string
}

// TypeValue implements Extension.
func (s *ServerNameExtension) TypeValue() Type { return ServerName }

// Marshal encodes the extension.
func (s *ServerNameExtension) Marshal() ([]byte, error) {
	name := []byte(s.HostName)
	if len(name) > 0xffff {
		return nil, errInvalidSNIFormat
	}

	entry := make([]byte, 1+2+len(name))
	entry[0] = serverNameTypeHostName
	binary.BigEndian.PutUint16(entry[1:3], uint16(len(name)))
	copy(entry[3:], name)

	body := make([]byte, 2, 2+len(entry))
	binary.BigEndian.PutUint16(body, uint16(len(entry)))
	body = append(body, entry...)

	return putHeader(s.TypeValue(), body), nil
}

// Unmarshal decodes the extension, keeping only the host_name entry and
// skipping any other name type the peer included.
func (s *ServerNameExtension) Unmarshal(data []byte) error {
	body, err := parseHeader(data, s.TypeValue())
	if err != nil {
		return err
	}
	if len(body) < 2 {
		return errInvalidSNIFormat
	}
	listLen := int(binary.BigEndian.Uint16(body[0:2]))
	rest := body[2:]
	if listLen != len(rest) {
		return errInvalidSNIFormat
	}

	for len(rest) > 0 {
		if len(rest) < 3 {
			return errInvalidSNIFormat
		}
		nameType := rest[0]
		nameLen := int(binary.BigEndian.Uint16(rest[1:3]))
		rest = rest[3:]
		if len(rest) < nameLen {
			return errInvalidSNIFormat
		}
		if nameType == serverNameTypeHostName {
			s.HostName = string(rest[:nameLen])

			return nil
		}
		rest = rest[nameLen:]
	}

	return errInvalidSNIFormat
}
