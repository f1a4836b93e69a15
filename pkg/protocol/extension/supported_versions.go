package extension

import (
	"github.com/tlscore/tlscore/pkg/protocol"
)

// SupportedVersions is the supported_versions extension: a list offered by
// the client, or the single version selected by the server/HelloRetryRequest.
type SupportedVersions struct {
	Versions []protocol.Version
}

// TypeValue implements Extension.
func (s *SupportedVersions) TypeValue() Type { return SupportedVersionsType }

func isKnownDTLSVersion(v protocol.Version) bool {
	return v == protocol.VersionDTLS1_0 || v == protocol.VersionDTLS1_2 || v == protocol.VersionDTLS1_3
}

func isValidVersion(v protocol.Version) bool {
	if v.Major == 0xfe {
		return isKnownDTLSVersion(v)
	}

	return true
}

// Marshal encodes the extension. A single version is written in the
// server/HRR form (a bare selected_version); two or more are written in
// the client form (a length-prefixed list).
func (s *SupportedVersions) Marshal() ([]byte, error) {
	if len(s.Versions) == 1 {
		v := s.Versions[0]
		if !isValidVersion(v) {
			return nil, errInvalidDTLSVersion
		}

		return putHeader(s.TypeValue(), []byte{v.Major, v.Minor}), nil
	}

	listLen := len(s.Versions) * 2
	if listLen > 255 {
		return nil, errInvalidSupportedVersionsFormat
	}

	body := make([]byte, 1, 1+listLen)
	body[0] = byte(listLen)
	for _, v := range s.Versions {
		if !isValidVersion(v) {
			return nil, errInvalidDTLSVersion
		}
		body = append(body, v.Major, v.Minor)
	}

	return putHeader(s.TypeValue(), body), nil
}

// Unmarshal decodes the extension in either its client or server form.
// In the client list, DTLS versions (major byte 0xfe) this core does not
// recognize are dropped rather than rejected, so the known ones can still
// be negotiated; any other value is kept as read.
func (s *SupportedVersions) Unmarshal(data []byte) error {
	body, err := parseHeader(data, s.TypeValue())
	if err != nil {
		return err
	}

	switch {
	case len(body) == 0:
		return errInvalidSupportedVersionsFormat
	case len(body) == 2:
		s.Versions = []protocol.Version{{Major: body[0], Minor: body[1]}}

		return nil
	default:
		listLen := int(body[0])
		rest := body[1:]
		if listLen%2 != 0 || listLen != len(rest) {
			return errInvalidSupportedVersionsFormat
		}

		s.Versions = nil
		for i := 0; i < len(rest); i += 2 {
			v := protocol.Version{Major: rest[i], Minor: rest[i+1]}
			if v.Major == 0xfe && !isKnownDTLSVersion(v) {
				continue
			}
			s.Versions = append(s.Versions, v)
		}

		return nil
	}
}
