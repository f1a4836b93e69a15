// Package protocol holds the wire-level types shared by the record layer,
// the handshake layer and the alert layer: protocol versions, content
// types and the typed-error taxonomy every other package builds on.
package protocol

import "fmt"

// Version is the two-byte (D)TLS version field that appears in the record
// header and in ClientHello/ServerHello.
type Version struct {
	Major, Minor uint8
}

// Equal reports whether two versions are the same wire value.
func (v Version) Equal(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

// String implements fmt.Stringer.
func (v Version) String() string {
	switch v {
	case Version1_0:
		return "TLS1.0"
	case Version1_1:
		return "TLS1.1"
	case Version1_2:
		return "TLS1.2"
	case Version1_3:
		return "TLS1.3"
	case VersionDTLS1_0:
		return "DTLS1.0"
	case VersionDTLS1_2:
		return "DTLS1.2"
	case VersionDTLS1_3:
		return "DTLS1.3"
	default:
		return fmt.Sprintf("0x%02x%02x", v.Major, v.Minor)
	}
}

// IsDTLS reports whether this version value belongs to the DTLS family,
// identified the same way the wire does: every DTLS version has major byte
// 0xfe (the one's complement of DTLS major version 1).
func (v Version) IsDTLS() bool {
	return v.Major == 0xfe
}

// Known protocol versions. TLS 1.0/1.1 are accepted only long enough to be
// rejected with ProtocolVersion; they are never negotiable (spec Non-goals).
var (
	Version1_0    = Version{0x03, 0x01}
	Version1_1    = Version{0x03, 0x02}
	Version1_2    = Version{0x03, 0x03}
	Version1_3    = Version{0x03, 0x04}
	VersionDTLS1_0 = Version{0xfe, 0xff}
	VersionDTLS1_2 = Version{0xfe, 0xfd}
	VersionDTLS1_3 = Version{0xfe, 0xfc}
)

// ContentType is the outer record type (recordlayer.Header.ContentType
// mirrors this, kept here so alert/handshake can refer to it without an
// import cycle on recordlayer).
type ContentType uint8

// Registered content types (spec §6).
const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
	ContentTypeHeartbeat        ContentType = 24 // rejected, never negotiated
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeChangeCipherSpec:
		return "ChangeCipherSpec"
	case ContentTypeAlert:
		return "Alert"
	case ContentTypeHandshake:
		return "Handshake"
	case ContentTypeApplicationData:
		return "ApplicationData"
	case ContentTypeHeartbeat:
		return "Heartbeat"
	default:
		return fmt.Sprintf("ContentType(%d)", uint8(c))
	}
}

// ChangeCipherSpec is the trivial single-byte message body for content type 20.
type ChangeCipherSpec struct{}

// Marshal implements the wire encoder; the body is always the single byte 1.
func (c *ChangeCipherSpec) Marshal() ([]byte, error) {
	return []byte{1}, nil
}

// Unmarshal validates the single-byte body.
func (c *ChangeCipherSpec) Unmarshal(data []byte) error {
	if len(data) != 1 || data[0] != 1 {
		return errInvalidChangeCipherSpec
	}

	return nil
}
