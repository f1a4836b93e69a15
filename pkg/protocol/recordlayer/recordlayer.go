// Package recordlayer implements the record framing shared by TLS and
// DTLS: the 5-byte TLS header, the 13-byte DTLS 1.0/1.2 header, and the
// DTLS 1.3 unified header with its compressed epoch/sequence encoding.
package recordlayer

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/protocol"
)

// HeaderSize is the length of a TLS record header.
const HeaderSize = 5

// DTLSHeaderSize is the length of a DTLS 1.0/1.2 classic record header.
const DTLSHeaderSize = 13

// MaxSequenceNumber is the largest 48-bit sequence number a DTLS epoch can
// carry before the connection must rekey into a new epoch.
const MaxSequenceNumber = 0x0000FFFFFFFFFFFF

// Header is the record header, shared across both wire forms; which
// fields are meaningful depends on which Marshal/Unmarshal variant is used.
type Header struct {
	ContentType    protocol.ContentType
	Version        protocol.Version
	Epoch          uint16
	SequenceNumber uint64 // 48 bits on the wire
	ContentLen     uint16
}

// Marshal encodes a TLS record header (content type, version, length).
func (h *Header) Marshal() ([]byte, error) {
	out := make([]byte, HeaderSize)
	out[0] = byte(h.ContentType)
	out[1] = h.Version.Major
	out[2] = h.Version.Minor
	binary.BigEndian.PutUint16(out[3:5], h.ContentLen)

	return out, nil
}

// Unmarshal decodes a TLS record header.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < HeaderSize {
		return errBufferTooSmall
	}
	h.ContentType = protocol.ContentType(data[0])
	h.Version = protocol.Version{Major: data[1], Minor: data[2]}
	h.ContentLen = binary.BigEndian.Uint16(data[3:5])

	return nil
}

// MarshalDTLS encodes a DTLS 1.0/1.2 classic 13-byte header (content
// type, version, 2-byte epoch, 6-byte sequence number, 2-byte length).
func (h *Header) MarshalDTLS() ([]byte, error) {
	if h.SequenceNumber > MaxSequenceNumber {
		return nil, errSequenceNumberOverflow
	}

	out := make([]byte, DTLSHeaderSize)
	out[0] = byte(h.ContentType)
	out[1] = h.Version.Major
	out[2] = h.Version.Minor
	binary.BigEndian.PutUint16(out[3:5], h.Epoch)
	putUint48(out[5:11], h.SequenceNumber)
	binary.BigEndian.PutUint16(out[11:13], h.ContentLen)

	return out, nil
}

// UnmarshalDTLS decodes a DTLS 1.0/1.2 classic header.
func (h *Header) UnmarshalDTLS(data []byte) error {
	if len(data) < DTLSHeaderSize {
		return errBufferTooSmall
	}
	h.ContentType = protocol.ContentType(data[0])
	h.Version = protocol.Version{Major: data[1], Minor: data[2]}
	h.Epoch = binary.BigEndian.Uint16(data[3:5])
	h.SequenceNumber = getUint48(data[5:11])
	h.ContentLen = binary.BigEndian.Uint16(data[11:13])

	if h.Version.Major != 0xfe {
		return errUnsupportedProtocolVersion
	}

	return nil
}

func putUint48(dst []byte, v uint64) {
	dst[0] = byte(v >> 40)
	dst[1] = byte(v >> 32)
	dst[2] = byte(v >> 24)
	dst[3] = byte(v >> 16)
	dst[4] = byte(v >> 8)
	dst[5] = byte(v)
}

func getUint48(src []byte) uint64 {
	return uint64(src[0])<<40 | uint64(src[1])<<32 | uint64(src[2])<<24 |
		uint64(src[3])<<16 | uint64(src[4])<<8 | uint64(src[5])
}

// UnifiedHeader is the DTLS 1.3 record header (RFC 9147 section 4): a
// single type-and-flags byte followed by an 8- or 16-bit sequence number
// and an optional 16-bit length, all CID-free here since this core does
// not negotiate Connection IDs.
type UnifiedHeader struct {
	EpochLowBits     uint8 // low 2 bits of the epoch, per the wire format
	SequenceNumber16 bool  // true selects a 16-bit sequence number field
	HasLength        bool
	SequenceNumber   uint16
	ContentLen       uint16
}

const unifiedHeaderFixedBits = 0x20 // top three bits 0b001 identify a unified header

// Marshal encodes a DTLS 1.3 unified header.
func (u *UnifiedHeader) Marshal() ([]byte, error) {
	first := byte(unifiedHeaderFixedBits)
	first |= u.EpochLowBits & 0x03
	if u.SequenceNumber16 {
		first |= 0x08
	}
	if u.HasLength {
		first |= 0x04
	}

	out := []byte{first}
	if u.SequenceNumber16 {
		seq := make([]byte, 2)
		binary.BigEndian.PutUint16(seq, u.SequenceNumber)
		out = append(out, seq...)
	} else {
		out = append(out, byte(u.SequenceNumber))
	}

	if u.HasLength {
		l := make([]byte, 2)
		binary.BigEndian.PutUint16(l, u.ContentLen)
		out = append(out, l...)
	}

	return out, nil
}

// Unmarshal decodes a DTLS 1.3 unified header.
func (u *UnifiedHeader) Unmarshal(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, errBufferTooSmall
	}
	first := data[0]
	if first&0xe0 != unifiedHeaderFixedBits {
		return 0, errInvalidContentType
	}

	u.EpochLowBits = first & 0x03
	u.SequenceNumber16 = first&0x08 != 0
	u.HasLength = first&0x04 != 0

	offset := 1
	if u.SequenceNumber16 {
		if len(data) < offset+2 {
			return 0, errBufferTooSmall
		}
		u.SequenceNumber = binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
	} else {
		if len(data) < offset+1 {
			return 0, errBufferTooSmall
		}
		u.SequenceNumber = uint16(data[offset])
		offset++
	}

	if u.HasLength {
		if len(data) < offset+2 {
			return 0, errBufferTooSmall
		}
		u.ContentLen = binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
	}

	return offset, nil
}
