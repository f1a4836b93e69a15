// Package handoff implements mid-handshake state export/import (C11): a
// server can hand a connection that has just received ClientHello to a
// peer helper process, which resumes it from the same point.
package handoff

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// recordVersion guards the wire format; handback rejects anything else.
const recordVersion uint32 = 1

// ResumeState names the two points a handback resumes at, per the
// server's progress through the handshake at the moment of handoff.
type ResumeState uint8

// ResumeState values.
const (
	// ResumeReadClientCertificate: a CertificateRequest was already sent,
	// so the resumed side waits for the client's Certificate message next.
	ResumeReadClientCertificate ResumeState = iota
	// ResumeFinishServerHandshake: no client certificate was requested;
	// the resumed side goes straight to its final step, installing the
	// application traffic keys.
	ResumeFinishServerHandshake
)

// Record is the exported mid-handshake state. TraceID threads a single
// identifier through the originating process's logs and the resumed
// process's logs, so a handoff can be correlated across both.
type Record struct {
	TraceID uuid.UUID

	ProtocolVersion uint16
	MaxCertList     uint32
	MaxSendFragment uint32

	ReadSeq  uint64
	WriteSeq uint64

	ServerRandom [32]byte
	ClientRandom [32]byte

	ReadIV  []byte
	WriteIV []byte

	SessionReused       bool
	ChannelIDValid      bool
	ClientCertRequested bool

	Session []byte // the session.Session.Marshal() blob, opaque here

	ALPN string
	SNI  string

	ChannelID [64]byte

	Transcript []byte // the full rolling transcript buffer
}

// ResumeState reports where a handback resumes, derived from whether the
// exporting side had already sent a CertificateRequest.
func (r *Record) ResumeState() ResumeState {
	if r.ClientCertRequested {
		return ResumeReadClientCertificate
	}

	return ResumeFinishServerHandshake
}

// Marshal encodes r as the length-prefixed tagged-record format of §4.11.
func (r *Record) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 256+len(r.ReadIV)+len(r.WriteIV)+len(r.Session)+len(r.ALPN)+len(r.SNI)+len(r.Transcript))

	buf = binary.BigEndian.AppendUint32(buf, recordVersion)
	traceBytes, err := r.TraceID.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf = append(buf, traceBytes...) // uuid.UUID always marshals to 16 bytes

	buf = binary.BigEndian.AppendUint16(buf, r.ProtocolVersion)
	buf = binary.BigEndian.AppendUint32(buf, r.MaxCertList)
	buf = binary.BigEndian.AppendUint32(buf, r.MaxSendFragment)

	buf = binary.BigEndian.AppendUint64(buf, r.ReadSeq)
	buf = binary.BigEndian.AppendUint64(buf, r.WriteSeq)

	buf = append(buf, r.ServerRandom[:]...)
	buf = append(buf, r.ClientRandom[:]...)

	buf = appendLV(buf, r.ReadIV)
	buf = appendLV(buf, r.WriteIV)

	buf = append(buf, boolByte(r.SessionReused), boolByte(r.ChannelIDValid), boolByte(r.ClientCertRequested))

	buf = appendLV(buf, r.Session)
	buf = appendLV(buf, []byte(r.ALPN))
	buf = appendLV(buf, []byte(r.SNI))

	buf = append(buf, r.ChannelID[:]...)

	buf = appendLV32(buf, r.Transcript)

	return buf, nil
}

// Unmarshal decodes a Record previously produced by Marshal, restoring
// every field exactly.
func Unmarshal(data []byte) (*Record, error) {
	if len(data) < 4+16 {
		return nil, errShortRecord
	}

	version := binary.BigEndian.Uint32(data)
	if version != recordVersion {
		return nil, errUnsupportedVersion
	}
	data = data[4:]

	r := &Record{}
	if err := r.TraceID.UnmarshalBinary(data[:16]); err != nil {
		return nil, err
	}
	data = data[16:]

	if len(data) < 2+4+4+8+8+32+32 {
		return nil, errShortRecord
	}
	r.ProtocolVersion = binary.BigEndian.Uint16(data)
	data = data[2:]
	r.MaxCertList = binary.BigEndian.Uint32(data)
	data = data[4:]
	r.MaxSendFragment = binary.BigEndian.Uint32(data)
	data = data[4:]
	r.ReadSeq = binary.BigEndian.Uint64(data)
	data = data[8:]
	r.WriteSeq = binary.BigEndian.Uint64(data)
	data = data[8:]
	copy(r.ServerRandom[:], data[:32])
	data = data[32:]
	copy(r.ClientRandom[:], data[:32])
	data = data[32:]

	var err error
	r.ReadIV, data, err = readLV(data)
	if err != nil {
		return nil, err
	}
	r.WriteIV, data, err = readLV(data)
	if err != nil {
		return nil, err
	}

	if len(data) < 3 {
		return nil, errShortRecord
	}
	r.SessionReused = data[0] != 0
	r.ChannelIDValid = data[1] != 0
	r.ClientCertRequested = data[2] != 0
	data = data[3:]

	r.Session, data, err = readLV(data)
	if err != nil {
		return nil, err
	}
	var alpn, sni []byte
	alpn, data, err = readLV(data)
	if err != nil {
		return nil, err
	}
	r.ALPN = string(alpn)
	sni, data, err = readLV(data)
	if err != nil {
		return nil, err
	}
	r.SNI = string(sni)

	if len(data) < 64 {
		return nil, errShortRecord
	}
	copy(r.ChannelID[:], data[:64])
	data = data[64:]

	r.Transcript, _, err = readLV32(data)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}

	return 0
}

func appendLV(buf, v []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(v)))

	return append(buf, v...)
}

func readLV(data []byte) (value, rest []byte, err error) {
	if len(data) < 2 {
		return nil, nil, errShortRecord
	}
	length := binary.BigEndian.Uint16(data)
	data = data[2:]
	if len(data) < int(length) {
		return nil, nil, errShortRecord
	}

	return append([]byte{}, data[:length]...), data[length:], nil
}

func appendLV32(buf, v []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(v)))

	return append(buf, v...)
}

func readLV32(data []byte) (value, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, errShortRecord
	}
	length := binary.BigEndian.Uint32(data)
	data = data[4:]
	if len(data) < int(length) {
		return nil, nil, errShortRecord
	}

	return append([]byte{}, data[:length]...), data[length:], nil
}
