package handoff

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecordMarshalRoundtrip(t *testing.T) {
	r := &Record{
		TraceID:             uuid.New(),
		ProtocolVersion:     0x0303,
		MaxCertList:         65536,
		MaxSendFragment:     16384,
		ReadSeq:             7,
		WriteSeq:            9,
		ReadIV:              []byte{1, 2, 3, 4},
		WriteIV:             []byte{5, 6, 7, 8},
		SessionReused:       true,
		ChannelIDValid:      false,
		ClientCertRequested: true,
		Session:             []byte("serialized-session"),
		ALPN:                "h2",
		SNI:                 "example.com",
		Transcript:          []byte("every handshake message seen so far"),
	}
	copy(r.ServerRandom[:], []byte("server-random-32-bytes-exactly!!"))
	copy(r.ClientRandom[:], []byte("client-random-32-bytes-exactly!!"))
	copy(r.ChannelID[:], []byte("channel-id-bytes"))

	encoded, err := r.Marshal()
	assert.NoError(t, err)

	decoded, err := Unmarshal(encoded)
	assert.NoError(t, err)

	assert.Equal(t, r.TraceID, decoded.TraceID)
	assert.Equal(t, r.ProtocolVersion, decoded.ProtocolVersion)
	assert.Equal(t, r.MaxCertList, decoded.MaxCertList)
	assert.Equal(t, r.MaxSendFragment, decoded.MaxSendFragment)
	assert.Equal(t, r.ReadSeq, decoded.ReadSeq)
	assert.Equal(t, r.WriteSeq, decoded.WriteSeq)
	assert.Equal(t, r.ServerRandom, decoded.ServerRandom)
	assert.Equal(t, r.ClientRandom, decoded.ClientRandom)
	assert.Equal(t, r.ReadIV, decoded.ReadIV)
	assert.Equal(t, r.WriteIV, decoded.WriteIV)
	assert.Equal(t, r.SessionReused, decoded.SessionReused)
	assert.Equal(t, r.ChannelIDValid, decoded.ChannelIDValid)
	assert.Equal(t, r.ClientCertRequested, decoded.ClientCertRequested)
	assert.Equal(t, r.Session, decoded.Session)
	assert.Equal(t, r.ALPN, decoded.ALPN)
	assert.Equal(t, r.SNI, decoded.SNI)
	assert.Equal(t, r.ChannelID, decoded.ChannelID)
	assert.Equal(t, r.Transcript, decoded.Transcript)
}

func TestRecordResumeState(t *testing.T) {
	withCert := &Record{ClientCertRequested: true}
	assert.Equal(t, ResumeReadClientCertificate, withCert.ResumeState())

	withoutCert := &Record{ClientCertRequested: false}
	assert.Equal(t, ResumeFinishServerHandshake, withoutCert.ResumeState())
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	r := &Record{TraceID: uuid.New()}
	encoded, err := r.Marshal()
	assert.NoError(t, err)
	encoded[3] = 0xff // corrupt the low byte of the version field

	_, err = Unmarshal(encoded)
	assert.ErrorIs(t, err, errUnsupportedVersion)
}

func TestUnmarshalRejectsShortRecord(t *testing.T) {
	_, err := Unmarshal([]byte{0, 0, 0, 1})
	assert.ErrorIs(t, err, errShortRecord)
}
