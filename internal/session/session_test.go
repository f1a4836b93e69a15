package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tlscore/tlscore/internal/ciphersuite"
)

func TestSessionMarshalRoundtrip(t *testing.T) {
	s := New()
	s.Version = 0x0304
	s.CipherSuite = ciphersuite.TLS13_AES_128_GCM_SHA256
	s.SessionID = []byte{1, 2, 3, 4}
	s.MasterSecret = make([]byte, 48)
	s.ServerName = "example.com"
	s.Ticket = []byte("opaque-ticket-bytes")
	s.TicketLifetime = 7200
	s.PSKIdentityHint = []byte("hint")
	s.PeerCertHash = []byte{0xaa, 0xbb}
	s.PeerCertificates = [][]byte{{0x30, 0x82}, {0x30, 0x81}}
	s.TimeOfIssue = time.Unix(1700000000, 0)

	encoded, err := s.Marshal()
	assert.NoError(t, err)

	decoded, err := Unmarshal(encoded)
	assert.NoError(t, err)

	assert.Equal(t, s.Version, decoded.Version)
	assert.Equal(t, s.CipherSuite, decoded.CipherSuite)
	assert.Equal(t, s.SessionID, decoded.SessionID)
	assert.Equal(t, s.MasterSecret, decoded.MasterSecret)
	assert.Equal(t, s.ServerName, decoded.ServerName)
	assert.Equal(t, s.Ticket, decoded.Ticket)
	assert.Equal(t, s.TicketLifetime, decoded.TicketLifetime)
	assert.Equal(t, s.PSKIdentityHint, decoded.PSKIdentityHint)
	assert.Equal(t, s.PeerCertHash, decoded.PeerCertHash)
	assert.Equal(t, s.PeerCertificates, decoded.PeerCertificates)
	assert.Equal(t, s.TimeOfIssue.Unix(), decoded.TimeOfIssue.Unix())
}

func TestSessionUnmarshalIgnoresUnknownTag(t *testing.T) {
	s := New()
	s.SessionID = []byte{9}
	s.MasterSecret = []byte{1, 2, 3}
	encoded, err := s.Marshal()
	assert.NoError(t, err)

	// Append an unrecognized tag (tag 99) the decoder must skip.
	encoded = appendTag(encoded, 99, []byte("from-the-future"))

	decoded, err := Unmarshal(encoded)
	assert.NoError(t, err)
	assert.Equal(t, s.SessionID, decoded.SessionID)
}

func TestSessionUnmarshalShort(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2, 3})
	assert.ErrorIs(t, err, errShortSession)
}

func TestSessionCloneIsIndependent(t *testing.T) {
	s := New()
	s.SessionID = []byte{1, 2, 3}

	clone := s.Clone()
	clone.SessionID[0] = 0xff

	assert.Equal(t, byte(1), s.SessionID[0])
}

func TestCacheGetReturnsClone(t *testing.T) {
	c, err := NewCache(2)
	assert.NoError(t, err)

	s := New()
	s.SessionID = []byte{1, 2, 3}
	c.Put("peer-a", s)

	got, ok := c.Get("peer-a")
	assert.True(t, ok)
	got.SessionID[0] = 0xff

	again, ok := c.Get("peer-a")
	assert.True(t, ok)
	assert.Equal(t, byte(1), again.SessionID[0])
}

func TestCacheEvictsOverCapacity(t *testing.T) {
	c, err := NewCache(1)
	assert.NoError(t, err)

	c.Put("a", New())
	c.Put("b", New())

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestTicketKeyStoreSealOpenRoundtrip(t *testing.T) {
	ks, err := NewKeyStore()
	assert.NoError(t, err)

	ticket, err := ks.Seal([]byte("master-secret-bytes"))
	assert.NoError(t, err)

	plaintext, ok := ks.Open(ticket)
	assert.True(t, ok)
	assert.Equal(t, []byte("master-secret-bytes"), plaintext)
}

func TestTicketKeyStoreOpenSurvivesOneRotation(t *testing.T) {
	ks, err := NewKeyStore()
	assert.NoError(t, err)

	ticket, err := ks.Seal([]byte("pre-rotation"))
	assert.NoError(t, err)

	assert.NoError(t, ks.Rotate())

	plaintext, ok := ks.Open(ticket)
	assert.True(t, ok)
	assert.Equal(t, []byte("pre-rotation"), plaintext)

	assert.NoError(t, ks.Rotate())

	_, ok = ks.Open(ticket)
	assert.False(t, ok, "a ticket from two rotations ago must be a miss, not an alert-raising error")
}

func TestTicketKeyStoreOpenRejectsCorruptTicket(t *testing.T) {
	ks, err := NewKeyStore()
	assert.NoError(t, err)

	ticket, err := ks.Seal([]byte("data"))
	assert.NoError(t, err)
	ticket[len(ticket)-1] ^= 0xff

	_, ok := ks.Open(ticket)
	assert.False(t, ok)
}
