// Package session implements the durable session cache and ticket
// machinery (C10): tagged serialization of resumption state, an
// LRU-bounded cache shared across connections, and rotating-key ticket
// encryption.
package session

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/tlscore/tlscore/internal/ciphersuite"
)

// Session is the durable authentication and key material a Connection
// hands to the cache on completion. Immutable and reference-counted
// from that point on; it may outlive the Connection that produced it.
type Session struct {
	mu   sync.Mutex
	refs int

	Version          uint16
	CipherSuite      ciphersuite.ID
	SessionID        []byte
	MasterSecret     []byte
	PeerCertificates [][]byte // opaque DER blobs, owned by the cert verifier
	ServerName       string
	ALPNProtocol     string
	Ticket           []byte
	TicketAgeAdd     uint32
	TicketLifetime   uint32
	TimeOfIssue      time.Time
	PSKIdentityHint  []byte
	PeerCertHash     []byte // optional sha256 of the leaf, for fast comparison
}

// New creates a Session with one reference held by the caller.
func New() *Session {
	return &Session{refs: 1}
}

// Retain adds a reference, returning the same Session for chaining.
func (s *Session) Retain() *Session {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()

	return s
}

// Release drops a reference. The last release is the caller's cue to
// stop using the Session; this package does not itself free memory on
// refs reaching zero, since Go's GC does that once nothing points to it.
func (s *Session) Release() {
	s.mu.Lock()
	s.refs--
	s.mu.Unlock()
}

// Clone returns a copy safe for the caller to read and discard without
// disturbing a cached entry — the cache's Get always returns a clone,
// never the cached pointer itself (§4.10).
func (s *Session) Clone() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := &Session{
		refs:            1,
		Version:         s.Version,
		CipherSuite:     s.CipherSuite,
		SessionID:       append([]byte{}, s.SessionID...),
		MasterSecret:    append([]byte{}, s.MasterSecret...),
		ServerName:      s.ServerName,
		ALPNProtocol:    s.ALPNProtocol,
		Ticket:          append([]byte{}, s.Ticket...),
		TicketAgeAdd:    s.TicketAgeAdd,
		TicketLifetime:  s.TicketLifetime,
		TimeOfIssue:     s.TimeOfIssue,
		PSKIdentityHint: append([]byte{}, s.PSKIdentityHint...),
		PeerCertHash:    append([]byte{}, s.PeerCertHash...),
	}

	clone.PeerCertificates = make([][]byte, len(s.PeerCertificates))
	for i, cert := range s.PeerCertificates {
		clone.PeerCertificates[i] = append([]byte{}, cert...)
	}

	return clone
}

// Serialization tags, following the context-tagged layout of the wire
// format: an explicit version integer, the negotiated protocol version,
// cipher id, session id and master key, then a run of optional tagged
// fields. Unknown tags on Unmarshal are ignored; missing tags take their
// documented zero-value defaults.
const (
	tagTime              = 1
	tagTimeout           = 2
	tagPeerCert          = 3
	tagSessionIDContext  = 4
	tagVerifyResult      = 5
	tagHostname          = 6
	tagPSKIdentityHint   = 7
	tagPSKIdentity       = 8
	tagTicketLifetime    = 9
	tagTicket            = 10
	tagPeerSHA256        = 13
	tagOriginalHandshake = 14
	tagSCTList           = 15
	tagOCSPResponse      = 16
)

const serializationVersion uint32 = 1

// Marshal encodes the Session as the tagged structure of §6.
func (s *Session) Marshal() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, 0, 256)
	buf = binary.BigEndian.AppendUint32(buf, serializationVersion)
	buf = binary.BigEndian.AppendUint16(buf, s.Version)
	buf = binary.BigEndian.AppendUint16(buf, uint16(s.CipherSuite))
	buf = appendLV16(buf, s.SessionID)
	buf = appendLV16(buf, s.MasterSecret)

	buf = appendTag(buf, tagTime, encodeTime(s.TimeOfIssue))
	if s.TicketLifetime != 0 {
		buf = appendTag(buf, tagTicketLifetime, encodeUint32(s.TicketLifetime))
	}
	if len(s.Ticket) != 0 {
		buf = appendTag(buf, tagTicket, s.Ticket)
	}
	if s.ServerName != "" {
		buf = appendTag(buf, tagHostname, []byte(s.ServerName))
	}
	if len(s.PSKIdentityHint) != 0 {
		buf = appendTag(buf, tagPSKIdentityHint, s.PSKIdentityHint)
	}
	if len(s.PeerCertHash) != 0 {
		buf = appendTag(buf, tagPeerSHA256, s.PeerCertHash)
	}
	for _, cert := range s.PeerCertificates {
		buf = appendTag(buf, tagPeerCert, cert)
	}

	return buf, nil
}

// Unmarshal decodes a Session previously produced by Marshal.
func Unmarshal(data []byte) (*Session, error) {
	if len(data) < 4+2+2+2 {
		return nil, errShortSession
	}

	data = data[4:] // serialization version, not otherwise consulted

	s := New()
	s.Version = binary.BigEndian.Uint16(data)
	data = data[2:]
	s.CipherSuite = ciphersuite.ID(binary.BigEndian.Uint16(data))
	data = data[2:]

	var err error
	s.SessionID, data, err = readLV16(data)
	if err != nil {
		return nil, err
	}
	s.MasterSecret, data, err = readLV16(data)
	if err != nil {
		return nil, err
	}

	for len(data) > 0 {
		if len(data) < 3 {
			return nil, errTruncatedTag
		}
		tag := data[0]
		length := binary.BigEndian.Uint16(data[1:3])
		data = data[3:]
		if len(data) < int(length) {
			return nil, errTruncatedTag
		}
		value := data[:length]
		data = data[length:]

		switch tag {
		case tagTime:
			s.TimeOfIssue = decodeTime(value)
		case tagTicketLifetime:
			if len(value) == 4 {
				s.TicketLifetime = binary.BigEndian.Uint32(value)
			}
		case tagTicket:
			s.Ticket = append([]byte{}, value...)
		case tagHostname:
			s.ServerName = string(value)
		case tagPSKIdentityHint:
			s.PSKIdentityHint = append([]byte{}, value...)
		case tagPeerSHA256:
			s.PeerCertHash = append([]byte{}, value...)
		case tagPeerCert:
			s.PeerCertificates = append(s.PeerCertificates, append([]byte{}, value...))
		default:
			// tagTimeout, tagSessionIDContext, tagVerifyResult,
			// tagPSKIdentity, tagOriginalHandshake, tagSCTList,
			// tagOCSPResponse and anything unrecognized: ignored.
		}
	}

	return s, nil
}

func appendLV16(buf, v []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(v)))

	return append(buf, v...)
}

func readLV16(data []byte) (value, rest []byte, err error) {
	if len(data) < 2 {
		return nil, nil, errShortSession
	}
	length := binary.BigEndian.Uint16(data)
	data = data[2:]
	if len(data) < int(length) {
		return nil, nil, errShortSession
	}

	return append([]byte{}, data[:length]...), data[length:], nil
}

func appendTag(buf []byte, tag byte, value []byte) []byte {
	buf = append(buf, tag)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(value)))

	return append(buf, value...)
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)

	return b
}

func encodeTime(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.Unix()))

	return b
}

func decodeTime(b []byte) time.Time {
	if len(b) != 8 {
		return time.Time{}
	}

	return time.Unix(int64(binary.BigEndian.Uint64(b)), 0)
}
