// Package keyschedule implements the TLS 1.3 key schedule tree (C2):
// Early Secret → Handshake Secret → Master Secret, and the
// HKDF-Expand-Label traffic-key derivations hung off each.
package keyschedule

import (
	"crypto/hmac"
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/hkdf"
)

// HashFunc constructs the transcript/PRF hash this schedule runs over
// (SHA-256 or SHA-384, fixed by cipher-suite selection).
type HashFunc func() hash.Hash

// Schedule walks the TLS 1.3 secret tree one step at a time; each method
// corresponds to one node, called in wire order as the handshake proceeds.
type Schedule struct {
	hash     HashFunc
	hashLen  int
	earlySecret       []byte
	handshakeSecret   []byte
	masterSecret      []byte
}

// New creates a Schedule for the given hash.
func New(h HashFunc) *Schedule {
	hashLen := len(h().Sum(nil))

	return &Schedule{hash: h, hashLen: hashLen}
}

func (s *Schedule) extract(salt, ikm []byte) []byte {
	if ikm == nil {
		ikm = make([]byte, s.hashLen)
	}
	if salt == nil {
		salt = make([]byte, s.hashLen)
	}

	extractor := hmac.New(s.hash, salt)
	extractor.Write(ikm) //nolint:errcheck

	return extractor.Sum(nil)
}

// expandLabel implements RFC 8446 section 7.1's HKDF-Expand-Label: the
// info string is `len(out) || "tls13 " || label || context`.
func (s *Schedule) expandLabel(secret []byte, label string, context []byte, length int) []byte {
	fullLabel := "tls13 " + label

	info := make([]byte, 0, 2+1+len(fullLabel)+1+len(context))
	info = binary.BigEndian.AppendUint16(info, uint16(length))
	info = append(info, byte(len(fullLabel)))
	info = append(info, fullLabel...)
	info = append(info, byte(len(context)))
	info = append(info, context...)

	out := make([]byte, length)
	reader := hkdf.Expand(s.hash, secret, info)
	if _, err := reader.Read(out); err != nil {
		// hkdf.Expand's Read only fails if more output is requested than
		// 255*hashLen bytes, which never happens for any label here.
		panic(err)
	}

	return out
}

func (s *Schedule) deriveSecret(secret []byte, label string, transcript []byte) []byte {
	return s.expandLabel(secret, label, transcript, s.hashLen)
}

// EarlySecret derives the Early Secret from psk (nil for no external/
// resumption PSK, which extracts from an all-zero IKM).
func (s *Schedule) EarlySecret(psk []byte) []byte {
	s.earlySecret = s.extract(nil, psk)

	return s.earlySecret
}

// HandshakeSecret derives the Handshake Secret from the (EC)DHE shared
// secret, salted by Derive-Secret(EarlySecret, "derived", "").
func (s *Schedule) HandshakeSecret(dhe []byte) []byte {
	salt := s.deriveSecret(s.earlySecret, "derived", s.emptyHash())
	s.handshakeSecret = s.extract(salt, dhe)

	return s.handshakeSecret
}

// MasterSecret derives the Master Secret, salted by
// Derive-Secret(HandshakeSecret, "derived", "").
func (s *Schedule) MasterSecret() []byte {
	salt := s.deriveSecret(s.handshakeSecret, "derived", s.emptyHash())
	s.masterSecret = s.extract(salt, nil)

	return s.masterSecret
}

func (s *Schedule) emptyHash() []byte {
	h := s.hash()

	return h.Sum(nil)
}

// ClientHandshakeTrafficSecret derives "c hs traffic" over the transcript
// through ServerHello.
func (s *Schedule) ClientHandshakeTrafficSecret(transcript []byte) []byte {
	return s.deriveSecret(s.handshakeSecret, "c hs traffic", transcript)
}

// ServerHandshakeTrafficSecret derives "s hs traffic" over the transcript
// through ServerHello.
func (s *Schedule) ServerHandshakeTrafficSecret(transcript []byte) []byte {
	return s.deriveSecret(s.handshakeSecret, "s hs traffic", transcript)
}

// ClientApplicationTrafficSecret derives "c ap traffic" over the
// transcript through server Finished.
func (s *Schedule) ClientApplicationTrafficSecret(transcript []byte) []byte {
	return s.deriveSecret(s.masterSecret, "c ap traffic", transcript)
}

// ServerApplicationTrafficSecret derives "s ap traffic" over the
// transcript through server Finished.
func (s *Schedule) ServerApplicationTrafficSecret(transcript []byte) []byte {
	return s.deriveSecret(s.masterSecret, "s ap traffic", transcript)
}

// ExporterMasterSecret derives "exp master" over the transcript through
// server Finished.
func (s *Schedule) ExporterMasterSecret(transcript []byte) []byte {
	return s.deriveSecret(s.masterSecret, "exp master", transcript)
}

// ResumptionMasterSecret derives "res master" over the transcript through
// client Finished.
func (s *Schedule) ResumptionMasterSecret(transcript []byte) []byte {
	return s.deriveSecret(s.masterSecret, "res master", transcript)
}

// FinishedKey derives the per-direction finished_key used to HMAC the
// Finished message's verify_data.
func (s *Schedule) FinishedKey(trafficSecret []byte) []byte {
	return s.expandLabel(trafficSecret, "finished", nil, s.hashLen)
}

// VerifyData computes HMAC(finishedKey, transcriptHash).
func (s *Schedule) VerifyData(finishedKey, transcriptHash []byte) []byte {
	mac := hmac.New(s.hash, finishedKey)
	mac.Write(transcriptHash) //nolint:errcheck

	return mac.Sum(nil)
}

// TrafficKeys derives the record-protection key and IV from a traffic
// secret, per RFC 8446 section 7.3.
func (s *Schedule) TrafficKeys(trafficSecret []byte, keyLen, ivLen int) (key, iv []byte) {
	key = s.expandLabel(trafficSecret, "key", nil, keyLen)
	iv = s.expandLabel(trafficSecret, "iv", nil, ivLen)

	return key, iv
}

// ExpandTicketPSK derives the single-use PSK a NewSessionTicket binds to,
// per RFC 8446 section 4.6.1: HKDF-Expand-Label(resumption_master_secret,
// "resumption", ticket_nonce, Hash.length).
func (s *Schedule) ExpandTicketPSK(resumptionSecret, ticketNonce []byte, length int) []byte {
	return s.expandLabel(resumptionSecret, "resumption", ticketNonce, length)
}

// NextGenerationTrafficSecret implements the KeyUpdate ratchet of RFC
// 8446 section 7.2: application_traffic_secret_N+1 = HKDF-Expand-Label(
// application_traffic_secret_N, "traffic upd", "", Hash.length).
func (s *Schedule) NextGenerationTrafficSecret(trafficSecret []byte) []byte {
	return s.expandLabel(trafficSecret, "traffic upd", nil, s.hashLen)
}
