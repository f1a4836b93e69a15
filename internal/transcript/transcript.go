// Package transcript implements the rolling handshake-message hash (C1):
// every message body, header included, is appended as it is sent or
// validated, and the hash algorithm binds only once the cipher suite (and
// therefore PRF hash) is chosen.
package transcript

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// Hash accumulates handshake message bytes. Before Rebind is called the
// raw bytes are buffered verbatim so the eventual hash can be computed
// retroactively, exactly as a TLS 1.3 ClientHello's own content must be
// hashed under a suite negotiated only after the ServerHello arrives.
type Hash struct {
	algo   Algo
	h      hash.Hash
	buffer []byte // raw bytes seen before Rebind; nil after binding
}

// Algo names a transcript hash algorithm, fixed once the cipher suite is
// chosen.
type Algo uint8

// Supported transcript hash algorithms (the only two any cipher suite in
// this core negotiates).
const (
	SHA256 Algo = 1
	SHA384 Algo = 2
)

// New creates an unbound transcript hash; call Rebind once the suite
// negotiates a hash algorithm.
func New() *Hash {
	return &Hash{}
}

// Update appends bytes to the transcript: the caller's serialized outgoing
// message or validated incoming message, header included.
func (t *Hash) Update(data []byte) {
	if t.h == nil {
		t.buffer = append(t.buffer, data...)

		return
	}
	t.h.Write(data) //nolint:errcheck // hash.Hash.Write never errors
}

// Rebind fixes the hash algorithm and replays every byte buffered so far.
// It must be called exactly once, when the cipher suite is chosen.
func (t *Hash) Rebind(algo Algo) {
	t.algo = algo
	switch algo {
	case SHA384:
		t.h = sha512.New384()
	default:
		t.h = sha256.New()
	}
	if t.buffer != nil {
		t.h.Write(t.buffer) //nolint:errcheck
		t.buffer = nil
	}
}

// Snapshot returns the digest of the transcript as it stands now, without
// disturbing the rolling state (clones the underlying hash.Hash).
func (t *Hash) Snapshot() []byte {
	if t.h == nil {
		// Pre-negotiation snapshot: hash the raw buffer under SHA-256 so
		// callers probing state before Rebind still get a stable digest.
		h := sha256.New()
		h.Write(t.buffer) //nolint:errcheck

		return h.Sum(nil)
	}

	clone := cloneHash(t.h, t.algo)

	return clone.Sum(nil)
}

func cloneHash(h hash.Hash, algo Algo) hash.Hash {
	// crypto/sha256 and crypto/sha512 hash.Hash implementations support
	// the standard encoding.BinaryMarshaler/Unmarshaler pair; use it to
	// clone without re-hashing the whole transcript.
	marshaler, ok := h.(interface{ MarshalBinary() ([]byte, error) })
	if !ok {
		// Fall back to a fresh hash of nothing; callers that need this
		// path (pre-Rebind) never reach here since Snapshot special-cases it.
		if algo == SHA384 {
			return sha512.New384()
		}

		return sha256.New()
	}

	state, err := marshaler.MarshalBinary()
	if err != nil {
		if algo == SHA384 {
			return sha512.New384()
		}

		return sha256.New()
	}

	var clone hash.Hash
	if algo == SHA384 {
		clone = sha512.New384()
	} else {
		clone = sha256.New()
	}
	if unmarshaler, ok := clone.(interface{ UnmarshalBinary([]byte) error }); ok {
		_ = unmarshaler.UnmarshalBinary(state)
	}

	return clone
}

// ReplaceWithMessageHash implements the HelloRetryRequest transcript
// surgery of RFC 8446 section 4.4.1: once a second ClientHello is sent,
// ClientHello1 is replaced in the transcript by a synthetic
// message_hash(ClientHello1) handshake message.
func (t *Hash) ReplaceWithMessageHash(clientHello1Digest []byte, algo Algo) {
	header := []byte{254, 0, 0, byte(len(clientHello1Digest))} // handshake type 254 = message_hash
	t.algo = algo
	switch algo {
	case SHA384:
		t.h = sha512.New384()
	default:
		t.h = sha256.New()
	}
	t.buffer = nil
	t.h.Write(header)              //nolint:errcheck
	t.h.Write(clientHello1Digest) //nolint:errcheck
}
