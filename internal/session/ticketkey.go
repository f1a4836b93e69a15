package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"sync"
)

// ticketAEAD is one generation of the ticket-encryption key: a 16-byte
// name carried on the wire so a ticket can be matched back to the
// generation that sealed it, and the AEAD itself.
//
// Ticket sealing needs a fresh random nonce per call rather than the
// sequence-number-derived nonce aeadctx.Context provides (tickets aren't
// part of a record sequence), so this wraps crypto/cipher's AES-GCM
// directly instead of going through aeadctx.
type ticketAEAD struct {
	name [16]byte
	aead cipher.AEAD
}

// KeyStore holds the rotating generations of the process-wide
// ticket-encryption key (§4.10: "Ticket keys are process-wide; rotation
// replaces them atomically"). The prior generation is kept for one
// rotation so tickets issued just before a Rotate still decrypt.
type KeyStore struct {
	mu      sync.RWMutex
	current *ticketAEAD
	prior   *ticketAEAD
}

// NewKeyStore creates a KeyStore with one freshly generated key.
func NewKeyStore() (*KeyStore, error) {
	ks := &KeyStore{}
	if err := ks.Rotate(); err != nil {
		return nil, err
	}

	return ks, nil
}

// Rotate generates a new key generation and atomically promotes it to
// current, demoting the old current to prior.
func (ks *KeyStore) Rotate() error {
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	var name [16]byte
	if _, err := rand.Read(name[:]); err != nil {
		return err
	}

	gen := &ticketAEAD{name: name, aead: gcm}

	ks.mu.Lock()
	ks.prior = ks.current
	ks.current = gen
	ks.mu.Unlock()

	return nil
}

// Seal encrypts plaintext under the current key generation, producing a
// wire ticket of key-name || nonce || ciphertext.
func (ks *KeyStore) Seal(plaintext []byte) ([]byte, error) {
	ks.mu.RLock()
	gen := ks.current
	ks.mu.RUnlock()

	if gen == nil {
		return nil, errKeyStoreEmpty
	}

	nonce := make([]byte, gen.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(gen.name)+len(nonce)+len(plaintext)+gen.aead.Overhead())
	out = append(out, gen.name[:]...)
	out = append(out, nonce...)
	out = gen.aead.Seal(out, nonce, plaintext, nil)

	return out, nil
}

// Open decrypts a ticket produced by Seal, trying the current and then
// the prior key generation by name. Any failure — unknown name, short
// ticket, bad authentication tag — is reported as a plain miss; per
// §4.10 this must never raise an alert, since an expired or
// foreign-origin ticket is an expected, benign occurrence.
func (ks *KeyStore) Open(ticket []byte) (plaintext []byte, ok bool) {
	if len(ticket) < 16 {
		return nil, false
	}

	var name [16]byte
	copy(name[:], ticket[:16])
	body := ticket[16:]

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	for _, gen := range [2]*ticketAEAD{ks.current, ks.prior} {
		if gen == nil || gen.name != name {
			continue
		}

		nonceLen := gen.aead.NonceSize()
		if len(body) < nonceLen {
			return nil, false
		}

		nonce, ciphertext := body[:nonceLen], body[nonceLen:]

		pt, err := gen.aead.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return nil, false
		}

		return pt, true
	}

	return nil, false
}

// NewTicketAgeAdd generates the random 32-bit value a server adds to a
// ticket's obfuscated age (RFC 8446 section 4.6.1), so a client's
// plaintext ticket age never leaks on the wire.
func NewTicketAgeAdd() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b[:]), nil
}
