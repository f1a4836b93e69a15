// Package aeadctx implements the directional AEAD context (C3): nonce
// construction, the null-cipher pre-handshake variant, and the two
// record-layer AEAD failure policies (fatal for TLS, silent drop for DTLS
// are left to the caller — a failed Open only ever returns errAeadAuth).
package aeadctx

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// Direction tags which half of a duplex connection this context protects.
type Direction uint8

// Directions.
const (
	Open Direction = iota
	Seal
)

var (
	errAeadAuth        = errors.New("aead: authentication failed")
	errSeqOverflow     = errors.New("aead: sequence number would overflow")
	errUnsupportedAead = errors.New("aead: unsupported cipher")
)

// MaxSequence64 is TLS's 64-bit sequence-number cap; DTLS additionally
// caps at recordlayer.MaxSequenceNumber (48 bits) before this is reached.
const MaxSequence64 = ^uint64(0)

// Suite names the underlying AEAD construction.
type Suite uint8

// Supported AEAD suites.
const (
	AES128GCM Suite = iota
	AES256GCM
	Chacha20Poly1305
	NullCipher
)

// Context is one direction (read or write) of AEAD-protected record state.
type Context struct {
	suite      Suite
	aead       cipher.AEAD
	noncePrefix []byte
	direction  Direction
}

// New constructs an AEAD context from a suite, key and static IV
// (noncePrefix, the AEAD's full nonce length; its last 8 bytes are XORed
// with the big-endian sequence number of each record).
func New(suite Suite, key, noncePrefix []byte, direction Direction) (*Context, error) {
	if suite == NullCipher {
		return &Context{suite: suite, direction: direction}, nil
	}

	var aead cipher.AEAD
	var err error

	switch suite {
	case AES128GCM, AES256GCM:
		block, aesErr := aes.NewCipher(key)
		if aesErr != nil {
			return nil, aesErr
		}
		aead, err = cipher.NewGCM(block)
	case Chacha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, errUnsupportedAead
	}
	if err != nil {
		return nil, err
	}

	return &Context{
		suite:       suite,
		aead:        aead,
		noncePrefix: append([]byte{}, noncePrefix...),
		direction:   direction,
	}, nil
}

func (c *Context) nonce(seq uint64) []byte {
	n := make([]byte, len(c.noncePrefix))
	copy(n, c.noncePrefix)

	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)

	off := len(n) - 8
	for i := 0; i < 8; i++ {
		n[off+i] ^= seqBytes[i]
	}

	return n
}

// Seal encrypts and authenticates plaintext under aad for sequence number
// seq. The null-cipher variant copies plaintext through unauthenticated.
func (c *Context) Seal(seq uint64, aad, plaintext []byte) ([]byte, error) {
	if seq == MaxSequence64 {
		return nil, errSeqOverflow
	}
	if c.suite == NullCipher {
		out := make([]byte, len(plaintext))
		copy(out, plaintext)

		return out, nil
	}

	return c.aead.Seal(nil, c.nonce(seq), plaintext, aad), nil
}

// Open authenticates and decrypts ciphertext under aad for sequence
// number seq. On failure the context is left unchanged; the caller
// decides whether to alert (TLS) or silently drop (DTLS).
func (c *Context) Open(seq uint64, aad, ciphertext []byte) ([]byte, error) {
	if c.suite == NullCipher {
		out := make([]byte, len(ciphertext))
		copy(out, ciphertext)

		return out, nil
	}

	pt, err := c.aead.Open(nil, c.nonce(seq), ciphertext, aad)
	if err != nil {
		return nil, errAeadAuth
	}

	return pt, nil
}

// TagLen returns the authentication tag length this suite appends, 0 for
// the null cipher.
func (c *Context) TagLen() int {
	if c.aead == nil {
		return 0
	}

	return c.aead.Overhead()
}

// NonceLen returns the AEAD's nonce length, 0 for the null cipher.
func (c *Context) NonceLen() int {
	if c.aead == nil {
		return 0
	}

	return c.aead.NonceSize()
}

// IsNull reports whether this is the pre-handshake null-cipher variant.
func (c *Context) IsNull() bool { return c.suite == NullCipher }
