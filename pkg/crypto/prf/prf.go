// Package prf implements the TLS 1.2 pseudorandom function (RFC 5246
// section 5) and the handful of values it derives: the master secret,
// the extended master secret (RFC 7627) and Finished verify_data.
package prf

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
)

func pHash(h func() hash.Hash, secret, seed []byte, length int) []byte {
	out := make([]byte, 0, length)

	mac := hmac.New(h, secret)
	mac.Write(seed) //nolint:errcheck
	a := mac.Sum(nil)

	for len(out) < length {
		mac.Reset()
		mac.Write(a)    //nolint:errcheck
		mac.Write(seed) //nolint:errcheck
		out = append(out, mac.Sum(nil)...)

		mac.Reset()
		mac.Write(a) //nolint:errcheck
		a = mac.Sum(nil)
	}

	return out[:length]
}

// MasterSecret derives the 48-byte master secret from the premaster
// secret and the client/server randoms (RFC 5246 section 8.1).
func MasterSecret(preMasterSecret, clientRandom, serverRandom []byte) []byte {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)

	return pHash(sha256.New, preMasterSecret, append([]byte("master secret"), seed...), 48)
}

// ExtendedMasterSecret derives the master secret using the session-hash
// binding of RFC 7627, closing the triple-handshake vulnerability that
// plain MasterSecret is exposed to.
func ExtendedMasterSecret(preMasterSecret, sessionHash []byte) []byte {
	return pHash(sha256.New, preMasterSecret, append([]byte("extended master secret"), sessionHash...), 48)
}

// GenerateEncryptionKeys expands the master secret into the classic
// key_block: client/server MAC keys, write keys, and (for block/stream
// ciphers) write IVs. AEAD suites consume only the keys, deriving their
// nonce from a 4-byte implicit prefix in place of a MAC key and IV.
func GenerateEncryptionKeys(
	masterSecret, clientRandom, serverRandom []byte,
	macLen, keyLen, ivLen int,
) (clientMAC, serverMAC, clientKey, serverKey, clientIV, serverIV []byte) {
	seed := append(append([]byte{}, serverRandom...), clientRandom...)
	blockLen := 2*macLen + 2*keyLen + 2*ivLen
	block := pHash(sha256.New, masterSecret, append([]byte("key expansion"), seed...), blockLen)

	off := 0
	take := func(n int) []byte {
		out := block[off : off+n]
		off += n

		return out
	}

	clientMAC = take(macLen)
	serverMAC = take(macLen)
	clientKey = take(keyLen)
	serverKey = take(keyLen)
	clientIV = take(ivLen)
	serverIV = take(ivLen)

	return clientMAC, serverMAC, clientKey, serverKey, clientIV, serverIV
}

// VerifyDataClient computes the client Finished verify_data (RFC 5246
// section 7.4.9): PRF(master_secret, "client finished", session_hash)[0:12].
func VerifyDataClient(masterSecret, sessionHash []byte) []byte {
	return pHash(sha256.New, masterSecret, append([]byte("client finished"), sessionHash...), 12)
}

// VerifyDataServer computes the server Finished verify_data.
func VerifyDataServer(masterSecret, sessionHash []byte) []byte {
	return pHash(sha256.New, masterSecret, append([]byte("server finished"), sessionHash...), 12)
}
