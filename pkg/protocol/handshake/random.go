package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"
)

// RandomLength is the length of the Random value carried by ClientHello
// and ServerHello.
const RandomLength = 32

// Random is the 32-byte value each side of the handshake contributes,
// mixed into the transcript and (for TLS 1.2) the master secret derivation.
type Random struct {
	GMTUnixTime time.Time
	RandomBytes [28]byte
}

// Populate fills in the current time and cryptographically random bytes.
func (r *Random) Populate() error {
	r.GMTUnixTime = time.Now()

	_, err := io.ReadFull(rand.Reader, r.RandomBytes[:])

	return err
}

// MarshalFixed encodes the Random to its 32-byte wire form.
func (r *Random) MarshalFixed() [RandomLength]byte {
	var out [RandomLength]byte
	binary.BigEndian.PutUint32(out[0:4], uint32(r.GMTUnixTime.Unix()))
	copy(out[4:], r.RandomBytes[:])

	return out
}

// UnmarshalFixed decodes a 32-byte wire Random.
func (r *Random) UnmarshalFixed(data [RandomLength]byte) {
	r.GMTUnixTime = time.Unix(int64(binary.BigEndian.Uint32(data[0:4])), 0)
	copy(r.RandomBytes[:], data[4:])
}
