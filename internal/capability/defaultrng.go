package capability

import "crypto/rand"

// DefaultRng fills buffers using crypto/rand.
type DefaultRng struct{}

// Fill implements Rng.
func (DefaultRng) Fill(buf []byte) error {
	_, err := rand.Read(buf)

	return err
}
