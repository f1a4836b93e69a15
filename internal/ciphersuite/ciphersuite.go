// Package ciphersuite provides the cipher suites this core negotiates,
// registered by their IANA TLS CipherSuite id.
package ciphersuite

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/tlscore/tlscore/internal/aeadctx"
	"github.com/tlscore/tlscore/internal/ciphersuite/types"
	"github.com/tlscore/tlscore/internal/keyschedule"
	"github.com/tlscore/tlscore/internal/transcript"
)

// ID is the two-byte CipherSuite identifier as registered with IANA.
type ID uint16

// Supported cipher suites.
const (
	TLS13_AES_128_GCM_SHA256                    ID = 0x1301 //nolint:revive,stylecheck
	TLS13_AES_256_GCM_SHA384                    ID = 0x1302 //nolint:revive,stylecheck
	TLS13_CHACHA20_POLY1305_SHA256              ID = 0x1303 //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256     ID = 0xc02b //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384     ID = 0xc02c //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256 ID = 0xcca9 //nolint:revive,stylecheck
	TLS_PSK_WITH_AES_128_GCM_SHA256             ID = 0x00a8 //nolint:revive,stylecheck
)

func (i ID) String() string {
	switch i {
	case TLS13_AES_128_GCM_SHA256:
		return "TLS_AES_128_GCM_SHA256"
	case TLS13_AES_256_GCM_SHA384:
		return "TLS_AES_256_GCM_SHA384"
	case TLS13_CHACHA20_POLY1305_SHA256:
		return "TLS_CHACHA20_POLY1305_SHA256"
	case TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:
		return "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"
	case TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384:
		return "TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384"
	case TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256:
		return "TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256"
	case TLS_PSK_WITH_AES_128_GCM_SHA256:
		return "TLS_PSK_WITH_AES_128_GCM_SHA256"
	default:
		return fmt.Sprintf("unknown(0x%04x)", uint16(i))
	}
}

// AuthenticationType re-exports types.AuthenticationType for callers that
// only need the suite package.
type AuthenticationType = types.AuthenticationType

// KeyExchangeAlgorithm re-exports types.KeyExchangeAlgorithm.
type KeyExchangeAlgorithm = types.KeyExchangeAlgorithm

// Re-exported AuthenticationType values, so callers outside this package
// never need to import ciphersuite/types directly.
const (
	AuthenticationTypeCertificate  = types.AuthenticationTypeCertificate
	AuthenticationTypePreSharedKey = types.AuthenticationTypePreSharedKey
	AuthenticationTypeAnonymous    = types.AuthenticationTypeAnonymous
)

// Re-exported KeyExchangeAlgorithm values.
const (
	KeyExchangeAlgorithmNone  = types.KeyExchangeAlgorithmNone
	KeyExchangeAlgorithmPsk   = types.KeyExchangeAlgorithmPsk
	KeyExchangeAlgorithmEcdhe = types.KeyExchangeAlgorithmEcdhe
)

// CipherSuite describes one negotiable suite: its AEAD construction, its
// transcript/PRF hash, and (for TLS 1.2) its key-exchange/auth shape.
type CipherSuite struct {
	ID                   ID
	IsTLS13              bool
	AeadSuite            aeadctx.Suite
	TranscriptAlgo       transcript.Algo
	KeyLen               int
	FixedNonceLen        int // nonce length minus 8 (the leading part the sequence number does not overlap)
	KeyExchangeAlgorithm KeyExchangeAlgorithm
	AuthenticationType   AuthenticationType
}

// TranscriptHash constructs a fresh hash.Hash for this suite's transcript
// and PRF, for callers that need it directly rather than via transcript.Hash.
func (c *CipherSuite) TranscriptHash() keyschedule.HashFunc {
	if c.TranscriptAlgo == transcript.SHA384 {
		return sha512.New384
	}

	return sha256.New
}

var registry = map[ID]*CipherSuite{}

func register(cs *CipherSuite) {
	registry[cs.ID] = cs
}

// ByID looks up a registered suite.
func ByID(id ID) (*CipherSuite, bool) {
	cs, ok := registry[id]

	return cs, ok
}

// All returns every registered suite, in this core's preference order
// (TLS 1.3 suites first).
func All() []*CipherSuite {
	order := []ID{
		TLS13_AES_128_GCM_SHA256,
		TLS13_CHACHA20_POLY1305_SHA256,
		TLS13_AES_256_GCM_SHA384,
		TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		TLS_PSK_WITH_AES_128_GCM_SHA256,
	}

	out := make([]*CipherSuite, 0, len(order))
	for _, id := range order {
		if cs, ok := registry[id]; ok {
			out = append(out, cs)
		}
	}

	return out
}

func init() {
	register(&CipherSuite{
		ID: TLS13_AES_128_GCM_SHA256, IsTLS13: true, AeadSuite: aeadctx.AES128GCM,
		TranscriptAlgo: transcript.SHA256, KeyLen: 16, FixedNonceLen: 4,
	})
	register(&CipherSuite{
		ID: TLS13_AES_256_GCM_SHA384, IsTLS13: true, AeadSuite: aeadctx.AES256GCM,
		TranscriptAlgo: transcript.SHA384, KeyLen: 32, FixedNonceLen: 4,
	})
	register(&CipherSuite{
		ID: TLS13_CHACHA20_POLY1305_SHA256, IsTLS13: true, AeadSuite: aeadctx.Chacha20Poly1305,
		TranscriptAlgo: transcript.SHA256, KeyLen: 32, FixedNonceLen: 4,
	})
	register(&CipherSuite{
		ID: TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, AeadSuite: aeadctx.AES128GCM,
		TranscriptAlgo: transcript.SHA256, KeyLen: 16, FixedNonceLen: 4,
		KeyExchangeAlgorithm: types.KeyExchangeAlgorithmEcdhe, AuthenticationType: types.AuthenticationTypeCertificate,
	})
	register(&CipherSuite{
		ID: TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384, AeadSuite: aeadctx.AES256GCM,
		TranscriptAlgo: transcript.SHA384, KeyLen: 32, FixedNonceLen: 4,
		KeyExchangeAlgorithm: types.KeyExchangeAlgorithmEcdhe, AuthenticationType: types.AuthenticationTypeCertificate,
	})
	register(&CipherSuite{
		ID: TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256, AeadSuite: aeadctx.Chacha20Poly1305,
		TranscriptAlgo: transcript.SHA256, KeyLen: 32, FixedNonceLen: 4,
		KeyExchangeAlgorithm: types.KeyExchangeAlgorithmEcdhe, AuthenticationType: types.AuthenticationTypeCertificate,
	})
	register(&CipherSuite{
		ID: TLS_PSK_WITH_AES_128_GCM_SHA256, AeadSuite: aeadctx.AES128GCM,
		TranscriptAlgo: transcript.SHA256, KeyLen: 16, FixedNonceLen: 4,
		KeyExchangeAlgorithm: types.KeyExchangeAlgorithmPsk, AuthenticationType: types.AuthenticationTypePreSharedKey,
	})
}
