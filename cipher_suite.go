package tlscore

import (
	"github.com/tlscore/tlscore/internal/ciphersuite"
)

// CipherSuiteID re-exports the registry's suite identifier for callers
// that only import the root package.
type CipherSuiteID = ciphersuite.ID

// Re-exported cipher suite IDs (spec §6 names these by IANA value; the
// registry in internal/ciphersuite owns the actual AEAD/hash wiring).
const (
	TLS13AES128GCMSHA256               CipherSuiteID = ciphersuite.TLS13_AES_128_GCM_SHA256
	TLS13AES256GCMSHA384               CipherSuiteID = ciphersuite.TLS13_AES_256_GCM_SHA384
	TLS13ChaCha20Poly1305SHA256        CipherSuiteID = ciphersuite.TLS13_CHACHA20_POLY1305_SHA256
	TLSECDHEECDSAWithAES128GCMSHA256   CipherSuiteID = ciphersuite.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
	TLSECDHEECDSAWithAES256GCMSHA384   CipherSuiteID = ciphersuite.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
	TLSECDHEECDSAWithChaCha20Poly1305  CipherSuiteID = ciphersuite.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256
	TLSPSKWithAES128GCMSHA256          CipherSuiteID = ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256
)

// CipherSuiteName returns the registered name for id, or its hex form if
// this core doesn't recognize it.
func CipherSuiteName(id CipherSuiteID) string {
	return id.String()
}

// negotiateCipherSuite picks the cipher suite for a handshake: the first
// mutually acceptable suite in the client's order, unless the server's
// Config prefers its own order (spec §4.7's tie-break policy).
func negotiateCipherSuite(clientOffered []uint16, serverConfig *Config) (*ciphersuite.CipherSuite, error) {
	serverSuites := serverConfig.cipherSuites()

	pick := func(order []uint16, lookup func(id uint16) (*ciphersuite.CipherSuite, bool)) (*ciphersuite.CipherSuite, bool) {
		for _, id := range order {
			if cs, ok := lookup(id); ok {
				return cs, true
			}
		}

		return nil, false
	}

	serverByID := func(id uint16) (*ciphersuite.CipherSuite, bool) {
		for _, cs := range serverSuites {
			if uint16(cs.ID) == id {
				return cs, true
			}
		}

		return nil, false
	}

	if serverConfig.PreferServerCipherOrder {
		clientSet := make(map[uint16]bool, len(clientOffered))
		for _, id := range clientOffered {
			clientSet[id] = true
		}
		for _, cs := range serverSuites {
			if clientSet[uint16(cs.ID)] {
				return cs, nil
			}
		}

		return nil, errCipherSuiteNoIntersection
	}

	if cs, ok := pick(clientOffered, serverByID); ok {
		return cs, nil
	}

	return nil, errCipherSuiteNoIntersection
}
