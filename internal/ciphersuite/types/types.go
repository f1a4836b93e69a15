// Package types holds the small enums cipher suites are built from,
// broken out so both the suite registry and its concrete suites can
// import them without a cycle.
package types

// AuthenticationType controls what authentication method is used during
// the handshake.
type AuthenticationType uint8

// AuthenticationType values.
const (
	AuthenticationTypeCertificate AuthenticationType = iota
	AuthenticationTypePreSharedKey
	AuthenticationTypeAnonymous
)

// KeyExchangeAlgorithm controls what key exchange algorithm a suite uses.
type KeyExchangeAlgorithm uint8

// KeyExchangeAlgorithm values.
const (
	KeyExchangeAlgorithmNone KeyExchangeAlgorithm = iota
	KeyExchangeAlgorithmPsk
	KeyExchangeAlgorithmEcdhe
)
