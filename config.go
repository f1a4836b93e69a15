package tlscore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"time"

	"github.com/pion/logging"

	"github.com/tlscore/tlscore/internal/capability"
	"github.com/tlscore/tlscore/internal/ciphersuite"
	"github.com/tlscore/tlscore/internal/metrics"
	"github.com/tlscore/tlscore/internal/session"
	"github.com/tlscore/tlscore/pkg/protocol"
	"github.com/tlscore/tlscore/pkg/protocol/alert"
)

// VerifyMode controls how strictly a peer certificate is required and
// checked (spec §6's verify_mode).
type VerifyMode uint8

// Verify modes.
const (
	VerifyNone VerifyMode = iota
	VerifyPeer
	VerifyFailIfNoPeerCert
	VerifyOnce
)

// SessionCacheMode selects which roles populate and consult the session
// cache (spec §6's session_cache_mode).
type SessionCacheMode uint8

// Session cache modes.
const (
	SessionCacheOff SessionCacheMode = iota
	SessionCacheClient
	SessionCacheServer
	SessionCacheBoth
)

// RenegotiationMode controls whether a TLS ≤1.2 peer-initiated
// renegotiation is honored (spec §6's renegotiation_mode; TLS 1.3 has no
// renegotiation and ignores this field entirely).
type RenegotiationMode uint8

// Renegotiation modes.
const (
	RenegotiationNever RenegotiationMode = iota
	RenegotiationFreely
	RenegotiationIgnore
	RenegotiationOnce
)

// PSKCallback looks up the pre-shared key for a given identity hint.
type PSKCallback func(hint []byte) ([]byte, error)

// ClientAuthType controls whether and how a server requests and verifies
// a client certificate.
type ClientAuthType uint8

// Client authentication policies.
const (
	NoClientCert ClientAuthType = iota
	RequestClientCert
	RequireAnyClientCert
	VerifyClientCertIfGiven
	RequireAndVerifyClientCert
)

// Config carries every parameter of a Connection, shared between a client
// and server dial. Fields follow the enumerated configuration of spec §6,
// supplemented with the practical knobs (certificates, loggers, hooks)
// the teacher's own Config exposes for the same concerns.
type Config struct {
	// Certificates this side can present. Unless GetCertificate (server) or
	// GetClientCertificate (client) is set, the first entry is presented;
	// later entries are not consulted.
	Certificates         []tls.Certificate
	GetCertificate       func(clientHello *ClientHelloInfo) (*tls.Certificate, error)
	GetClientCertificate func(certificateRequest *CertificateRequestInfo) (*tls.Certificate, error)

	// CipherSuites restricts negotiation to the listed suites, kept in the
	// registry's preference order; nil selects every registered suite.
	CipherSuites []ciphersuite.ID

	MinVersion protocol.Version
	MaxVersion protocol.Version

	PreferServerCipherOrder bool

	SessionCacheMode SessionCacheMode
	SessionStore     *session.Cache
	SessionTimeout   time.Duration

	EarlyDataEnabled bool

	// MaxSendFragment bounds the plaintext length of any record this side
	// writes (1..16384); 0 selects the protocol maximum.
	MaxSendFragment int
	// MaxCertList is the configured bound on the total encoded size of an
	// inbound certificate chain; 0 selects a conservative default. The
	// handshake does not check received chains against it.
	MaxCertList int

	ClientAuth            ClientAuthType
	VerifyMode            VerifyMode
	InsecureSkipVerify    bool
	VerifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error
	VerifyConnection      func(*ConnectionState) error
	RootCAs               *x509.CertPool
	ClientCAs             *x509.CertPool

	QuietShutdown bool

	RenegotiationMode RenegotiationMode

	PSK             PSKCallback
	PSKIdentityHint []byte

	ServerName         string
	SupportedProtocols []string // ALPN, in preference order

	MTU int // DTLS path MTU; TLS ignores this field

	LoggerFactory logging.LoggerFactory

	KeyLogWriter io.Writer

	Capabilities capability.Provider

	OnConnectionAttempt func(error)

	// Metrics, if set, observes handshake and record-layer outcomes across
	// every Connection built from this Config. Nil disables tracking.
	Metrics *metrics.Metrics

	// TicketKeys, if set, enables server-side NewSessionTicket issuance on
	// a successful handshake.
	TicketKeys *session.KeyStore
	// TicketLifetime bounds how long an issued ticket is valid for, in
	// seconds; 0 selects defaultTicketLifetime.
	TicketLifetime uint32
}

// defaultTicketLifetime is the lifetime_seconds a server issues tickets
// with when Config.TicketLifetime is unset (RFC 8446 section 4.6.1 caps
// this at 7 days; this core defaults to a conservative fraction of that).
const defaultTicketLifetime = 2 * 3600

func (c *Config) ticketLifetime() uint32 {
	if c.TicketLifetime == 0 {
		return defaultTicketLifetime
	}

	return c.TicketLifetime
}

// defaultMaxSendFragment is the plaintext record size this core uses when
// Config.MaxSendFragment is unset.
const defaultMaxSendFragment = 16384

// defaultMaxCertList bounds an inbound certificate chain when
// Config.MaxCertList is unset (100 KiB, generous for any realistic chain).
const defaultMaxCertList = 100 * 1024

// defaultMTU is the DTLS path MTU assumed when Config.MTU is unset.
const defaultMTU = 1200

// ClientHelloInfo is passed to Config.GetCertificate so a server can pick
// a certificate per handshake. Only ServerName and SupportedProtos (which
// holds the negotiated ALPN protocol) are filled in; CipherSuites and
// SignatureSchemes are left empty.
type ClientHelloInfo struct {
	ServerName       string
	CipherSuites     []ciphersuite.ID
	SignatureSchemes []capability.SignatureScheme
	SupportedProtos  []string
}

// CertificateRequestInfo is passed to Config.GetClientCertificate.
type CertificateRequestInfo struct {
	AcceptableCAs    [][]byte
	SignatureSchemes []capability.SignatureScheme
}

// ConnectionState summarizes a negotiated Connection for
// Config.VerifyConnection and for callers introspecting an established
// Connection.
type ConnectionState struct {
	Version            protocol.Version
	CipherSuite        ciphersuite.ID
	ServerName         string
	NegotiatedProtocol string
	PeerCertificates   [][]byte
	HandshakeComplete  bool
	DidResume          bool
}

func (c *Config) maxSendFragment() int {
	if c.MaxSendFragment <= 0 || c.MaxSendFragment > defaultMaxSendFragment {
		return defaultMaxSendFragment
	}

	return c.MaxSendFragment
}

func (c *Config) maxCertList() int {
	if c.MaxCertList <= 0 {
		return defaultMaxCertList
	}

	return c.MaxCertList
}

func (c *Config) mtu() int {
	if c.MTU <= 0 {
		return defaultMTU
	}

	return c.MTU
}

// cipherSuites returns the suites this Config negotiates, in preference
// order, restricted to CipherSuites when that list is non-nil.
func (c *Config) cipherSuites() []*ciphersuite.CipherSuite {
	all := ciphersuite.All()
	if c.CipherSuites == nil {
		return all
	}

	allowed := make(map[ciphersuite.ID]bool, len(c.CipherSuites))
	for _, id := range c.CipherSuites {
		allowed[id] = true
	}

	out := make([]*ciphersuite.CipherSuite, 0, len(all))
	for _, cs := range all {
		if allowed[cs.ID] {
			out = append(out, cs)
		}
	}

	return out
}

// includeCertificateSuites reports whether this side can present a
// certificate, and therefore whether certificate-authenticated suites are
// usable at all.
func (c *Config) includeCertificateSuites() bool {
	return len(c.Certificates) > 0 || c.GetCertificate != nil
}

// includePSKSuites reports whether a PSK identity is configured, making
// PSK-authenticated suites usable.
func (c *Config) includePSKSuites() bool {
	return c.PSK != nil
}

func (c *Config) capabilities() capability.Provider {
	p := c.Capabilities
	if p.Rng == nil {
		p.Rng = &capability.DefaultRng{}
	}
	if p.CertVerifier == nil {
		p.CertVerifier = &capability.DefaultCertVerifier{Roots: c.RootCAs}
	}
	if p.Verifier == nil {
		p.Verifier = &capability.DefaultVerifier{}
	}

	return p
}

var (
	errNoConfigProvided          = &protocol.FatalError{Err: errors.New("no config provided")}
	errNoCertificates            = &protocol.FatalError{Err: errors.New("no certificates configured")}
	errNoAvailableCipherSuites   = &protocol.FatalError{Err: errors.New("connection can not be created, no CipherSuites satisfy this Config")}
	errNoAvailablePSKCipherSuite = &protocol.FatalError{
		Err: errors.New("connection can not be created, pre-shared key present but no compatible CipherSuite"),
	}
	errNoAvailableCertificateCipherSuite = &protocol.FatalError{
		Err: errors.New("connection can not be created, certificate present but no compatible CipherSuite"),
	}
	errPSKAndIdentityMustBeSetForClient = &protocol.FatalError{
		Err: errors.New("PSK and PSK Identity Hint must both be set for client"),
	}
)

// validateConfig rejects a Config that could never produce a usable
// Connection, before any bytes touch the wire.
func validateConfig(config *Config) error {
	if config == nil {
		return errNoConfigProvided
	}
	if config.PSKIdentityHint != nil && config.PSK == nil {
		return errIdentityNoPSK
	}

	for _, cert := range config.Certificates {
		if len(cert.Certificate) == 0 {
			return errInvalidCertificate
		}
		if cert.PrivateKey == nil {
			continue
		}
		signer, ok := cert.PrivateKey.(crypto.Signer)
		if !ok {
			return errInvalidPrivateKey
		}
		switch signer.Public().(type) {
		case ed25519.PublicKey, *ecdsa.PublicKey, *rsa.PublicKey:
		default:
			return errInvalidPrivateKey
		}
	}

	suites := config.cipherSuites()
	if len(suites) == 0 {
		return errNoAvailableCipherSuites
	}

	wantCert := config.includeCertificateSuites()
	wantPSK := config.includePSKSuites()

	var haveCert, havePSK bool
	for _, cs := range suites {
		switch cs.AuthenticationType {
		case ciphersuite.AuthenticationTypeCertificate:
			haveCert = true
		case ciphersuite.AuthenticationTypePreSharedKey:
			havePSK = true
		}
	}

	if wantCert && !haveCert {
		return errNoAvailableCertificateCipherSuite
	}
	if wantPSK && !havePSK {
		return errNoAvailablePSKCipherSuite
	}

	return nil
}

// alertForVerifyMode maps a certificate-verification failure under mode
// to the alert a server sends back, mirroring spec §4.9's taxonomy.
func alertForVerifyMode(mode VerifyMode, gotCert bool) (alert.Description, bool) {
	switch {
	case mode == VerifyFailIfNoPeerCert && !gotCert:
		return alert.CertificateRequired, true
	case mode == VerifyPeer && !gotCert:
		return alert.CertificateRequired, true
	default:
		return 0, false
	}
}
