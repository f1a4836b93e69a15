package tlscore

import (
	"crypto/dsa" //nolint:staticcheck // exercising the "not a crypto.Signer" rejection path
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"
)

// generateSelfSigned builds a minimal self-signed ECDSA P-256 certificate,
// good enough to exercise validateConfig's certificate-shaped checks
// without needing a real CA.
func generateSelfSigned(t *testing.T) tls.Certificate {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generateSelfSigned: key generation failed: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "tlscore test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("generateSelfSigned: certificate creation failed: %v", err)
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

func TestValidateConfig(t *testing.T) {
	cert := generateSelfSigned(t)

	dsaPrivateKey := &dsa.PrivateKey{}
	if err := dsa.GenerateParameters(&dsaPrivateKey.Parameters, rand.Reader, dsa.L1024N160); err != nil {
		t.Fatalf("TestValidateConfig: DSA parameters not generated: %v", err)
	}
	if err := dsa.GenerateKey(dsaPrivateKey, rand.Reader); err != nil {
		t.Fatalf("TestValidateConfig: DSA private key not generated: %v", err)
	}

	cases := map[string]struct {
		config     *Config
		wantAnyErr bool
		expErr     error
	}{
		"nil config": {
			expErr: errNoConfigProvided,
		},
		"PSK identity hint without PSK": {
			config: &Config{
				CipherSuites:    []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
				PSKIdentityHint: []byte("hint"),
			},
			expErr: errIdentityNoPSK,
		},
		"PSK and certificate, valid cipher suites": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSPSKWithAES128GCMSHA256, TLSECDHEECDSAWithAES256GCMSHA384},
				PSK: func([]byte) ([]byte, error) {
					return nil, nil
				},
				Certificates: []tls.Certificate{cert},
			},
		},
		"PSK configured, no PSK cipher suite": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
				PSK: func([]byte) ([]byte, error) {
					return nil, nil
				},
				Certificates: []tls.Certificate{cert},
			},
			expErr: errNoAvailablePSKCipherSuite,
		},
		"certificate configured, no certificate cipher suite": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSPSKWithAES128GCMSHA256},
				PSK: func([]byte) ([]byte, error) {
					return nil, nil
				},
				Certificates: []tls.Certificate{cert},
			},
			expErr: errNoAvailableCertificateCipherSuite,
		},
		"invalid private key type": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
				Certificates: []tls.Certificate{{Certificate: cert.Certificate, PrivateKey: dsaPrivateKey}},
			},
			expErr: errInvalidPrivateKey,
		},
		"certificate with no chain bytes": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
				Certificates: []tls.Certificate{{PrivateKey: cert.PrivateKey}},
			},
			expErr: errInvalidCertificate,
		},
		"no cipher suites satisfy the config": {
			config:     &Config{CipherSuites: []CipherSuiteID{0x0000}},
			wantAnyErr: true,
		},
		"valid config, static certificate": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
				Certificates: []tls.Certificate{cert},
			},
		},
		"valid config, GetCertificate callback": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
				GetCertificate: func(*ClientHelloInfo) (*tls.Certificate, error) {
					return &cert, nil
				},
			},
		},
		"valid config, GetClientCertificate callback": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
				GetClientCertificate: func(*CertificateRequestInfo) (*tls.Certificate, error) {
					return &cert, nil
				},
			},
		},
		"valid TLS 1.3 only config": {
			config: &Config{
				CipherSuites: []CipherSuiteID{TLS13AES128GCMSHA256},
				Certificates: []tls.Certificate{cert},
			},
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			err := validateConfig(tc.config)
			switch {
			case tc.expErr != nil:
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("validateConfig() = %v, want %v", err, tc.expErr)
				}
			case tc.wantAnyErr:
				if err == nil {
					t.Fatal("validateConfig() = nil, want a non-nil error")
				}
			default:
				if err != nil {
					t.Fatalf("validateConfig() = %v, want nil", err)
				}
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c := &Config{}

	if got := c.maxSendFragment(); got != defaultMaxSendFragment {
		t.Errorf("maxSendFragment() = %d, want %d", got, defaultMaxSendFragment)
	}
	if got := c.maxCertList(); got != defaultMaxCertList {
		t.Errorf("maxCertList() = %d, want %d", got, defaultMaxCertList)
	}
	if got := c.mtu(); got != defaultMTU {
		t.Errorf("mtu() = %d, want %d", got, defaultMTU)
	}
	if got := c.ticketLifetime(); got != defaultTicketLifetime {
		t.Errorf("ticketLifetime() = %d, want %d", got, defaultTicketLifetime)
	}

	c.MaxSendFragment = 20000 // past the protocol maximum
	if got := c.maxSendFragment(); got != defaultMaxSendFragment {
		t.Errorf("maxSendFragment() with an out-of-range override = %d, want %d", got, defaultMaxSendFragment)
	}

	c.TicketLifetime = 60
	if got := c.ticketLifetime(); got != 60 {
		t.Errorf("ticketLifetime() with an override = %d, want 60", got)
	}
}

func TestConfigCipherSuitesRestriction(t *testing.T) {
	c := &Config{CipherSuites: []CipherSuiteID{TLS13AES128GCMSHA256}}

	suites := c.cipherSuites()
	if len(suites) != 1 || suites[0].ID != TLS13AES128GCMSHA256 {
		t.Fatalf("cipherSuites() = %v, want exactly [TLS13AES128GCMSHA256]", suites)
	}

	unrestricted := (&Config{}).cipherSuites()
	if len(unrestricted) <= 1 {
		t.Fatalf("cipherSuites() with no restriction = %v, want the full registry", unrestricted)
	}
}
