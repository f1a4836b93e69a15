// Package clientcertificate enumerates the TLS 1.2 CertificateRequest
// client_certificate_type values this core can satisfy.
package clientcertificate

// Type is a TLS 1.2 ClientCertificateType value.
type Type uint8

// Client certificate types this core names. RSASign is defined for the
// wire value, but the signature package has no RSA algorithm.
const (
	RSASign   Type = 1
	ECDSASign Type = 64
)
