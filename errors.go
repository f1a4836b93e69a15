package tlscore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/tlscore/tlscore/internal/ciphersuite"
	"github.com/tlscore/tlscore/pkg/protocol"
	"github.com/tlscore/tlscore/pkg/protocol/alert"
)

// Typed errors.
var (
	ErrConnClosed = &FatalError{Err: errors.New("conn is closed")}

	errDeadlineExceeded   = &TimeoutError{Err: fmt.Errorf("read/write timeout: %w", context.DeadlineExceeded)}
	errInvalidContentType = &TemporaryError{Err: errors.New("invalid content type")}

	errBufferTooSmall               = &TemporaryError{Err: errors.New("buffer is too small")}
	errContextUnsupported           = &TemporaryError{Err: errors.New("context is not supported for ExportKeyingMaterial")}
	errHandshakeInProgress           = &TemporaryError{Err: errors.New("handshake is in progress")}
	errReservedExportKeyingMaterial  = &TemporaryError{Err: errors.New("ExportKeyingMaterial can not be used with a reserved label")}
	errApplicationDataEpochZero      = &TemporaryError{Err: errors.New("ApplicationData with epoch of 0")}
	errUnhandledContentType          = &TemporaryError{Err: errors.New("unhandled content type")}

	errCertificateVerifyNoCertificate = &FatalError{Err: errors.New("peer sent CertificateVerify but we have no certificate to verify")}
	errCipherSuiteNoIntersection      = &FatalError{Err: errors.New("client+server do not support any shared cipher suites")}
	errClientCertificateNotVerified   = &FatalError{Err: errors.New("client sent certificate but did not verify it")}
	errClientCertificateRequired      = &FatalError{Err: errors.New("server required client verification, but got none")}
	errClientRequiredButNoServerEMS   = &FatalError{Err: errors.New("client required Extended Master Secret extension, but server does not support it")}
	errCookieMismatch                 = &FatalError{Err: errors.New("client+server cookie does not match")}
	errIdentityNoPSK                  = &FatalError{Err: errors.New("PSK Identity Hint provided but PSK is nil")}
	errInvalidCertificate             = &FatalError{Err: errors.New("no certificate provided")}
	errInvalidCipherSuite             = &FatalError{Err: errors.New("invalid or unknown cipher suite")}
	errInvalidPrivateKey              = &FatalError{Err: errors.New("invalid private key type")}
	errInvalidSignatureAlgorithm      = &FatalError{Err: errors.New("invalid signature algorithm")}
	errKeySignatureMismatch           = &FatalError{Err: errors.New("expected and actual key signature do not match")}
	errNilNextConn                    = &FatalError{Err: errors.New("Connection can not be created with a nil transport")}
	errNoSupportedEllipticCurves      = &FatalError{Err: errors.New("client requested zero or more elliptic curves that are not supported by the server")}
	errUnsupportedProtocolVersion     = &FatalError{Err: errors.New("unsupported protocol version")}
	errVerifyDataMismatch             = &FatalError{Err: errors.New("expected and actual verify data does not match")}
	errNotAcceptableCertificateChain  = &FatalError{Err: errors.New("certificate chain is not signed by an acceptable CA")}
	errInappropriateFallback          = &FatalError{Err: errors.New("ServerHello random carries the TLS 1.2 downgrade canary against a TLS 1.3 offer")}
	errSecondHelloRetryRequest        = &FatalError{Err: errors.New("server sent a second HelloRetryRequest")}
	errUnexpectedMessage              = &FatalError{Err: errors.New("received handshake message out of order")}

	errInvalidFlight                = &InternalError{Err: errors.New("invalid flight number")}
	errLengthMismatch               = &InternalError{Err: errors.New("data length and declared length do not match")}
	errSequenceNumberOverflow       = &InternalError{Err: errors.New("sequence number overflow")}
	errInvalidFSMTransition         = &InternalError{Err: errors.New("invalid state machine transition")}
	errFragmentBufferOverflow       = &InternalError{Err: errors.New("fragment buffer overflow")}
)

// FatalError indicates that the connection is no longer usable. It is
// mainly caused by wrong configuration of server or client.
type FatalError = protocol.FatalError

// InternalError indicates an internal error caused by the implementation;
// the connection is no longer usable. Mainly caused by bugs or use of an
// unimplemented feature.
type InternalError = protocol.InternalError

// TemporaryError indicates that the connection is still usable, but the
// request failed temporarily.
type TemporaryError = protocol.TemporaryError

// TimeoutError indicates that the request timed out.
type TimeoutError = protocol.TimeoutError

// HandshakeError indicates that the handshake failed.
type HandshakeError = protocol.HandshakeError

// invalidCipherSuiteError indicates an attempt at using an unsupported
// cipher suite.
type invalidCipherSuiteError struct {
	id ciphersuite.ID
}

func (e *invalidCipherSuiteError) Error() string {
	return fmt.Sprintf("CipherSuite with id(%d) is not valid", e.id)
}

func (e *invalidCipherSuiteError) Is(err error) bool {
	var other *invalidCipherSuiteError
	if errors.As(err, &other) {
		return e.id == other.id
	}

	return false
}

// alertError wraps a received or locally-raised alert as an error.
type alertError struct {
	*alert.Alert
}

func (e *alertError) Error() string {
	return fmt.Sprintf("alert: %s", e.Alert.String())
}

func (e *alertError) IsFatalOrCloseNotify() bool {
	return e.Level == alert.Fatal || e.Description == alert.CloseNotify
}

func (e *alertError) Is(err error) bool {
	var other *alertError
	if errors.As(err, &other) {
		return e.Level == other.Level && e.Description == other.Description
	}

	return false
}

// netError translates an error from the underlying transport to the
// corresponding net.Error.
func netError(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	var (
		ne      net.Error
		opError *net.OpError
		se      *os.SyscallError
	)

	if errors.As(err, &opError) {
		if errors.As(opError, &se) {
			if se.Timeout() {
				return &TimeoutError{Err: err}
			}
			if isOpErrorTemporary(se) {
				return &TemporaryError{Err: err}
			}
		}
	}

	if errors.As(err, &ne) {
		return err
	}

	return &FatalError{Err: err}
}

func isOpErrorTemporary(se *os.SyscallError) bool {
	if temp, ok := se.Err.(interface{ Temporary() bool }); ok {
		return temp.Temporary()
	}

	return false
}
