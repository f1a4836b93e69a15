// Package errkind defines the closed set of error kinds this core
// raises (§7), each mapped to an alert code where one applies; several
// kinds share the same code.
package errkind

import "github.com/tlscore/tlscore/pkg/protocol/alert"

// Kind is one of the closed set of error kinds a Connection operation
// can return. Suspensions (WantRead, WantWrite, NeedMore) are not
// errors in the fatal sense: the caller retries once more data or
// socket space is available.
type Kind uint8

// The closed set of error kinds, per §7.
const (
	Closed Kind = iota
	WantRead
	WantWrite
	NeedMore
	UnexpectedMessage
	UnexpectedRecord
	DecodeError
	RecordOverflow
	MissingExtension
	IllegalParameter
	HandshakeFailure
	BadCertificate
	UnsupportedCertificate
	CertificateExpired
	CertificateUnknown
	CertificateRevoked
	AccessDenied
	DecryptError
	ProtocolVersion
	InappropriateFallback
	UserCanceled
	NoApplicationProtocol
	InternalError
	SeqOverflow
	AeadAuth
	SessionMismatch
	MiddleboxInterference
	HTTPRequest
	HTTPSProxyRequest
	EarlyDataRejected
)

//nolint:cyclop
func (k Kind) String() string {
	switch k {
	case Closed:
		return "closed"
	case WantRead:
		return "want_read"
	case WantWrite:
		return "want_write"
	case NeedMore:
		return "need_more"
	case UnexpectedMessage:
		return "unexpected_message"
	case UnexpectedRecord:
		return "unexpected_record"
	case DecodeError:
		return "decode_error"
	case RecordOverflow:
		return "record_overflow"
	case MissingExtension:
		return "missing_extension"
	case IllegalParameter:
		return "illegal_parameter"
	case HandshakeFailure:
		return "handshake_failure"
	case BadCertificate:
		return "bad_certificate"
	case UnsupportedCertificate:
		return "unsupported_certificate"
	case CertificateExpired:
		return "certificate_expired"
	case CertificateUnknown:
		return "certificate_unknown"
	case CertificateRevoked:
		return "certificate_revoked"
	case AccessDenied:
		return "access_denied"
	case DecryptError:
		return "decrypt_error"
	case ProtocolVersion:
		return "protocol_version"
	case InappropriateFallback:
		return "inappropriate_fallback"
	case UserCanceled:
		return "user_canceled"
	case NoApplicationProtocol:
		return "no_application_protocol"
	case InternalError:
		return "internal_error"
	case SeqOverflow:
		return "seq_overflow"
	case AeadAuth:
		return "aead_auth"
	case SessionMismatch:
		return "session_mismatch"
	case MiddleboxInterference:
		return "middlebox_interference"
	case HTTPRequest:
		return "http_request"
	case HTTPSProxyRequest:
		return "https_proxy_request"
	case EarlyDataRejected:
		return "early_data_rejected"
	default:
		return "unknown_error_kind"
	}
}

// IsSuspension reports whether k asks the caller to retry rather than
// abandon the connection.
func (k Kind) IsSuspension() bool {
	return k == WantRead || k == WantWrite || k == NeedMore
}

// alertFor maps the error kinds that have a corresponding wire alert.
// Kinds absent here (WantRead/Write, NeedMore, SeqOverflow, HTTPRequest,
// HTTPSProxyRequest, Closed, InternalError) never produce one: some are
// suspensions, and HTTPRequest/HTTPSProxyRequest per §7's propagation
// policy raise no alert at all since the peer plainly isn't speaking
// this protocol.
var alertFor = map[Kind]alert.Description{
	UnexpectedMessage:      alert.UnexpectedMessage,
	UnexpectedRecord:       alert.UnexpectedMessage,
	DecodeError:            alert.DecodeError,
	RecordOverflow:         alert.RecordOverflow,
	MissingExtension:       alert.MissingExtension,
	IllegalParameter:       alert.IllegalParameter,
	HandshakeFailure:       alert.HandshakeFailure,
	BadCertificate:         alert.BadCertificate,
	UnsupportedCertificate: alert.UnsupportedCertificate,
	CertificateExpired:     alert.CertificateExpired,
	CertificateUnknown:     alert.CertificateUnknown,
	CertificateRevoked:     alert.CertificateRevoked,
	AccessDenied:           alert.AccessDenied,
	DecryptError:           alert.DecryptError,
	ProtocolVersion:        alert.ProtocolVersion,
	InappropriateFallback:  alert.InappropriateFallback,
	UserCanceled:           alert.UserCanceled,
	NoApplicationProtocol:  alert.NoApplicationProtocol,
	AeadAuth:               alert.BadRecordMac,
	SessionMismatch:        alert.IllegalParameter,
	MiddleboxInterference:  alert.UnexpectedMessage,
	EarlyDataRejected:      alert.HandshakeFailure,
}

// Alert returns the wire alert description this kind raises, and
// whether it raises one at all.
func (k Kind) Alert() (alert.Description, bool) {
	d, ok := alertFor[k]

	return d, ok
}

// Error is a Kind paired with the underlying cause. It implements
// error, and its kind is the stable, comparable part a caller switches
// on; the wrapped Err carries the human-readable detail.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.Kind == other.Kind
}

// New wraps err under kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
