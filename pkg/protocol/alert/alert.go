// Package alert implements the TLS/DTLS alert protocol: the two-byte
// (level, description) message carried at content type 21.
package alert

import (
	"errors"
	"fmt"

	"github.com/tlscore/tlscore/pkg/protocol"
)

var errBufferTooSmall = &protocol.TemporaryError{Err: errors.New("buffer is too small")}

// Level is the severity of an Alert.
type Level uint8

// Alert levels.
const (
	Warning Level = 1
	Fatal   Level = 2
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "Warning"
	case Fatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// Description identifies the specific alert condition. Values follow the
// IANA TLS Alert registry. The error kinds in package errkind map onto a
// subset of these; some Descriptions, such as CertificateRequired, have no
// corresponding kind.
type Description uint8

// Alert descriptions this core can send or must recognize on receipt.
const (
	CloseNotify            Description = 0
	UnexpectedMessage      Description = 10
	BadRecordMac           Description = 20
	DecryptionFailed       Description = 21
	RecordOverflow         Description = 22
	DecompressionFailure   Description = 30
	HandshakeFailure       Description = 40
	BadCertificate         Description = 42
	UnsupportedCertificate Description = 43
	CertificateRevoked     Description = 44
	CertificateExpired     Description = 45
	CertificateUnknown     Description = 46
	IllegalParameter       Description = 47
	UnknownCA              Description = 48
	AccessDenied           Description = 49
	DecodeError            Description = 50
	DecryptError           Description = 51
	ProtocolVersion        Description = 70
	InsufficientSecurity   Description = 71
	InternalError          Description = 80
	InappropriateFallback  Description = 86
	UserCanceled           Description = 90
	MissingExtension       Description = 109
	NoApplicationProtocol  Description = 120
	CertificateRequired    Description = 116
)

func (d Description) String() string {
	switch d {
	case CloseNotify:
		return "close_notify"
	case UnexpectedMessage:
		return "unexpected_message"
	case BadRecordMac:
		return "bad_record_mac"
	case DecryptionFailed:
		return "decryption_failed"
	case RecordOverflow:
		return "record_overflow"
	case DecompressionFailure:
		return "decompression_failure"
	case HandshakeFailure:
		return "handshake_failure"
	case BadCertificate:
		return "bad_certificate"
	case UnsupportedCertificate:
		return "unsupported_certificate"
	case CertificateRevoked:
		return "certificate_revoked"
	case CertificateExpired:
		return "certificate_expired"
	case CertificateUnknown:
		return "certificate_unknown"
	case IllegalParameter:
		return "illegal_parameter"
	case UnknownCA:
		return "unknown_ca"
	case AccessDenied:
		return "access_denied"
	case DecodeError:
		return "decode_error"
	case DecryptError:
		return "decrypt_error"
	case ProtocolVersion:
		return "protocol_version"
	case InsufficientSecurity:
		return "insufficient_security"
	case InternalError:
		return "internal_error"
	case InappropriateFallback:
		return "inappropriate_fallback"
	case UserCanceled:
		return "user_canceled"
	case MissingExtension:
		return "missing_extension"
	case NoApplicationProtocol:
		return "no_application_protocol"
	case CertificateRequired:
		return "certificate_required"
	default:
		return fmt.Sprintf("alert(%d)", uint8(d))
	}
}

// Alert is the two-byte message body for content type 21.
type Alert struct {
	Level       Level
	Description Description
}

func (a *Alert) String() string {
	return fmt.Sprintf("%s: %s", a.Level, a.Description)
}

// Marshal encodes the alert to its two-byte wire form.
func (a *Alert) Marshal() ([]byte, error) {
	return []byte{byte(a.Level), byte(a.Description)}, nil
}

// Unmarshal decodes a two-byte alert body.
func (a *Alert) Unmarshal(data []byte) error {
	if len(data) != 2 {
		return errBufferTooSmall
	}
	a.Level = Level(data[0])
	a.Description = Description(data[1])

	return nil
}

// IsFatalOrCloseNotify reports whether this alert must end the connection:
// every fatal alert, plus the one warning-level alert that also ends it.
func (a *Alert) IsFatalOrCloseNotify() bool {
	return a.Level == Fatal || a.Description == CloseNotify
}

// WarningAllowedInTLS13 reports whether this warning-level alert is one of
// the two TLS 1.3 still honors at warning level; every other warning is
// upgraded to fatal by the caller (spec §4.12).
func WarningAllowedInTLS13(d Description) bool {
	return d == CloseNotify || d == UserCanceled
}
