// Package extension implements the TLS/DTLS Hello extensions this core
// negotiates: supported_versions, signature_algorithms, key_share,
// server_name and alpn. The other registered types (supported_groups,
// pre_shared_key, early_data and the rest below) have Type constants only;
// Unmarshal skips them and no Extension type encodes them.
package extension

import (
	"encoding/binary"
)

// Type is the two-byte extension_type field of the TLS ExtensionType registry.
type Type uint16

// Extension types this core recognizes.
const (
	ServerName              Type = 0
	SupportedGroups          Type = 10
	ECPointFormats           Type = 11
	SignatureAlgorithms      Type = 13
	UseSRTP                  Type = 14
	ALPN                     Type = 16
	ConnectionID             Type = 54
	PreSharedKey             Type = 41
	EarlyData                Type = 42
	SupportedVersionsType    Type = 43
	Cookie                   Type = 44
	PSKKeyExchangeModes      Type = 45
	KeyShareType             Type = 51
	RenegotiationInfo        Type = 0xff01
)

// Extension is anything that can be marshaled to/from a TLS extension
// (type, length, extension_data) triple.
type Extension interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	TypeValue() Type
}

func putHeader(typ Type, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint16(out[0:2], uint16(typ))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[4:], body)

	return out
}

func parseHeader(data []byte, want Type) ([]byte, error) {
	if len(data) < 2 {
		return nil, errBufferTooSmall
	}
	if Type(binary.BigEndian.Uint16(data[0:2])) != want {
		return nil, errInvalidExtensionType
	}
	if len(data) < 4 {
		return nil, errBufferTooSmall
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data)-4 < length {
		return nil, errLengthMismatch
	}

	return data[4 : 4+length], nil
}

// Unmarshal decodes a concatenated sequence of (type, length, data)
// extensions, returning whichever of the known Extension types it
// recognizes. Unknown extension types are skipped, not an error: the peer
// may legally offer extensions this core doesn't implement. The key_share
// extension is parsed assuming the ClientHello wire shape; callers
// decoding a ServerHello or HelloRetryRequest must use
// UnmarshalWithKeyShareMode instead, since key_share's shape depends on
// which message carries it.
func Unmarshal(data []byte) ([]Extension, error) {
	return unmarshal(data, KeyShareClientHello)
}

// UnmarshalWithKeyShareMode decodes extensions the same way Unmarshal does,
// except a key_share extension is parsed using the given wire shape
// (RFC 8446 section 4.2.8's three shapes are not self-describing).
func UnmarshalWithKeyShareMode(data []byte, mode KeyShareMode) ([]Extension, error) {
	return unmarshal(data, mode)
}

func unmarshal(data []byte, ksMode KeyShareMode) ([]Extension, error) {
	var out []Extension

	for len(data) > 0 {
		if len(data) < 4 {
			return nil, errBufferTooSmall
		}
		typ := Type(binary.BigEndian.Uint16(data[0:2]))
		length := int(binary.BigEndian.Uint16(data[2:4]))
		if len(data)-4 < length {
			return nil, errLengthMismatch
		}
		raw := data[:4+length]
		data = data[4+length:]

		ext := newByType(typ, ksMode)
		if ext == nil {
			continue
		}
		if err := ext.Unmarshal(raw); err != nil {
			return nil, err
		}
		out = append(out, ext)
	}

	return out, nil
}

func newByType(t Type, ksMode KeyShareMode) Extension {
	switch t {
	case SupportedVersionsType:
		return &SupportedVersions{}
	case SignatureAlgorithms:
		return &SupportedSignatureAlgorithms{}
	case ServerName:
		return &ServerNameExtension{}
	case ALPN:
		return &ALPNProtocolNameList{}
	case KeyShareType:
		return &KeyShare{Mode: ksMode}
	default:
		return nil
	}
}

// Marshal concatenates a set of extensions into their wire form, in order.
func Marshal(exts []Extension) ([]byte, error) {
	var out []byte
	for _, e := range exts {
		raw, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}

	return out, nil
}
