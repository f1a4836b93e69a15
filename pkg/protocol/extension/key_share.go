package extension

import (
	"encoding/binary"

	"github.com/tlscore/tlscore/pkg/crypto/elliptic"
)

// KeyShareEntry is a single (group, key_exchange) pair.
type KeyShareEntry struct {
	Group        elliptic.Curve
	KeyExchange []byte
}

// KeyShareMode distinguishes the three wire shapes key_share takes,
// depending which message carries it (RFC 8446 section 4.2.8).
type KeyShareMode uint8

// Wire shapes for the key_share extension.
const (
	KeyShareClientHello KeyShareMode = iota
	KeyShareHelloRetryRequest
	KeyShareServerHello
)

// KeyShare is the key_share extension.
type KeyShare struct {
	Mode    KeyShareMode
	Entries []KeyShareEntry // ClientHello: one or more; ServerHello: exactly one
	Group   elliptic.Curve  // HelloRetryRequest only: the group the server wants retried
}

// TypeValue implements Extension.
func (k *KeyShare) TypeValue() Type { return KeyShareType }

// Marshal encodes the extension in whichever shape Mode selects.
func (k *KeyShare) Marshal() ([]byte, error) {
	switch k.Mode {
	case KeyShareHelloRetryRequest:
		body := make([]byte, 2)
		binary.BigEndian.PutUint16(body, uint16(k.Group))

		return putHeader(k.TypeValue(), body), nil

	case KeyShareServerHello:
		if len(k.Entries) != 1 {
			return nil, errInvalidKeyShareFormat
		}
		body := marshalEntry(k.Entries[0])

		return putHeader(k.TypeValue(), body), nil

	default: // KeyShareClientHello
		var list []byte
		for _, e := range k.Entries {
			list = append(list, marshalEntry(e)...)
		}
		body := make([]byte, 2, 2+len(list))
		binary.BigEndian.PutUint16(body, uint16(len(list)))
		body = append(body, list...)

		return putHeader(k.TypeValue(), body), nil
	}
}

func marshalEntry(e KeyShareEntry) []byte {
	out := make([]byte, 4+len(e.KeyExchange))
	binary.BigEndian.PutUint16(out[0:2], uint16(e.Group))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(e.KeyExchange)))
	copy(out[4:], e.KeyExchange)

	return out
}

func unmarshalEntry(data []byte) (KeyShareEntry, int, error) {
	if len(data) < 4 {
		return KeyShareEntry{}, 0, errInvalidKeyShareFormat
	}
	group := elliptic.Curve(binary.BigEndian.Uint16(data[0:2]))
	keLen := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) < 4+keLen {
		return KeyShareEntry{}, 0, errInvalidKeyShareFormat
	}

	return KeyShareEntry{Group: group, KeyExchange: append([]byte{}, data[4:4+keLen]...)}, 4 + keLen, nil
}

// Unmarshal decodes the extension. Mode must be set by the caller first
// (the wire shape is not self-describing; it depends on which message
// this extension was read out of).
func (k *KeyShare) Unmarshal(data []byte) error {
	body, err := parseHeader(data, k.TypeValue())
	if err != nil {
		return err
	}

	switch k.Mode {
	case KeyShareHelloRetryRequest:
		if len(body) != 2 {
			return errInvalidKeyShareFormat
		}
		k.Group = elliptic.Curve(binary.BigEndian.Uint16(body))

		return nil

	case KeyShareServerHello:
		entry, _, err := unmarshalEntry(body)
		if err != nil {
			return err
		}
		k.Entries = []KeyShareEntry{entry}

		return nil

	default: // KeyShareClientHello
		if len(body) < 2 {
			return errInvalidKeyShareFormat
		}
		listLen := int(binary.BigEndian.Uint16(body[0:2]))
		rest := body[2:]
		if listLen != len(rest) {
			return errInvalidKeyShareFormat
		}

		k.Entries = nil
		for len(rest) > 0 {
			entry, n, err := unmarshalEntry(rest)
			if err != nil {
				return err
			}
			k.Entries = append(k.Entries, entry)
			rest = rest[n:]
		}

		return nil
	}
}

// Find returns the entry for group, if the peer offered one.
func (k *KeyShare) Find(group elliptic.Curve) (KeyShareEntry, bool) {
	for _, e := range k.Entries {
		if e.Group == group {
			return e, true
		}
	}

	return KeyShareEntry{}, false
}
