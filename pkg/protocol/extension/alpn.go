package extension

// ALPNProtocolNameList is the application_layer_protocol_negotiation
// extension: an ordered list of protocol names offered by the client, or
// the single protocol chosen by the server.
type ALPNProtocolNameList struct {
	ProtocolNameList []string
}

// TypeValue implements Extension.
func (a *ALPNProtocolNameList) TypeValue() Type { return ALPN }

// Marshal encodes the extension.
func (a *ALPNProtocolNameList) Marshal() ([]byte, error) {
	var list []byte
	for _, name := range a.ProtocolNameList {
		if len(name) == 0 || len(name) > 255 {
			return nil, ErrALPNInvalidFormat
		}
		list = append(list, byte(len(name)))
		list = append(list, name...)
	}
	if len(list) > 0xffff-2 {
		return nil, ErrALPNInvalidFormat
	}

	body := make([]byte, 2, 2+len(list))
	body[0] = byte(len(list) >> 8)
	body[1] = byte(len(list))
	body = append(body, list...)

	return putHeader(a.TypeValue(), body), nil
}

// Unmarshal decodes the extension.
func (a *ALPNProtocolNameList) Unmarshal(data []byte) error {
	body, err := parseHeader(data, a.TypeValue())
	if err != nil {
		return err
	}
	if len(body) < 2 {
		return ErrALPNInvalidFormat
	}
	listLen := int(body[0])<<8 | int(body[1])
	rest := body[2:]
	if listLen != len(rest) {
		return ErrALPNInvalidFormat
	}

	a.ProtocolNameList = nil
	for len(rest) > 0 {
		n := int(rest[0])
		rest = rest[1:]
		if n == 0 || len(rest) < n {
			return ErrALPNInvalidFormat
		}
		a.ProtocolNameList = append(a.ProtocolNameList, string(rest[:n]))
		rest = rest[n:]
	}
	if len(a.ProtocolNameList) == 0 {
		return errALPNNoAppProto
	}

	return nil
}

// Negotiate picks the first entry of serverPreference also present in
// offered, mirroring the server's usual ALPN selection policy.
func Negotiate(offered, serverPreference []string) (string, bool) {
	offeredSet := make(map[string]bool, len(offered))
	for _, p := range offered {
		offeredSet[p] = true
	}
	for _, p := range serverPreference {
		if offeredSet[p] {
			return p, true
		}
	}

	return "", false
}
