package tlscore

// Wait is the suspension value a Handshake step resolves to: the
// single-threaded cooperative driver loop (spec §4.7/§5) inspects Wait
// after every step and either runs the next step immediately (Ok) or
// hands control back to the caller until the named condition is met.
type Wait uint8

// Wait conditions.
const (
	// WaitOk means run the next step immediately; the driver loop never
	// returns to the caller on this value.
	WaitOk Wait = iota
	// WaitReadMessage means call the record layer until one complete
	// handshake message is buffered (C6's get_message()).
	WaitReadMessage
	// WaitReadChangeCipherSpec expects exactly one CCS record; outside
	// TLS 1.3 interop compatibility this condition is fatal.
	WaitReadChangeCipherSpec
	// WaitFlush means drain the pending flight to the transport before
	// continuing (DTLS flights; TLS has nothing to coalesce across steps).
	WaitFlush
	// WaitX509Lookup suspends for the caller to supply a certificate.
	WaitX509Lookup
	// WaitChannelIDLookup suspends for the caller to supply a Channel ID key.
	WaitChannelIDLookup
	// WaitPrivateKeyOperation suspends for an asynchronous signing operation.
	WaitPrivateKeyOperation
	// WaitCertificateVerify suspends for asynchronous chain validation.
	WaitCertificateVerify
	// WaitPendingTicket suspends while the server asynchronously produces
	// a session ticket.
	WaitPendingTicket
	// WaitEarlyDataRejected means 0-RTT writes must start failing.
	WaitEarlyDataRejected
	// WaitEarlyReturn permits False Start / early application data before
	// the handshake fully completes.
	WaitEarlyReturn
)

func (w Wait) String() string {
	switch w {
	case WaitOk:
		return "ok"
	case WaitReadMessage:
		return "read_message"
	case WaitReadChangeCipherSpec:
		return "read_change_cipher_spec"
	case WaitFlush:
		return "flush"
	case WaitX509Lookup:
		return "x509_lookup"
	case WaitChannelIDLookup:
		return "channel_id_lookup"
	case WaitPrivateKeyOperation:
		return "private_key_operation"
	case WaitCertificateVerify:
		return "certificate_verify"
	case WaitPendingTicket:
		return "pending_ticket"
	case WaitEarlyDataRejected:
		return "early_data_rejected"
	case WaitEarlyReturn:
		return "early_return"
	default:
		return "unknown_wait"
	}
}

// IsSuspension reports whether this Wait value hands control back to the
// caller; only WaitOk runs the next step without returning.
func (w Wait) IsSuspension() bool { return w != WaitOk }
