package tlscore

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/tlscore/tlscore/pkg/protocol"
	"github.com/tlscore/tlscore/pkg/protocol/alert"
	"github.com/tlscore/tlscore/pkg/protocol/handshake"
	"github.com/tlscore/tlscore/pkg/protocol/recordlayer"
)

// Connection is one established (or establishing) TLS/DTLS session: the
// handshake driver loop, the record layer it installs fresh ciphers
// into, and the application-data Read/Write surface a caller uses
// exactly like a net.Conn. One Connection owns exactly one underlying
// net.Conn and exactly one Handshake.
//
// For DTLS, conn is expected to already be a datagram-oriented net.Conn
// (a single UDP 4-tuple's worth of traffic) — the usual pattern of
// wrapping a net.PacketConn plus peer net.Addr with something like
// pion/transport's udp.Conn before this core ever sees it, mirroring how
// the teacher's own handshaker.go is driven from outside its package.
type Connection struct {
	conn     net.Conn
	isClient bool
	isDTLS   bool
	config   *Config

	hs    *Handshake
	layer *recordlayer.Layer

	readBuf []byte // undecoded bytes read off conn, awaiting a complete record
	scratch []byte // fixed-size landing buffer for one raw conn.Read

	// DTLS flight bookkeeping: the most recently sent flight's wire bytes,
	// kept so a retransmit timeout can resend verbatim, and the next
	// message_seq a queued message should carry.
	lastFlight  [][]byte
	nextSeq     uint16
	retransmit  *retransmitTimer

	handshakeOnce sync.Once
	handshakeErr  error

	closeOnce sync.Once

	readMu  sync.Mutex
	writeMu sync.Mutex

	peerClosed bool
	localErr   error // first fatal error this side observed; latched
}

// newConnection wires up the shared plumbing for NewClientConnection and
// NewServerConnection.
func newConnection(conn net.Conn, isClient bool, config *Config) (*Connection, error) {
	if conn == nil {
		return nil, errNilNextConn
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	version := protocol.Version1_3
	isDTLS := false
	if _, ok := conn.(net.PacketConn); ok {
		isDTLS = true
		version = protocol.VersionDTLS1_2
	}

	c := &Connection{
		conn:       conn,
		isClient:   isClient,
		isDTLS:     isDTLS,
		config:     config,
		hs:         NewHandshake(isClient, isDTLS, config),
		layer:      recordlayer.New(version, config.maxSendFragment()),
		retransmit: newRetransmitTimer(isDTLS),
	}

	return c, nil
}

// NewClientConnection wraps conn as the client side of a handshake.
func NewClientConnection(conn net.Conn, config *Config) (*Connection, error) {
	return newConnection(conn, true, config)
}

// NewServerConnection wraps conn as the server side of a handshake.
func NewServerConnection(conn net.Conn, config *Config) (*Connection, error) {
	return newConnection(conn, false, config)
}

// Handshake drives the handshake to completion, or to its first fatal
// error. Calling it more than once is safe; only the first call does
// any work, matching crypto/tls.Conn's Handshake contract.
func (c *Connection) Handshake(ctx context.Context) error {
	c.handshakeOnce.Do(func() {
		c.handshakeErr = c.runHandshake(ctx)
		if c.config.OnConnectionAttempt != nil {
			c.config.OnConnectionAttempt(c.handshakeErr)
		}
		if c.handshakeErr == nil {
			c.config.Metrics.TrackHandshakeCompleted(c.hs.ConnectionState().Version.String())
		} else {
			var ae *alertError
			if errors.As(c.handshakeErr, &ae) {
				c.config.Metrics.TrackHandshakeFailed(ae.Description.String())
			}
		}
	})

	return c.handshakeErr
}

func (c *Connection) runHandshake(ctx context.Context) error {
	for !c.hs.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}

		w, err := c.hs.Step()
		if rc := c.hs.TakeReadCipher(); rc != nil {
			c.layer.SetReadCipher(rc)
		}
		if wc := c.hs.TakeWriteCipher(); wc != nil {
			c.layer.SetWriteCipher(wc)
		}
		if err != nil {
			return c.abortHandshake(err)
		}

		switch w {
		case WaitOk:
			continue
		case WaitFlush:
			if err := c.flushFlight(); err != nil {
				return c.abortHandshake(err)
			}
		case WaitReadMessage, WaitReadChangeCipherSpec:
			if err := c.fillMessage(ctx); err != nil {
				return c.abortHandshake(err)
			}
		default:
			return c.abortHandshake(errInvalidFSMTransition)
		}
	}

	if !c.isClient && c.config.TicketKeys != nil {
		if err := c.issueSessionTicket(); err != nil {
			return err
		}
	}

	return nil
}

// abortHandshake sends a best-effort fatal alert (the peer may never see
// it, and that's fine — this side is tearing down regardless) and
// returns the original error, which is what callers see and tests assert on.
func (c *Connection) abortHandshake(err error) error {
	desc := alert.InternalError
	var ae *alertError
	if errors.As(err, &ae) {
		desc = ae.Description
	}
	_ = c.sendAlert(alert.Fatal, desc)
	c.localErr = err

	return err
}

// flushFlight drains the handshake's pending messages and writes them to
// the transport: for TLS, sealed into the record layer as one or more
// ApplicationData-carrying records; for DTLS, fragmented and sent as
// individually sealed datagrams, with message_seq tracked across flights
// so a HelloRetryRequest's second ClientHello doesn't collide with the
// first's sequence number.
func (c *Connection) flushFlight() error {
	pending := c.hs.TakePending()
	if len(pending) == 0 {
		return nil
	}

	if !c.isDTLS {
		var plaintext []byte
		for _, msg := range pending {
			plaintext = append(plaintext, msg...)
		}

		return c.writeRecords(protocol.ContentTypeHandshake, plaintext)
	}

	frags, nextSeq, err := buildDTLSFlight(pending, c.nextSeq, c.config.mtu())
	if err != nil {
		return err
	}
	c.nextSeq = nextSeq

	var wire [][]byte
	for _, f := range frags {
		headerBytes, err := f.header.Marshal()
		if err != nil {
			return err
		}
		recs, err := c.layer.Write(protocol.ContentTypeHandshake, append(headerBytes, f.body...))
		if err != nil {
			return err
		}
		wire = append(wire, recs...)
	}
	c.lastFlight = wire
	c.retransmit.Reset()

	return c.writeWire(wire)
}

func (c *Connection) writeRecords(ct protocol.ContentType, plaintext []byte) error {
	recs, err := c.layer.Write(ct, plaintext)
	if err != nil {
		return err
	}

	return c.writeWire(recs)
}

func (c *Connection) writeWire(records [][]byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, r := range records {
		if _, err := c.conn.Write(r); err != nil {
			return netError(err)
		}
	}

	return nil
}

// fillMessage blocks until at least one more handshake message is
// buffered, retransmitting the last DTLS flight on timeout.
func (c *Connection) fillMessage(ctx context.Context) error {
	for {
		if c.isDTLS && c.retransmit.Enabled() {
			deadline := time.Now().Add(c.retransmit.Interval())
			if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
				deadline = ctxDeadline
			}
			_ = c.conn.SetReadDeadline(deadline)
		}

		n, err := c.conn.Read(c.readScratch())
		if err != nil {
			if c.isDTLS && isTimeout(err) {
				c.retransmit.Backoff()
				if resendErr := c.writeWire(c.lastFlight); resendErr != nil {
					return resendErr
				}

				continue
			}

			return netError(err)
		}

		c.readBuf = append(c.readBuf, c.scratch[:n]...)
		if progressed, err := c.drainRecords(); err != nil {
			return err
		} else if progressed {
			return nil
		}
	}
}

// scratch is the fixed-size buffer each raw conn.Read lands in before
// being appended to readBuf; kept as a field so fillMessage and
// readScratch don't re-allocate it on every call.
func (c *Connection) readScratch() []byte {
	if c.scratch == nil {
		c.scratch = make([]byte, recordlayer.MaxPlaintext+256)
	}

	return c.scratch
}

// drainRecords pulls as many complete records as are currently buffered
// out of readBuf, feeding handshake content into the Handshake's
// reassembly buffer and handling alerts/ChangeCipherSpec inline. It
// reports whether any handshake-bearing bytes were delivered, since that
// is the only outcome fillMessage's caller is waiting on.
func (c *Connection) drainRecords() (bool, error) {
	progressed := false
	for {
		rec, ok, err := c.layer.Read(c.readBuf)
		if err == recordlayer.NeedMore {
			return progressed, nil
		}
		if err != nil {
			c.config.Metrics.TrackAEADAuthFailure()
			if c.isDTLS {
				continue // DTLS: an unauthenticated record is silently dropped, not fatal
			}

			return progressed, err
		}
		if !ok {
			c.config.Metrics.TrackReplayDrop()
			n := dtlsRecordSize(c.readBuf)
			if n == 0 {
				return progressed, nil // not enough buffered yet to even know the record's size
			}
			c.readBuf = c.readBuf[n:]
			continue
		}

		c.readBuf = c.readBuf[rec.Consumed:]

		switch rec.ContentType {
		case protocol.ContentTypeHandshake:
			if c.isDTLS {
				var hdr handshake.Header
				if err := hdr.Unmarshal(rec.Plaintext); err != nil {
					return progressed, err
				}
				c.hs.PushDTLS(hdr, rec.Plaintext[handshake.HeaderLength:])
			} else {
				c.hs.PushTLS(rec.Plaintext)
			}
			progressed = true

		case protocol.ContentTypeChangeCipherSpec:
			continue // TLS 1.3 middlebox-compatibility CCS: accepted, ignored

		case protocol.ContentTypeAlert:
			var a alert.Alert
			if err := a.Unmarshal(rec.Plaintext); err != nil {
				return progressed, err
			}
			if a.IsFatalOrCloseNotify() {
				return progressed, &alertError{Alert: &a}
			}
			// a non-fatal, non-close-notify warning during the handshake is
			// simply noted and ignored, per spec 4.12's warning policy.

		default:
			return progressed, errUnhandledContentType
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// dtlsRecordSize reports how many bytes of buf a single DTLS record
// occupies (header plus ciphertext), or 0 if buf doesn't yet hold a
// complete header. Used only to skip a record the replay window or AEAD
// already rejected, since Layer.Read doesn't hand back a dropped
// record's framing.
func dtlsRecordSize(buf []byte) int {
	if len(buf) < recordlayer.DTLSHeaderSize {
		return 0
	}
	contentLen := int(buf[11])<<8 | int(buf[12])
	total := recordlayer.DTLSHeaderSize + contentLen
	if total > len(buf) {
		return 0
	}

	return total
}

// Read returns decrypted application data. It blocks until at least one
// byte is available, io.EOF after a clean close_notify, or the first
// fatal error this side has latched.
func (c *Connection) Read(b []byte) (int, error) {
	if err := c.handshakeErrIfAny(); err != nil {
		return 0, err
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		for len(c.readBuf) > 0 {
			rec, ok, err := c.layer.Read(c.readBuf)
			if err == recordlayer.NeedMore {
				break
			}
			if err != nil {
				return 0, err
			}
			if !ok {
				n := dtlsRecordSize(c.readBuf)
				if n == 0 {
					break
				}
				c.readBuf = c.readBuf[n:]
				continue
			}
			c.readBuf = c.readBuf[rec.Consumed:]

			switch rec.ContentType {
			case protocol.ContentTypeApplicationData:
				n := copy(b, rec.Plaintext)

				return n, nil
			case protocol.ContentTypeAlert:
				var a alert.Alert
				if err := a.Unmarshal(rec.Plaintext); err != nil {
					return 0, err
				}
				if a.Description == alert.CloseNotify {
					c.peerClosed = true

					return 0, io.EOF
				}
				if a.IsFatalOrCloseNotify() {
					return 0, &alertError{Alert: &a}
				}
			default:
				return 0, errUnhandledContentType
			}
		}

		if c.peerClosed {
			return 0, io.EOF
		}

		n, err := c.conn.Read(c.readScratch())
		if err != nil {
			return 0, netError(err)
		}
		c.readBuf = append(c.readBuf, c.scratch[:n]...)
	}
}

// Write seals and sends application data.
func (c *Connection) Write(b []byte) (int, error) {
	if err := c.handshakeErrIfAny(); err != nil {
		return 0, err
	}

	if err := c.writeRecords(protocol.ContentTypeApplicationData, b); err != nil {
		return 0, err
	}

	return len(b), nil
}

func (c *Connection) handshakeErrIfAny() error {
	if c.localErr != nil {
		return c.localErr
	}
	if !c.hs.Done() {
		return errHandshakeInProgress
	}

	return nil
}

// Close sends close_notify (best-effort) and closes the underlying
// transport. Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if !c.config.QuietShutdown {
			_ = c.sendAlert(alert.Warning, alert.CloseNotify)
		}
		err = c.conn.Close()
	})

	return err
}

func (c *Connection) sendAlert(level alert.Level, desc alert.Description) error {
	a := &alert.Alert{Level: level, Description: desc}
	body, err := a.Marshal()
	if err != nil {
		return err
	}

	return c.writeRecords(protocol.ContentTypeAlert, body)
}

// ConnectionState summarizes the negotiated (or in-progress) session.
func (c *Connection) ConnectionState() ConnectionState { return c.hs.ConnectionState() }

// issueSessionTicket sends one NewSessionTicket after a server handshake
// completes, per RFC 8446 section 4.6.1; failures here never fail the
// handshake itself, since resumption is an optimization, not a
// requirement.
func (c *Connection) issueSessionTicket() error {
	ticket, err := c.hs.IssueSessionTicket(c.config.TicketKeys, c.config.ticketLifetime())
	if err != nil {
		return nil //nolint:nilerr
	}
	body, err := ticket.Marshal()
	if err != nil {
		return nil //nolint:nilerr
	}
	hdr := handshake.Header{Type: handshake.TypeNewSessionTicket, Length: uint32(len(body))}

	return c.writeRecords(protocol.ContentTypeHandshake, append(hdr.MarshalTLS(), body...))
}

// LocalAddr, RemoteAddr and the deadline setters delegate directly to the
// underlying transport, matching net.Conn.
func (c *Connection) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Connection) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *Connection) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *Connection) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
