package tlscore

import (
	"crypto"
	"crypto/rand"
	"crypto/tls"
	"time"

	"github.com/tlscore/tlscore/internal/aeadctx"
	"github.com/tlscore/tlscore/internal/capability"
	"github.com/tlscore/tlscore/internal/ciphersuite"
	"github.com/tlscore/tlscore/internal/handoff"
	"github.com/tlscore/tlscore/internal/keyschedule"
	"github.com/tlscore/tlscore/internal/session"
	"github.com/tlscore/tlscore/internal/transcript"
	"github.com/tlscore/tlscore/pkg/crypto/elliptic"
	"github.com/tlscore/tlscore/pkg/crypto/hash"
	"github.com/tlscore/tlscore/pkg/crypto/signature"
	"github.com/tlscore/tlscore/pkg/crypto/signaturehash"
	"github.com/tlscore/tlscore/pkg/protocol"
	"github.com/tlscore/tlscore/pkg/protocol/alert"
	"github.com/tlscore/tlscore/pkg/protocol/extension"
	"github.com/tlscore/tlscore/pkg/protocol/handshake"
)

// preferredGroup is the elliptic-curve group this core offers a key_share
// for absent any stronger signal; X25519 is cheap enough to compute
// speculatively for every ClientHello.
const preferredGroup = elliptic.X25519

// tls13ServerCertVerifyContext and tls13ClientCertVerifyContext are the
// per-direction context strings RFC 8446 section 4.4.3 mixes into every
// TLS 1.3 CertificateVerify signature (after the 64 bytes of 0x20 padding
// tls13SignedContent adds), so a client's and a server's signatures can
// never be replayed against each other.
var (
	tls13ServerCertVerifyContext = []byte("TLS 1.3, server CertificateVerify")
	tls13ClientCertVerifyContext = []byte("TLS 1.3, client CertificateVerify")
)

// Handshake drives one side of a single handshake through the per-role
// substate chain named by SubState, pausing at whichever Wait condition a
// step resolves to. A Connection owns exactly one Handshake at a time and
// is responsible for performing the I/O (reading record-layer plaintext
// into the message buffer, flushing queued messages, installing newly
// derived ciphers) that each Wait value asks for.
type Handshake struct {
	isClient bool
	isDTLS   bool
	config   *Config

	state SubState

	buf     *handshake.Buffer
	pending [][]byte // serialized (header+body) handshake messages awaiting flush

	transcript *transcript.Hash
	suite      *ciphersuite.CipherSuite
	schedule   *keyschedule.Schedule

	clientRandom handshake.Random
	serverRandom handshake.Random

	group        elliptic.Curve
	keypair      *elliptic.Keypair
	helloRetried bool
	ch1Raw       []byte // first ClientHello's raw header+body, for HRR transcript surgery

	pendingReadCipher  *aeadctx.Context
	pendingWriteCipher *aeadctx.Context

	clientHSTrafficSecret  []byte
	serverHSTrafficSecret  []byte
	clientAppTrafficSecret []byte
	serverAppTrafficSecret []byte
	exporterSecret         []byte
	resumptionSecret       []byte

	serverName          string
	negotiatedALPN      string
	clientCertRequested bool

	localCertificate *tls.Certificate
	peerChain        [][]byte
	peerPublicKey    crypto.PublicKey

	// peerSignatureSchemes is the peer's signature_algorithms extension,
	// captured so this side's own CertificateVerify picks a scheme the
	// peer actually advertised instead of its own unconstrained default.
	peerSignatureSchemes []signaturehash.Algorithm

	// lastSnapshot is the transcript digest as it stood immediately before
	// the most recently pulled message was folded in; CertificateVerify
	// and Finished are both verified against the transcript through the
	// message preceding them, never including themselves.
	lastSnapshot []byte

	// traceID correlates this handshake's logs with the originating
	// process's, when it was picked up mid-handshake via ResumeServer.
	traceID [16]byte

	done bool
	err  error
}

// NewHandshake creates a Handshake for one connection, starting at the
// role's first substate.
func NewHandshake(isClient, isDTLS bool, config *Config) *Handshake {
	state := ServerStart
	if isClient {
		state = ClientStart
	}

	return &Handshake{
		isClient: isClient,
		isDTLS:   isDTLS,
		config:   config,
		state:    state,
		buf:      handshake.NewBuffer(isDTLS),
		group:    preferredGroup,
	}
}

// State reports the current substate, for introspection and tests.
func (h *Handshake) State() SubState { return h.state }

// Done reports whether the handshake has reached its role's terminal state.
func (h *Handshake) Done() bool { return h.done }

// PushTLS feeds one piece of record-layer plaintext (content type
// handshake) from the TLS byte stream into the reassembly buffer.
func (h *Handshake) PushTLS(data []byte) { h.buf.PushTLS(data) }

// PushDTLS feeds one DTLS handshake fragment into the reassembly buffer.
func (h *Handshake) PushDTLS(hdr handshake.Header, body []byte) { h.buf.PushDTLS(hdr, body) }

// TakePending drains and returns the handshake records queued for flush.
func (h *Handshake) TakePending() [][]byte {
	out := h.pending
	h.pending = nil

	return out
}

// TakeReadCipher returns and clears a read-direction AEAD context derived
// during the last step, if one was derived.
func (h *Handshake) TakeReadCipher() *aeadctx.Context {
	c := h.pendingReadCipher
	h.pendingReadCipher = nil

	return c
}

// TakeWriteCipher returns and clears a write-direction AEAD context
// derived during the last step, if one was derived.
func (h *Handshake) TakeWriteCipher() *aeadctx.Context {
	c := h.pendingWriteCipher
	h.pendingWriteCipher = nil

	return c
}

// TraceID returns the correlation id this handshake was resumed with, or
// the zero value for a handshake that started fresh.
func (h *Handshake) TraceID() [16]byte { return h.traceID }

// ConnectionState summarizes the completed (or in-progress) handshake.
func (h *Handshake) ConnectionState() ConnectionState {
	var id ciphersuite.ID
	if h.suite != nil {
		id = h.suite.ID
	}

	version := protocol.Version1_3
	if h.isDTLS {
		version = protocol.VersionDTLS1_2
	}

	return ConnectionState{
		Version:            version,
		CipherSuite:        id,
		ServerName:         h.serverName,
		NegotiatedProtocol: h.negotiatedALPN,
		PeerCertificates:   h.peerChain,
		HandshakeComplete:  h.done,
	}
}

// ResumeServer fast-forwards a freshly constructed server Handshake past
// everything a handback already completed (C11 §4.11): the peer that
// performed the original handoff already processed ClientHello through
// whichever point rec names, so this Handshake picks up exactly at the
// named substate instead of replaying the messages that produced it.
func (h *Handshake) ResumeServer(rec *handoff.Record) {
	h.transcript = transcript.New()
	h.transcript.Update(rec.Transcript)

	h.traceID = [16]byte(rec.TraceID)
	h.clientRandom.UnmarshalFixed(rec.ClientRandom)
	h.serverRandom.UnmarshalFixed(rec.ServerRandom)
	h.negotiatedALPN = rec.ALPN
	h.serverName = rec.SNI
	h.clientCertRequested = rec.ClientCertRequested

	switch rec.ResumeState() {
	case handoff.ResumeReadClientCertificate:
		h.state = ServerReadClientCertificate
	case handoff.ResumeFinishServerHandshake:
		h.state = ServerFinishServerHandshake
	}
}

// Step advances the handshake by exactly one unit of work and reports the
// Wait the caller must honor before calling Step again. WaitOk is the only
// value the driver loop should not return control to the caller on.
func (h *Handshake) Step() (Wait, error) {
	if h.err != nil {
		return WaitOk, h.err
	}
	if h.done {
		return WaitOk, nil
	}

	var w Wait
	var err error
	if h.isClient {
		w, err = h.stepClient()
	} else {
		w, err = h.stepServer()
	}
	if err != nil {
		h.err = err
	}

	return w, err
}

// nextMessage pulls the next reassembled message off the buffer, feeding
// its raw wire bytes (header included) into the rolling transcript hash
// as it goes. It returns (nil, WaitReadMessage, nil) when no message is
// ready yet — not an error, a suspension.
func (h *Handshake) nextMessage() (*handshake.RawMessage, Wait, error) {
	msg, err := h.buf.GetMessage()
	if err == handshake.NeedMore {
		return nil, WaitReadMessage, nil
	}
	if err != nil {
		return nil, WaitOk, err
	}

	h.lastSnapshot = h.transcript.Snapshot()

	hdr := handshake.Header{Type: msg.Type, Length: uint32(len(msg.Body))}
	h.transcript.Update(hdr.MarshalTLS())
	h.transcript.Update(msg.Body)

	return msg, WaitOk, nil
}

// queue marshals a handshake message, updates the transcript with its
// wire bytes, and appends it to the pending flight.
func (h *Handshake) queue(msg handshake.Message) error {
	body, err := msg.Marshal()
	if err != nil {
		return err
	}
	hdr := handshake.Header{Type: msg.Type(), Length: uint32(len(body))}

	headerBytes := hdr.MarshalTLS()
	h.transcript.Update(headerBytes)
	h.transcript.Update(body)

	h.pending = append(h.pending, append(headerBytes, body...))

	return nil
}

// ---- client ----

func (h *Handshake) stepClient() (Wait, error) {
	switch h.state {
	case ClientStart:
		return h.clientSendFirstHello()
	case ClientWaitServerHello:
		return h.clientProcessServerHello()
	case ClientProcessEncryptedExtensions:
		return h.clientProcessEncryptedExtensions()
	case ClientProcessCertificateRequest, ClientProcessServerCertificate,
		ClientProcessServerCertificateVerify, ClientProcessServerFinished:
		return h.clientProcessAuthFlight()
	case ClientSendClientCertificate, ClientSendClientCertificateVerify:
		return h.clientSendSecondFlight()
	case ClientDone:
		h.done = true

		return WaitOk, nil
	default:
		return WaitOk, errInvalidFSMTransition
	}
}

func (h *Handshake) clientSendFirstHello() (Wait, error) {
	h.transcript = transcript.New()

	if err := h.clientRandom.Populate(); err != nil {
		return WaitOk, err
	}

	kp, err := elliptic.GenerateKeypair(h.group)
	if err != nil {
		return WaitOk, err
	}
	h.keypair = kp

	exts := h.clientExtensions()

	ch := &handshake.MessageClientHello{
		Version:            protocol.Version1_2, // TLS 1.3's legacy_version freezes at {3,3}; DTLS overridden below
		Random:             h.clientRandom,
		SessionID:           nil,
		CipherSuiteIDs:      h.offeredCipherSuites(),
		CompressionMethods:  []byte{0},
		Extensions:          exts,
	}
	if h.isDTLS {
		ch.Version = protocol.VersionDTLS1_2
	}

	if err := h.queue(ch); err != nil {
		return WaitOk, err
	}
	// Kept verbatim (header+body) so a later HelloRetryRequest can hash it
	// under the negotiated suite's algorithm, not the SHA-256 this core
	// assumes before a suite is chosen.
	h.ch1Raw = append([]byte{}, h.pending[len(h.pending)-1]...)

	h.state = ClientWaitServerHello

	return WaitFlush, nil
}

func (h *Handshake) clientExtensions() []extension.Extension {
	exts := []extension.Extension{
		&extension.SupportedVersions{Versions: []protocol.Version{protocol.Version1_3}},
		&extension.SupportedSignatureAlgorithms{SignatureHashAlgorithms: signaturehash.Algorithms()},
		&extension.KeyShare{
			Mode:    extension.KeyShareClientHello,
			Entries: []extension.KeyShareEntry{{Group: h.group, KeyExchange: h.keypair.PublicKey}},
		},
	}
	if h.config.ServerName != "" {
		exts = append(exts, &extension.ServerNameExtension{HostName: h.config.ServerName})
	}
	if len(h.config.SupportedProtocols) > 0 {
		exts = append(exts, &extension.ALPNProtocolNameList{ProtocolNameList: h.config.SupportedProtocols})
	}

	return exts
}

func (h *Handshake) offeredCipherSuites() []uint16 {
	suites := h.config.cipherSuites()
	ids := make([]uint16, len(suites))
	for i, cs := range suites {
		ids[i] = uint16(cs.ID)
	}

	return ids
}

func (h *Handshake) clientProcessServerHello() (Wait, error) {
	msg, w, err := h.nextMessage()
	if err != nil || w != WaitOk {
		return w, err
	}
	if msg.Type != handshake.TypeServerHello {
		return WaitOk, errUnexpectedMessage
	}

	var sh handshake.MessageServerHello
	if err := sh.Unmarshal(msg.Body); err != nil {
		return WaitOk, err
	}

	if sh.IsHelloRetryRequest() {
		return h.clientProcessHelloRetryRequest(&sh, msg.Body)
	}

	suite, ok := ciphersuite.ByID(ciphersuite.ID(*sh.CipherSuiteID))
	if !ok {
		return WaitOk, errInvalidCipherSuite
	}
	h.suite = suite
	h.serverRandom = sh.Random
	h.transcript.Rebind(suite.TranscriptAlgo)

	var peerEntry extension.KeyShareEntry
	for _, e := range sh.Extensions {
		if ks, ok := e.(*extension.KeyShare); ok && len(ks.Entries) == 1 {
			peerEntry = ks.Entries[0]
		}
	}
	if peerEntry.KeyExchange == nil || peerEntry.Group != h.group {
		return WaitOk, errNoSupportedEllipticCurves
	}

	dhe, err := h.keypair.SharedSecret(peerEntry.KeyExchange)
	if err != nil {
		return WaitOk, err
	}

	if err := h.deriveHandshakeSecrets(dhe); err != nil {
		return WaitOk, err
	}

	h.state = ClientProcessEncryptedExtensions

	return WaitOk, nil
}

func (h *Handshake) clientProcessHelloRetryRequest(sh *handshake.MessageServerHello, rawBody []byte) (Wait, error) {
	if h.helloRetried {
		return WaitOk, errSecondHelloRetryRequest
	}
	h.helloRetried = true

	suite, ok := ciphersuite.ByID(ciphersuite.ID(*sh.CipherSuiteID))
	if !ok {
		return WaitOk, errInvalidCipherSuite
	}
	h.suite = suite

	var retryGroup elliptic.Curve
	for _, e := range sh.Extensions {
		if ks, ok := e.(*extension.KeyShare); ok && ks.Mode == extension.KeyShareHelloRetryRequest {
			retryGroup = ks.Group
		}
	}
	if retryGroup == 0 {
		return WaitOk, errNoSupportedEllipticCurves
	}

	// Hash ClientHello1 directly under the now-known suite's algorithm
	// (queue folded it into the transcript before any suite was
	// negotiated, so the transcript's own buffered copy isn't trustworthy
	// for anything but SHA-256) and replace it in the transcript with the
	// synthetic message_hash record RFC 8446 section 4.4.1 requires, then
	// re-append the HRR's own bytes lost when ReplaceWithMessageHash reset
	// the hash state.
	ch1Digest := suite.TranscriptHash()()
	ch1Digest.Write(h.ch1Raw) //nolint:errcheck
	h.transcript.ReplaceWithMessageHash(ch1Digest.Sum(nil), suite.TranscriptAlgo)

	hrrHeader := handshake.Header{Type: handshake.TypeServerHello, Length: uint32(len(rawBody))}
	h.transcript.Update(hrrHeader.MarshalTLS())
	h.transcript.Update(rawBody)

	h.group = retryGroup
	kp, err := elliptic.GenerateKeypair(h.group)
	if err != nil {
		return WaitOk, err
	}
	h.keypair = kp

	ch := &handshake.MessageClientHello{
		Version:            protocol.Version1_2,
		Random:             h.clientRandom,
		CipherSuiteIDs:     h.offeredCipherSuites(),
		CompressionMethods: []byte{0},
		Extensions:         h.clientExtensions(),
	}
	if h.isDTLS {
		ch.Version = protocol.VersionDTLS1_2
	}
	if err := h.queue(ch); err != nil {
		return WaitOk, err
	}

	h.state = ClientWaitServerHello

	return WaitFlush, nil
}

func (h *Handshake) deriveHandshakeSecrets(dhe []byte) error {
	h.schedule = keyschedule.New(h.suite.TranscriptHash())
	h.schedule.EarlySecret(nil)
	h.schedule.HandshakeSecret(dhe)

	chTS := h.transcript.Snapshot()
	h.clientHSTrafficSecret = h.schedule.ClientHandshakeTrafficSecret(chTS)
	h.serverHSTrafficSecret = h.schedule.ServerHandshakeTrafficSecret(chTS)

	read, err := h.deriveAEAD(h.serverHSTrafficSecretFor(), aeadctx.Open)
	if err != nil {
		return err
	}
	write, err := h.deriveAEAD(h.clientHSTrafficSecretFor(), aeadctx.Seal)
	if err != nil {
		return err
	}

	if h.isClient {
		h.pendingReadCipher = read
		h.pendingWriteCipher = write
	} else {
		h.pendingReadCipher = write // server reads with the client's secret
		h.pendingWriteCipher = read // and writes with its own
	}

	return nil
}

func (h *Handshake) clientHSTrafficSecretFor() []byte { return h.clientHSTrafficSecret }
func (h *Handshake) serverHSTrafficSecretFor() []byte { return h.serverHSTrafficSecret }

func (h *Handshake) deriveAEAD(secret []byte, dir aeadctx.Direction) (*aeadctx.Context, error) {
	key, iv := h.schedule.TrafficKeys(secret, h.suite.KeyLen, h.suite.FixedNonceLen+8)

	return aeadctx.New(h.suite.AeadSuite, key, iv, dir)
}

func (h *Handshake) clientProcessEncryptedExtensions() (Wait, error) {
	msg, w, err := h.nextMessage()
	if err != nil || w != WaitOk {
		return w, err
	}
	if msg.Type != handshake.TypeEncryptedExtensions {
		return WaitOk, errUnexpectedMessage
	}

	var ee handshake.MessageEncryptedExtensions
	if err := ee.Unmarshal(msg.Body); err != nil {
		return WaitOk, err
	}
	for _, e := range ee.Extensions {
		if alpn, ok := e.(*extension.ALPNProtocolNameList); ok && len(alpn.ProtocolNameList) == 1 {
			h.negotiatedALPN = alpn.ProtocolNameList[0]
		}
	}

	h.state = ClientProcessCertificateRequest

	return WaitOk, nil
}

// clientProcessAuthFlight handles every message between EncryptedExtensions
// and the server's Finished, branching on wire type since
// CertificateRequest and PSK-resumed Certificate/CertificateVerify are
// each optional (RFC 8446 section 4.1.4/4.4.2).
func (h *Handshake) clientProcessAuthFlight() (Wait, error) {
	msg, w, err := h.nextMessage()
	if err != nil || w != WaitOk {
		return w, err
	}

	switch msg.Type {
	case handshake.TypeCertificateRequest:
		var cr handshake.MessageCertificateRequest
		if err := cr.Unmarshal(msg.Body); err != nil {
			return WaitOk, err
		}
		h.clientCertRequested = true
		h.peerSignatureSchemes = cr.SignatureHashAlgorithms
		h.state = ClientProcessServerCertificate

		return WaitOk, nil

	case handshake.TypeCertificate:
		var cert handshake.MessageCertificate
		if err := cert.Unmarshal(msg.Body, true); err != nil {
			return WaitOk, err
		}
		h.peerChain = cert.Certificates
		h.state = ClientProcessServerCertificateVerify

		return WaitOk, nil

	case handshake.TypeCertificateVerify:
		if len(h.peerChain) == 0 {
			return WaitOk, errCertificateVerifyNoCertificate
		}

		return h.verifyPeerCertificateVerify(msg, tls13ServerCertVerifyContext, ClientProcessServerFinished)

	case handshake.TypeFinished:
		return h.clientProcessServerFinished(msg)

	default:
		return WaitOk, errUnexpectedMessage
	}
}

func (h *Handshake) verifyPeerCertificateVerify(msg *handshake.RawMessage, context []byte, next SubState) (Wait, error) {
	var cv handshake.MessageCertificateVerify
	if err := cv.Unmarshal(msg.Body); err != nil {
		return WaitOk, err
	}

	caps := h.config.capabilities()
	if h.peerPublicKey == nil {
		pub, err := caps.CertVerifier.VerifyChain(h.peerChain, h.config.ServerName)
		if err != nil {
			return WaitOk, err
		}
		h.peerPublicKey = pub
	}

	scheme := capability.SignatureScheme(uint16(cv.HashAlgorithm)<<8 | uint16(cv.SignatureAlgorithm))
	// lastSnapshot is the transcript through the message preceding this
	// CertificateVerify: nextMessage captured it before folding the
	// CertificateVerify's own bytes in, so it is not self-referential.
	signed := tls13SignedContent(context, h.lastSnapshot)
	if err := caps.Verifier.Verify(scheme, h.peerPublicKey, signed, cv.Signature); err != nil {
		return WaitOk, err
	}

	h.state = next

	return WaitOk, nil
}

func (h *Handshake) clientProcessServerFinished(msg *handshake.RawMessage) (Wait, error) {
	preFinishedTranscript := h.lastSnapshot
	finishedKey := h.schedule.FinishedKey(h.serverHSTrafficSecret)
	expected := h.schedule.VerifyData(finishedKey, preFinishedTranscript)
	if !hmacEqual(expected, msg.Body) {
		return WaitOk, errVerifyDataMismatch
	}

	h.masterSecretSetup()

	if h.clientCertRequested {
		h.state = ClientSendClientCertificate
	} else {
		h.state = ClientSendClientCertificateVerify // no-op passthrough, see clientSendSecondFlight
	}

	return WaitOk, nil
}

func (h *Handshake) masterSecretSetup() {
	h.schedule.MasterSecret()

	snapshot := h.transcript.Snapshot()
	h.clientAppTrafficSecret = h.schedule.ClientApplicationTrafficSecret(snapshot)
	h.serverAppTrafficSecret = h.schedule.ServerApplicationTrafficSecret(snapshot)
	h.exporterSecret = h.schedule.ExporterMasterSecret(snapshot)
	// resumptionSecret isn't ready until the client Finished is in the
	// transcript too (RFC 8446 section 7.1); each side recomputes it once
	// that Finished is in (clientSendSecondFlight, serverFinish), and
	// IssueSessionTicket recomputes it again right before issuing a ticket.
	h.resumptionSecret = h.schedule.ResumptionMasterSecret(snapshot)
}

// ResumptionSecret returns the resumption_master_secret, valid once the
// handshake has reached its done state. A server still needs the full
// transcript through the client's Finished to issue a ticket correctly;
// see IssueSessionTicket.
func (h *Handshake) ResumptionSecret() []byte { return h.resumptionSecret }

// IssueSessionTicket builds one NewSessionTicket message (RFC 8446 section
// 4.6.1) binding a fresh PSK, derived from the resumption secret under a
// per-ticket nonce, to the session this Handshake just completed. Callers
// (a server Connection, after the client's Finished) queue the returned
// message directly rather than through queue(), since post-handshake
// messages aren't part of the handshake transcript.
func (h *Handshake) IssueSessionTicket(keys *session.KeyStore, lifetime uint32) (*handshake.MessageNewSessionTicket, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	fullTranscript := h.transcript.Snapshot()
	resumptionSecret := h.schedule.ResumptionMasterSecret(fullTranscript)
	psk := h.schedule.ExpandTicketPSK(resumptionSecret, nonce, h.suite.TranscriptHash()().Size())

	ageAdd, err := session.NewTicketAgeAdd()
	if err != nil {
		return nil, err
	}

	sess := session.New()
	sess.Version = uint16(protocol.Version1_3.Major)<<8 | uint16(protocol.Version1_3.Minor)
	sess.CipherSuite = h.suite.ID
	sess.MasterSecret = psk
	sess.ServerName = h.serverName
	sess.ALPNProtocol = h.negotiatedALPN
	sess.TicketAgeAdd = ageAdd
	sess.TicketLifetime = lifetime
	sess.TimeOfIssue = h.ticketIssueTime()

	plaintext, err := sess.Marshal()
	if err != nil {
		return nil, err
	}
	ticket, err := keys.Seal(plaintext)
	if err != nil {
		return nil, err
	}

	return &handshake.MessageNewSessionTicket{
		LifetimeSeconds: lifetime,
		AgeAdd:          ageAdd,
		Nonce:           nonce,
		Ticket:          ticket,
	}, nil
}

// ticketIssueTime returns the wall-clock time recorded as an issued
// ticket's time of issue.
func (h *Handshake) ticketIssueTime() time.Time { return time.Now() }

func (h *Handshake) clientSendSecondFlight() (Wait, error) {
	if h.clientCertRequested {
		certChoice, err := h.selectClientCertificate()
		if err != nil {
			return WaitOk, err
		}
		h.localCertificate = certChoice

		cert := &handshake.MessageCertificate{Context: []byte{}}
		var signer crypto.Signer
		if h.localCertificate != nil {
			cert.Certificates = h.localCertificate.Certificate
			signer, _ = h.localCertificate.PrivateKey.(crypto.Signer)
		}
		if err := h.queue(cert); err != nil {
			return WaitOk, err
		}

		if signer != nil {
			if err := h.queueCertificateVerify(signer, tls13ClientCertVerifyContext); err != nil {
				return WaitOk, err
			}
		}
	}

	if err := h.queueFinished(h.clientHSTrafficSecret); err != nil {
		return WaitOk, err
	}
	h.resumptionSecret = h.schedule.ResumptionMasterSecret(h.transcript.Snapshot())

	appRead, err := h.deriveAEAD(h.serverAppTrafficSecret, aeadctx.Open)
	if err != nil {
		return WaitOk, err
	}
	appWrite, err := h.deriveAEAD(h.clientAppTrafficSecret, aeadctx.Seal)
	if err != nil {
		return WaitOk, err
	}
	h.pendingReadCipher = appRead
	h.pendingWriteCipher = appWrite

	h.state = ClientDone
	h.done = true

	return WaitFlush, nil
}

func (h *Handshake) queueCertificateVerify(signer crypto.Signer, context []byte) error {
	scheme, err := signatureSchemeFor(signer, h.peerSignatureSchemes)
	if err != nil {
		return err
	}

	// A caller-supplied capability.Signer (e.g. backing a private key held
	// in an HSM) takes priority; otherwise sign directly with the
	// certificate's own key.
	sigProvider := h.config.Capabilities.Signer
	if sigProvider == nil {
		sigProvider = &capability.DefaultSigner{PrivateKey: signer}
	}

	signed := tls13SignedContent(context, h.transcript.Snapshot())
	sig, err := sigProvider.Sign(scheme, signed)
	if err != nil {
		return err
	}

	cv := &handshake.MessageCertificateVerify{
		HashAlgorithm:      hash.Algorithm(scheme >> 8),
		SignatureAlgorithm: signature.Algorithm(scheme & 0xFF),
		Signature:          sig,
	}

	return h.queue(cv)
}

func (h *Handshake) queueFinished(trafficSecret []byte) error {
	finishedKey := h.schedule.FinishedKey(trafficSecret)
	verifyData := h.schedule.VerifyData(finishedKey, h.transcript.Snapshot())

	return h.queue(&handshake.MessageFinished{VerifyData: verifyData})
}

// signatureSchemeFor picks a scheme signer can produce, restricted to
// peerOffered when the peer advertised a signature_algorithms list at all;
// an empty list (PSK-only peers, or a CertificateRequest parsed before this
// core added that capture) falls back to every scheme this core supports.
func signatureSchemeFor(signer crypto.Signer, peerOffered []signaturehash.Algorithm) (capability.SignatureScheme, error) {
	candidates := peerOffered
	if len(candidates) == 0 {
		candidates = signaturehash.Algorithms()
	}

	alg, err := signaturehash.SelectSignatureScheme(candidates, signer)
	if err != nil {
		return 0, err
	}

	return capability.SignatureScheme(uint16(alg.Hash)<<8 | uint16(alg.Signature)), nil
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}

	return diff == 0
}

func tls13SignedContent(context, transcriptHash []byte) []byte {
	out := make([]byte, 0, 64+len(context)+1+len(transcriptHash))
	for i := 0; i < 64; i++ {
		out = append(out, 0x20)
	}
	out = append(out, context...)
	out = append(out, 0x00)
	out = append(out, transcriptHash...)

	return out
}

// ---- server ----

func (h *Handshake) stepServer() (Wait, error) {
	switch h.state {
	case ServerStart, ServerWaitClientHello:
		return h.serverProcessClientHello()
	case ServerSendServerHello:
		return h.serverSendServerHello()
	case ServerReadClientCertificate:
		return h.serverProcessClientAuthFlight()
	case ServerProcessClientFinished:
		return h.serverProcessClientFinished()
	case ServerFinishServerHandshake:
		return h.serverFinish()
	case ServerDone:
		h.done = true

		return WaitOk, nil
	default:
		return WaitOk, errInvalidFSMTransition
	}
}

func (h *Handshake) serverProcessClientHello() (Wait, error) {
	if h.transcript == nil {
		h.transcript = transcript.New()
	}

	msg, w, err := h.nextMessage()
	if err != nil || w != WaitOk {
		return w, err
	}
	if msg.Type != handshake.TypeClientHello {
		return WaitOk, errUnexpectedMessage
	}

	var ch handshake.MessageClientHello
	if err := ch.Unmarshal(msg.Body); err != nil {
		return WaitOk, err
	}
	h.clientRandom = ch.Random

	suite, err := negotiateCipherSuite(ch.CipherSuiteIDs, h.config)
	if err != nil {
		return WaitOk, err
	}
	h.suite = suite
	h.transcript.Rebind(suite.TranscriptAlgo)

	var peerEntry extension.KeyShareEntry
	for _, e := range ch.Extensions {
		switch ext := e.(type) {
		case *extension.ServerNameExtension:
			h.serverName = ext.HostName
		case *extension.ALPNProtocolNameList:
			if proto, ok := extension.Negotiate(ext.ProtocolNameList, h.config.SupportedProtocols); ok {
				h.negotiatedALPN = proto
			}
		case *extension.KeyShare:
			if entry, ok := ext.Find(h.group); ok {
				peerEntry = entry
			}
		case *extension.SupportedSignatureAlgorithms:
			h.peerSignatureSchemes = ext.SignatureHashAlgorithms
		}
	}
	if peerEntry.KeyExchange == nil {
		return WaitOk, errNoSupportedEllipticCurves
	}

	kp, err := elliptic.GenerateKeypair(h.group)
	if err != nil {
		return WaitOk, err
	}
	h.keypair = kp

	dhe, err := h.keypair.SharedSecret(peerEntry.KeyExchange)
	if err != nil {
		return WaitOk, err
	}

	if err := h.serverRandom.Populate(); err != nil {
		return WaitOk, err
	}

	if h.config.ClientAuth != NoClientCert && h.config.ClientAuth != VerifyClientCertIfGiven {
		h.clientCertRequested = true
	}

	h.state = ServerSendServerHello

	return h.serverDeriveAndQueueHello(suite, dhe)
}

func (h *Handshake) serverDeriveAndQueueHello(suite *ciphersuite.CipherSuite, dhe []byte) (Wait, error) {
	id := uint16(suite.ID)
	sh := &handshake.MessageServerHello{
		Version:           protocol.Version1_2,
		Random:            h.serverRandom,
		CipherSuiteID:     &id,
		CompressionMethod: 0,
		Extensions: []extension.Extension{
			&extension.SupportedVersions{Versions: []protocol.Version{protocol.Version1_3}},
			&extension.KeyShare{
				Mode:    extension.KeyShareServerHello,
				Entries: []extension.KeyShareEntry{{Group: h.group, KeyExchange: h.keypair.PublicKey}},
			},
		},
	}
	if h.isDTLS {
		sh.Version = protocol.VersionDTLS1_2
	}
	if err := h.queue(sh); err != nil {
		return WaitOk, err
	}

	if err := h.deriveHandshakeSecrets(dhe); err != nil {
		return WaitOk, err
	}

	return WaitFlush, nil
}

// selectServerCertificate picks the certificate this server presents,
// preferring Config.GetCertificate (so a caller can pick per-ClientHello)
// over the first entry of Config.Certificates.
func (h *Handshake) selectServerCertificate() (*tls.Certificate, error) {
	if h.config.GetCertificate != nil {
		info := &ClientHelloInfo{
			ServerName:      h.serverName,
			SupportedProtos: []string{h.negotiatedALPN},
		}

		return h.config.GetCertificate(info)
	}
	if len(h.config.Certificates) > 0 {
		return &h.config.Certificates[0], nil
	}

	return nil, nil
}

// selectClientCertificate picks the certificate this client presents in
// response to a CertificateRequest, preferring Config.GetClientCertificate.
func (h *Handshake) selectClientCertificate() (*tls.Certificate, error) {
	if h.config.GetClientCertificate != nil {
		info := &CertificateRequestInfo{}
		for _, a := range h.peerSignatureSchemes {
			info.SignatureSchemes = append(info.SignatureSchemes,
				capability.SignatureScheme(uint16(a.Hash)<<8|uint16(a.Signature)))
		}

		return h.config.GetClientCertificate(info)
	}
	if len(h.config.Certificates) > 0 {
		return &h.config.Certificates[0], nil
	}

	return nil, nil
}

func (h *Handshake) serverSendServerHello() (Wait, error) {
	var exts []extension.Extension
	if h.negotiatedALPN != "" {
		exts = append(exts, &extension.ALPNProtocolNameList{ProtocolNameList: []string{h.negotiatedALPN}})
	}
	if err := h.queue(&handshake.MessageEncryptedExtensions{Extensions: exts}); err != nil {
		return WaitOk, err
	}

	cert, err := h.selectServerCertificate()
	if err != nil {
		return WaitOk, err
	}
	h.localCertificate = cert

	if h.clientCertRequested {
		// TLS 1.3 repurposes the TLS 1.2 CertificateRequest body (minus
		// certificate_types and certificate_authorities, both absent from
		// the 1.3 wire form); this core fills only the signature algorithm
		// list every peer needs regardless of version.
		cr := &handshake.MessageCertificateRequest{SignatureHashAlgorithms: signaturehash.Algorithms()}
		if err := h.queue(cr); err != nil {
			return WaitOk, err
		}
	}

	var signer crypto.Signer
	if h.localCertificate != nil {
		cert := &handshake.MessageCertificate{Context: []byte{}, Certificates: h.localCertificate.Certificate}
		if err := h.queue(cert); err != nil {
			return WaitOk, err
		}
		signer, _ = h.localCertificate.PrivateKey.(crypto.Signer)
	}
	if signer != nil {
		if err := h.queueCertificateVerify(signer, tls13ServerCertVerifyContext); err != nil {
			return WaitOk, err
		}
	}

	if err := h.queueFinished(h.serverHSTrafficSecret); err != nil {
		return WaitOk, err
	}
	h.masterSecretSetup()

	if h.clientCertRequested {
		h.state = ServerReadClientCertificate
	} else {
		h.state = ServerProcessClientFinished
	}

	return WaitFlush, nil
}

func (h *Handshake) serverProcessClientAuthFlight() (Wait, error) {
	msg, w, err := h.nextMessage()
	if err != nil || w != WaitOk {
		return w, err
	}

	switch msg.Type {
	case handshake.TypeCertificate:
		var cert handshake.MessageCertificate
		if err := cert.Unmarshal(msg.Body, true); err != nil {
			return WaitOk, err
		}
		h.peerChain = cert.Certificates
		if len(h.peerChain) == 0 {
			if desc, fatal := alertForVerifyMode(h.config.VerifyMode, false); fatal {
				return WaitOk, &alertError{Alert: &alert.Alert{Level: alert.Fatal, Description: desc}}
			}
			h.state = ServerProcessClientFinished
		}

		return WaitOk, nil

	case handshake.TypeCertificateVerify:
		return h.verifyPeerCertificateVerify(msg, tls13ClientCertVerifyContext, ServerProcessClientFinished)

	default:
		return WaitOk, errUnexpectedMessage
	}
}

func (h *Handshake) serverProcessClientFinished() (Wait, error) {
	msg, w, err := h.nextMessage()
	if err != nil || w != WaitOk {
		return w, err
	}
	if msg.Type != handshake.TypeFinished {
		return WaitOk, errUnexpectedMessage
	}

	preFinishedTranscript := h.lastSnapshot
	finishedKey := h.schedule.FinishedKey(h.clientHSTrafficSecret)
	expected := h.schedule.VerifyData(finishedKey, preFinishedTranscript)
	if !hmacEqual(expected, msg.Body) {
		return WaitOk, errVerifyDataMismatch
	}

	h.state = ServerFinishServerHandshake

	return WaitOk, nil
}

func (h *Handshake) serverFinish() (Wait, error) {
	h.resumptionSecret = h.schedule.ResumptionMasterSecret(h.transcript.Snapshot())

	appRead, err := h.deriveAEAD(h.clientAppTrafficSecret, aeadctx.Open)
	if err != nil {
		return WaitOk, err
	}
	appWrite, err := h.deriveAEAD(h.serverAppTrafficSecret, aeadctx.Seal)
	if err != nil {
		return WaitOk, err
	}
	h.pendingReadCipher = appRead
	h.pendingWriteCipher = appWrite

	h.state = ServerDone
	h.done = true

	return WaitOk, nil
}
