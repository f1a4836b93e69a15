package recordlayer

import (
	"github.com/tlscore/tlscore/internal/aeadctx"
	"github.com/tlscore/tlscore/internal/replaywindow"
	"github.com/tlscore/tlscore/pkg/protocol"
)

// NeedMore is returned by Layer.Read when input does not yet contain one
// complete record; the caller should read more bytes off the transport
// and retry, never treat it as a protocol failure.
var NeedMore = errNeedMore

// MaxPlaintext is the largest plaintext payload a single record may carry
// before write(application_data, ...) must split it into multiple records
// (spec §5's ordering guarantee: the split preserves order).
const MaxPlaintext = 16384

// Record is one fully parsed, decrypted record handed back by Read.
type Record struct {
	ContentType protocol.ContentType
	Plaintext   []byte
	Epoch       uint16 // DTLS only
	Consumed    int    // bytes of input this record occupied
}

// Layer implements the record-layer read/write operations (spec §4.4/§4.5):
// framing, per-direction AEAD sealing/opening, max_send_fragment
// splitting for writes, and for DTLS the replay bitmap and epoch-keyed
// sequence numbers. One Layer is owned by exactly one Connection.
type Layer struct {
	version protocol.Version
	isDTLS  bool

	maxSendFragment int

	writeEpoch uint16
	writeSeq   uint64
	writeCtx   *aeadctx.Context

	readEpoch  uint16
	readSeq    uint64 // TLS only: DTLS tracks per-epoch via replay windows
	readCtx    *aeadctx.Context
	replay     *replaywindow.EpochSet
}

// New creates a Layer for the given protocol version, initially running
// the null cipher in both directions (the pre-handshake state).
func New(version protocol.Version, maxSendFragment int) *Layer {
	if maxSendFragment <= 0 || maxSendFragment > MaxPlaintext {
		maxSendFragment = MaxPlaintext
	}

	l := &Layer{
		version:         version,
		isDTLS:          version.IsDTLS(),
		maxSendFragment: maxSendFragment,
	}
	null, _ := aeadctx.New(aeadctx.NullCipher, nil, nil, aeadctx.Seal)
	l.writeCtx = null
	nullR, _ := aeadctx.New(aeadctx.NullCipher, nil, nil, aeadctx.Open)
	l.readCtx = nullR
	if l.isDTLS {
		l.replay = replaywindow.NewEpochSet()
	}

	return l
}

// SetWriteCipher installs a new write-direction AEAD and resets the write
// sequence number to zero; for DTLS this also advances the write epoch.
func (l *Layer) SetWriteCipher(ctx *aeadctx.Context) {
	l.writeCtx = ctx
	l.writeSeq = 0
	if l.isDTLS {
		l.writeEpoch++
	}
}

// SetReadCipher installs a new read-direction AEAD and resets the read
// sequence number to zero; for DTLS this also advances the read epoch and
// opens a fresh replay window for it.
func (l *Layer) SetReadCipher(ctx *aeadctx.Context) {
	l.readCtx = ctx
	l.readSeq = 0
	if l.isDTLS {
		l.readEpoch++
		l.replay.WindowFor(l.readEpoch, 0)
	}
}

// Write seals plaintext of the given content type into one or more wire
// records, splitting at maxSendFragment so order is preserved across the
// split (spec §5). TLS 1.3 records past the null cipher carry their real
// content type as the AEAD's inner plaintext suffix and go out under the
// opaque outer type ApplicationData; DTLS records are framed with the
// classic 13-byte header under the current write epoch.
func (l *Layer) Write(contentType protocol.ContentType, plaintext []byte) ([][]byte, error) {
	if len(plaintext) == 0 {
		return [][]byte{l.sealOne(contentType, plaintext)}, nil
	}

	var out [][]byte
	for len(plaintext) > 0 {
		n := l.maxSendFragment
		if n > len(plaintext) {
			n = len(plaintext)
		}
		out = append(out, l.sealOne(contentType, plaintext[:n]))
		plaintext = plaintext[n:]
	}

	return out, nil
}

func (l *Layer) sealOne(contentType protocol.ContentType, plaintext []byte) []byte {
	inner := plaintext
	outerType := contentType

	tls13Inner := !l.isDTLS && l.version == protocol.Version1_3 && !l.writeCtx.IsNull()
	if tls13Inner {
		inner = append(append([]byte{}, plaintext...), byte(contentType))
		outerType = protocol.ContentTypeApplicationData
	}

	hdr := Header{ContentType: outerType, Version: l.outerVersion(), ContentLen: uint16(len(inner) + l.writeCtx.TagLen())}

	var headerBytes []byte
	var aad []byte
	if l.isDTLS {
		hdr.Epoch = l.writeEpoch
		hdr.SequenceNumber = l.writeSeq
		headerBytes, _ = hdr.MarshalDTLS()
		aad = dtlsAAD(hdr)
	} else {
		headerBytes, _ = hdr.Marshal()
		aad = tlsAAD(hdr)
	}

	ct, err := l.writeCtx.Seal(l.combinedSeq(), aad, inner)
	if err != nil {
		ct = inner // null cipher: Seal never errors; real AEADs only fail on seq overflow, left to the caller
	}
	l.writeSeq++

	// ContentLen was computed before sealing using TagLen(); refresh it in
	// case the actual ciphertext length differs (it never does, but this
	// keeps the header authoritative over the assumption).
	hdr.ContentLen = uint16(len(ct))
	if l.isDTLS {
		headerBytes, _ = hdr.MarshalDTLS()
	} else {
		headerBytes, _ = hdr.Marshal()
	}

	return append(headerBytes, ct...)
}

func (l *Layer) combinedSeq() uint64 {
	if l.isDTLS {
		return uint64(l.writeEpoch)<<48 | l.writeSeq
	}

	return l.writeSeq
}

func (l *Layer) outerVersion() protocol.Version {
	if l.isDTLS {
		return protocol.VersionDTLS1_2
	}
	if l.version == protocol.Version1_3 {
		return protocol.Version1_2 // TLS 1.3 freezes the wire version field at {3,3}
	}

	return l.version
}

// Read parses and, if the current read cipher is not null, decrypts
// exactly one record from the front of input. It returns NeedMore if
// input doesn't yet hold a complete record. For DTLS it also runs the
// replay bitmap: a replayed or out-of-window sequence number is dropped
// silently (ok=false, err=nil) rather than treated as a fatal condition,
// per spec §4.5's DTLS policy.
func (l *Layer) Read(input []byte) (rec *Record, ok bool, err error) {
	if l.isDTLS {
		return l.readDTLS(input)
	}

	return l.readTLS(input)
}

func (l *Layer) readTLS(input []byte) (*Record, bool, error) {
	var hdr Header
	if err := hdr.Unmarshal(input); err != nil {
		return nil, false, NeedMore
	}
	total := HeaderSize + int(hdr.ContentLen)
	if len(input) < total {
		return nil, false, NeedMore
	}
	body := input[HeaderSize:total]

	aad := tlsAAD(hdr)
	pt, derr := l.readCtx.Open(l.readSeq, aad, body)
	if derr != nil {
		return nil, false, errBadRecordMAC
	}
	l.readSeq++

	contentType := hdr.ContentType
	if l.version == protocol.Version1_3 && !l.readCtx.IsNull() {
		pt, contentType = stripInnerType(pt)
	}

	return &Record{ContentType: contentType, Plaintext: pt, Consumed: total}, true, nil
}

func (l *Layer) readDTLS(input []byte) (*Record, bool, error) {
	var hdr Header
	if err := hdr.UnmarshalDTLS(input); err != nil {
		if err == errBufferTooSmall {
			return nil, false, NeedMore
		}

		return nil, false, err
	}
	total := DTLSHeaderSize + int(hdr.ContentLen)
	if len(input) < total {
		return nil, false, NeedMore
	}
	body := input[DTLSHeaderSize:total]

	window := l.replay.WindowFor(hdr.Epoch, 0)
	accept, replayOK := window.Check(hdr.SequenceNumber)
	if !replayOK {
		return nil, false, nil // silently dropped, per DTLS replay policy
	}

	aad := dtlsAAD(hdr)
	seq := uint64(hdr.Epoch)<<48 | hdr.SequenceNumber
	pt, derr := l.readCtx.Open(seq, aad, body)
	if derr != nil {
		return nil, false, nil // DTLS: AEAD failure is also a silent drop, never fatal
	}
	accept()

	return &Record{ContentType: hdr.ContentType, Plaintext: pt, Epoch: hdr.Epoch, Consumed: total}, true, nil
}

func stripInnerType(padded []byte) ([]byte, protocol.ContentType) {
	for i := len(padded) - 1; i >= 0; i-- {
		if padded[i] != 0 {
			return padded[:i], protocol.ContentType(padded[i])
		}
	}

	return padded, protocol.ContentTypeApplicationData
}

func tlsAAD(hdr Header) []byte {
	return []byte{byte(hdr.ContentType), hdr.Version.Major, hdr.Version.Minor, byte(hdr.ContentLen >> 8), byte(hdr.ContentLen)}
}

func dtlsAAD(hdr Header) []byte {
	out := make([]byte, 0, 13)
	epochSeq := make([]byte, 8)
	epochSeq[0] = byte(hdr.Epoch >> 8)
	epochSeq[1] = byte(hdr.Epoch)
	seq := hdr.SequenceNumber
	epochSeq[2] = byte(seq >> 40)
	epochSeq[3] = byte(seq >> 32)
	epochSeq[4] = byte(seq >> 24)
	epochSeq[5] = byte(seq >> 16)
	epochSeq[6] = byte(seq >> 8)
	epochSeq[7] = byte(seq)
	out = append(out, epochSeq...)
	out = append(out, byte(hdr.ContentType), hdr.Version.Major, hdr.Version.Minor)
	out = append(out, byte(hdr.ContentLen>>8), byte(hdr.ContentLen))

	return out
}
