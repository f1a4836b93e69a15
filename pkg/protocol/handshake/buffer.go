package handshake

import "sort"

// NeedMore is returned by Buffer.GetMessage when no complete message is
// available yet; the caller should read more record-layer plaintext and
// retry rather than treat this as a failure.
var NeedMore = errNeedMore

// fragment is one piece of a DTLS-fragmented handshake message, recorded
// by offset so out-of-order datagrams reassemble correctly.
type fragment struct {
	offset uint32
	data   []byte
}

// pending tracks one in-flight message_seq worth of fragments until every
// byte of its declared length has arrived.
type pending struct {
	typ       Type
	total     uint32
	fragments []fragment
	received  uint32
}

func (p *pending) complete() bool { return p.received >= p.total }

func (p *pending) assemble() []byte {
	sort.Slice(p.fragments, func(i, j int) bool { return p.fragments[i].offset < p.fragments[j].offset })

	out := make([]byte, p.total)
	for _, f := range p.fragments {
		copy(out[f.offset:], f.data)
	}

	return out
}

// add merges a newly-seen fragment into p, tracking only the bytes that
// extend coverage so a retransmitted fragment doesn't double-count.
func (p *pending) add(offset uint32, data []byte) {
	end := offset + uint32(len(data))
	covered := false
	for _, f := range p.fragments {
		fEnd := f.offset + uint32(len(f.data))
		if f.offset <= offset && fEnd >= end {
			covered = true

			break
		}
	}
	if covered {
		return
	}

	p.fragments = append(p.fragments, fragment{offset: offset, data: append([]byte{}, data...)})
	sort.Slice(p.fragments, func(i, j int) bool { return p.fragments[i].offset < p.fragments[j].offset })

	var received, reach uint32
	for _, f := range p.fragments {
		fEnd := f.offset + uint32(len(f.data))
		if fEnd <= reach {
			continue
		}
		start := f.offset
		if start < reach {
			start = reach
		}
		received += fEnd - start
		reach = fEnd
	}
	p.received = received
	if p.received > p.total {
		p.received = p.total
	}
}

// RawMessage is one fully reassembled handshake message returned by
// GetMessage: a message Type plus its undecoded body, exclusive of the
// record-layer framing it arrived in. Distinct from the Message interface
// (handshake.go), which is a decoded, typed message body.
type RawMessage struct {
	Type            Type
	Body            []byte
	MessageSequence uint16
}

// Buffer implements get_message(): it accepts raw handshake-layer bytes as
// they arrive off the record layer (one TLS stream's worth, concatenated
// headers and bodies; or one DTLS fragment at a time) and reassembles
// complete messages, handling DTLS's out-of-order fragmentation and TLS's
// simple back-to-back framing with the same entry point.
type Buffer struct {
	dtls bool

	// TLS: a single byte stream; messages are framed back-to-back.
	stream []byte

	// DTLS: fragments keyed by message_seq, released once complete and in
	// strictly increasing message_seq order.
	inFlight map[uint16]*pending
	nextSeq  uint16
}

// NewBuffer creates a reassembly Buffer for either TLS's byte-stream
// framing or DTLS's per-datagram fragmentation.
func NewBuffer(dtls bool) *Buffer {
	return &Buffer{dtls: dtls, inFlight: make(map[uint16]*pending)}
}

// PushTLS appends newly-read TLS handshake-record plaintext.
func (b *Buffer) PushTLS(data []byte) {
	b.stream = append(b.stream, data...)
}

// PushDTLS accepts one DTLS handshake fragment, which may be a complete
// message (FragmentOffset 0, FragmentLength == Length) or a partial piece
// of a larger one.
func (b *Buffer) PushDTLS(h Header, body []byte) {
	if h.MessageSequence < b.nextSeq {
		return // stale retransmit of an already-delivered message
	}

	p, ok := b.inFlight[h.MessageSequence]
	if !ok {
		p = &pending{typ: h.Type, total: h.Length}
		b.inFlight[h.MessageSequence] = p
	}
	p.add(h.FragmentOffset, body)
}

// GetMessage returns the next complete handshake message in order, or
// NeedMore if none is ready yet.
func (b *Buffer) GetMessage() (*RawMessage, error) {
	if b.dtls {
		return b.getMessageDTLS()
	}

	return b.getMessageTLS()
}

func (b *Buffer) getMessageTLS() (*RawMessage, error) {
	var h Header
	if err := h.UnmarshalTLS(b.stream); err != nil {
		return nil, NeedMore
	}
	total := 4 + int(h.Length)
	if len(b.stream) < total {
		return nil, NeedMore
	}

	msg := &RawMessage{Type: h.Type, Body: append([]byte{}, b.stream[4:total]...)}
	b.stream = append([]byte{}, b.stream[total:]...)

	return msg, nil
}

func (b *Buffer) getMessageDTLS() (*RawMessage, error) {
	p, ok := b.inFlight[b.nextSeq]
	if !ok || !p.complete() {
		return nil, NeedMore
	}

	msg := &RawMessage{Type: p.typ, Body: p.assemble(), MessageSequence: b.nextSeq}
	delete(b.inFlight, b.nextSeq)
	b.nextSeq++

	return msg, nil
}

// Reset discards all buffered state, e.g. across an epoch change where
// stale fragments must not leak into the next flight.
func (b *Buffer) Reset() {
	b.stream = nil
	b.inFlight = make(map[uint16]*pending)
	b.nextSeq = 0
}
