package tlscore

import (
	"time"

	"github.com/tlscore/tlscore/pkg/protocol/handshake"
)

// initialRetransmitInterval is the RFC 4347 section 4.2.4.1 starting
// value for a DTLS flight's retransmit timer.
const initialRetransmitInterval = time.Second

// maxRetransmitInterval caps the same timer's exponential backoff.
const maxRetransmitInterval = 60 * time.Second

// retransmitTimer implements RFC 4347 section 4.2.4.1's backoff: start at
// one second, double on every expiry, capped at 60 seconds, reset to the
// start on any forward progress. Grounded on the teacher's own
// handshakeFSM.wait loop, generalized to run underneath Handshake.Step's
// Wait-based driver instead of the teacher's fixed flight numbers.
type retransmitTimer struct {
	interval time.Duration
	disabled bool // true once the transport is reliable (TLS, not DTLS)
}

// newRetransmitTimer creates a timer at its initial interval; isDTLS false
// disables it entirely, since a reliable stream transport never retransmits.
func newRetransmitTimer(isDTLS bool) *retransmitTimer {
	return &retransmitTimer{interval: initialRetransmitInterval, disabled: !isDTLS}
}

// Reset returns the timer to its initial interval, on any sign of forward
// progress (a new flight received).
func (t *retransmitTimer) Reset() { t.interval = initialRetransmitInterval }

// Backoff doubles the interval, capped at maxRetransmitInterval, and
// reports the new value for the caller to arm a timer with.
func (t *retransmitTimer) Backoff() time.Duration {
	t.interval *= 2
	if t.interval > maxRetransmitInterval {
		t.interval = maxRetransmitInterval
	}

	return t.interval
}

// Interval reports the current retransmit interval without changing it.
func (t *retransmitTimer) Interval() time.Duration { return t.interval }

// Enabled reports whether this timer's owner should retransmit at all.
func (t *retransmitTimer) Enabled() bool { return !t.disabled }

// flightFragment is one DTLS datagram's worth of one handshake message,
// ready to hand to a recordlayer.Layer as content type Handshake.
type flightFragment struct {
	header handshake.Header
	body   []byte
}

// buildDTLSFlight re-frames a batch of Handshake.TakePending messages
// (each the TLS 4-byte-header wire form Handshake.queue produces,
// independent of transport) into DTLS's 12-byte-header, message_seq- and
// fragment-numbered form, splitting any message wider than mtu into
// multiple fragments per RFC 6347 section 4.2.3. seqStart is the
// message_seq the first message in pending should carry; the caller
// tracks and advances it across flights.
func buildDTLSFlight(pending [][]byte, seqStart uint16, mtu int) ([]flightFragment, uint16, error) {
	var out []flightFragment
	seq := seqStart

	for _, raw := range pending {
		var hdr handshake.Header
		if err := hdr.UnmarshalTLS(raw); err != nil {
			return nil, 0, err
		}
		body := raw[4:]

		frags := fragmentMessage(hdr.Type, body, seq, mtu)
		out = append(out, frags...)
		seq++
	}

	return out, seq, nil
}

// fragmentMessage splits one handshake message's body into mtu-sized
// DTLS fragments (one fragment, unsplit, if it already fits).
func fragmentMessage(typ handshake.Type, body []byte, seq uint16, mtu int) []flightFragment {
	total := uint32(len(body))
	maxBody := mtu - handshake.HeaderLength
	if maxBody <= 0 {
		maxBody = len(body)
	}

	if len(body) <= maxBody {
		return []flightFragment{{
			header: handshake.Header{
				Type: typ, Length: total, MessageSequence: seq,
				FragmentOffset: 0, FragmentLength: total,
			},
			body: body,
		}}
	}

	var frags []flightFragment
	for offset := 0; offset < len(body); offset += maxBody {
		end := offset + maxBody
		if end > len(body) {
			end = len(body)
		}
		chunk := body[offset:end]
		frags = append(frags, flightFragment{
			header: handshake.Header{
				Type: typ, Length: total, MessageSequence: seq,
				FragmentOffset: uint32(offset), FragmentLength: uint32(len(chunk)),
			},
			body: chunk,
		})
	}

	return frags
}
