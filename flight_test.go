package tlscore

import (
	"testing"
	"time"

	"github.com/tlscore/tlscore/pkg/protocol/handshake"
)

func TestRetransmitTimerBackoff(t *testing.T) {
	timer := newRetransmitTimer(true)
	if !timer.Enabled() {
		t.Fatal("newRetransmitTimer(true).Enabled() = false, want true")
	}
	if got := timer.Interval(); got != initialRetransmitInterval {
		t.Fatalf("Interval() = %v, want %v", got, initialRetransmitInterval)
	}

	for i := 0; i < 10; i++ {
		timer.Backoff()
	}
	if got := timer.Interval(); got != maxRetransmitInterval {
		t.Fatalf("Interval() after repeated backoff = %v, want the %v cap", got, maxRetransmitInterval)
	}

	timer.Reset()
	if got := timer.Interval(); got != initialRetransmitInterval {
		t.Fatalf("Interval() after Reset = %v, want %v", got, initialRetransmitInterval)
	}
}

func TestRetransmitTimerDisabledForTLS(t *testing.T) {
	timer := newRetransmitTimer(false)
	if timer.Enabled() {
		t.Fatal("newRetransmitTimer(false).Enabled() = true, want false")
	}
}

func TestRetransmitTimerBackoffSequence(t *testing.T) {
	timer := newRetransmitTimer(true)
	want := []time.Duration{2, 4, 8, 16, 32, 60, 60}
	for i, w := range want {
		got := timer.Backoff()
		if got != w*time.Second {
			t.Fatalf("Backoff() #%d = %v, want %v", i, got, w*time.Second)
		}
	}
}

func TestFragmentMessageFitsWhole(t *testing.T) {
	body := make([]byte, 100)
	frags := fragmentMessage(handshake.TypeClientHello, body, 3, 1200)

	if len(frags) != 1 {
		t.Fatalf("fragmentMessage() produced %d fragments, want 1", len(frags))
	}
	f := frags[0]
	if f.header.FragmentOffset != 0 || f.header.FragmentLength != 100 || f.header.Length != 100 {
		t.Fatalf("unexpected header %+v", f.header)
	}
	if f.header.MessageSequence != 3 {
		t.Fatalf("MessageSequence = %d, want 3", f.header.MessageSequence)
	}
}

func TestFragmentMessageSplits(t *testing.T) {
	body := make([]byte, 250)
	for i := range body {
		body[i] = byte(i)
	}

	mtu := handshake.HeaderLength + 100
	frags := fragmentMessage(handshake.TypeCertificate, body, 7, mtu)

	if len(frags) != 3 {
		t.Fatalf("fragmentMessage() produced %d fragments, want 3", len(frags))
	}

	var reassembled []byte
	for i, f := range frags {
		if f.header.MessageSequence != 7 {
			t.Fatalf("fragment %d MessageSequence = %d, want 7", i, f.header.MessageSequence)
		}
		if f.header.Length != 250 {
			t.Fatalf("fragment %d Length = %d, want 250", i, f.header.Length)
		}
		if int(f.header.FragmentOffset) != len(reassembled) {
			t.Fatalf("fragment %d FragmentOffset = %d, want %d", i, f.header.FragmentOffset, len(reassembled))
		}
		if int(f.header.FragmentLength) != len(f.body) {
			t.Fatalf("fragment %d FragmentLength = %d, want %d", i, f.header.FragmentLength, len(f.body))
		}
		reassembled = append(reassembled, f.body...)
	}

	if len(reassembled) != len(body) {
		t.Fatalf("reassembled length = %d, want %d", len(reassembled), len(body))
	}
	for i := range body {
		if reassembled[i] != body[i] {
			t.Fatalf("reassembled byte %d = %d, want %d", i, reassembled[i], body[i])
		}
	}
}

func TestBuildDTLSFlightAdvancesSequence(t *testing.T) {
	ch := handshake.Header{Type: handshake.TypeClientHello, Length: 50}
	chBytes := append(ch.MarshalTLS(), make([]byte, 50)...)

	ee := handshake.Header{Type: handshake.TypeEncryptedExtensions, Length: 10}
	eeBytes := append(ee.MarshalTLS(), make([]byte, 10)...)

	frags, nextSeq, err := buildDTLSFlight([][]byte{chBytes, eeBytes}, 0, 1200)
	if err != nil {
		t.Fatalf("buildDTLSFlight() error = %v", err)
	}
	if nextSeq != 2 {
		t.Fatalf("nextSeq = %d, want 2", nextSeq)
	}
	if len(frags) != 2 {
		t.Fatalf("buildDTLSFlight() produced %d fragments, want 2", len(frags))
	}
	if frags[0].header.MessageSequence != 0 || frags[1].header.MessageSequence != 1 {
		t.Fatalf("unexpected message sequences: %d, %d", frags[0].header.MessageSequence, frags[1].header.MessageSequence)
	}
	if frags[0].header.Type != handshake.TypeClientHello || frags[1].header.Type != handshake.TypeEncryptedExtensions {
		t.Fatalf("unexpected fragment types: %v, %v", frags[0].header.Type, frags[1].header.Type)
	}
}
