package errkind

import (
	"errors"
	"testing"

	"github.com/tlscore/tlscore/pkg/protocol/alert"
)

func TestAlertMapping(t *testing.T) {
	d, ok := ProtocolVersion.Alert()
	if !ok || d != alert.ProtocolVersion {
		t.Fatalf("ProtocolVersion kind should map to the protocol_version alert, got %v, %v", d, ok)
	}

	if _, ok := WantRead.Alert(); ok {
		t.Fatalf("WantRead is a suspension, not an alert-raising kind")
	}

	if _, ok := HTTPRequest.Alert(); ok {
		t.Fatalf("HTTPRequest must never raise a wire alert, per the propagation policy")
	}
}

func TestSuspensionKinds(t *testing.T) {
	for _, k := range []Kind{WantRead, WantWrite, NeedMore} {
		if !k.IsSuspension() {
			t.Fatalf("%s should be a suspension", k)
		}
	}
	if HandshakeFailure.IsSuspension() {
		t.Fatalf("HandshakeFailure must not be a suspension")
	}
}

func TestErrorIsMatchesOnKindOnly(t *testing.T) {
	e1 := New(DecryptError, errors.New("first cause"))
	e2 := New(DecryptError, errors.New("second cause"))
	e3 := New(BadCertificate, errors.New("third cause"))

	if !errors.Is(e1, e2) {
		t.Fatalf("errors with the same kind should match under errors.Is")
	}
	if errors.Is(e1, e3) {
		t.Fatalf("errors with different kinds should not match")
	}
}
