package tlscore

import "testing"

func TestWaitIsSuspension(t *testing.T) {
	if WaitOk.IsSuspension() {
		t.Fatal("WaitOk.IsSuspension() = true, want false")
	}

	others := []Wait{
		WaitReadMessage, WaitReadChangeCipherSpec, WaitFlush, WaitX509Lookup,
		WaitChannelIDLookup, WaitPrivateKeyOperation, WaitCertificateVerify,
		WaitPendingTicket, WaitEarlyDataRejected, WaitEarlyReturn,
	}
	for _, w := range others {
		if !w.IsSuspension() {
			t.Errorf("%v.IsSuspension() = false, want true", w)
		}
	}
}

func TestWaitString(t *testing.T) {
	cases := map[Wait]string{
		WaitOk:                   "ok",
		WaitReadMessage:          "read_message",
		WaitReadChangeCipherSpec: "read_change_cipher_spec",
		WaitFlush:                "flush",
		WaitEarlyReturn:          "early_return",
		Wait(255):                "unknown_wait",
	}
	for w, want := range cases {
		if got := w.String(); got != want {
			t.Errorf("Wait(%d).String() = %q, want %q", w, got, want)
		}
	}
}
