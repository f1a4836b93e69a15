// Package replaywindow implements the DTLS per-epoch replay bitmap (C5)
// on top of pion/transport's sliding-window replay detector: a bitmap of
// width 64 above max_seq_num, accepting a sequence number exactly once.
package replaywindow

import (
	"github.com/pion/transport/v3/replaydetector"
)

// WindowSize is the replay window width above max_seq_num, per spec §3's
// "sliding window of size ≥64" requirement.
const WindowSize = 64

// Window tracks accepted sequence numbers for a single DTLS epoch.
type Window struct {
	detector replaydetector.Detector
}

// NewWindow creates a replay window good for sequence numbers up to
// maxSeq (48 bits for DTLS's classic header, wider once unified headers
// with a 16-bit truncated sequence are reconstructed to full epoch scope).
func NewWindow(maxSeq uint64) *Window {
	return &Window{detector: replaydetector.New(WindowSize, maxSeq)}
}

// Check reports whether seq is acceptable (not already seen, and within
// or above the window). The returned accept func must be called only
// after the AEAD open for this record succeeds; on AEAD failure the
// caller must not call accept, leaving the bitmap untouched.
func (w *Window) Check(seq uint64) (accept func(), ok bool) {
	return w.detector.Check(seq)
}
