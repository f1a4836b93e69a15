package replaywindow

// EpochSet holds one replay Window per DTLS read epoch, created lazily as
// each new epoch's first record arrives.
type EpochSet struct {
	windows map[uint16]*Window
}

// NewEpochSet creates an empty set.
func NewEpochSet() *EpochSet {
	return &EpochSet{windows: make(map[uint16]*Window)}
}

// WindowFor returns the Window for epoch, creating it with the given
// initial max sequence number the first time it's seen.
func (e *EpochSet) WindowFor(epoch uint16, initialMaxSeq uint64) *Window {
	w, ok := e.windows[epoch]
	if !ok {
		w = NewWindow(initialMaxSeq)
		e.windows[epoch] = w
	}

	return w
}

// Forget drops a superseded epoch's window, e.g. once a later epoch has
// taken over and retransmits of the old one are no longer expected.
func (e *EpochSet) Forget(epoch uint16) {
	delete(e.windows, epoch)
}
