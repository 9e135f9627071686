package kernel

// ReverseBits is the per-event scratch bitfield forward handlers use to
// record which conditional mutations they performed, so the matching
// reverse handler knows exactly what to undo. It is the Go rendering of
// ROSS's tw_bf: a handful of named flag bits rather than a packed int,
// since Go has no cheap equivalent of C's bitfield-of-int idiom and naming
// each flag reads better at call sites than bf.Bit(0).
//
// The base LP (netsim.BaseState.Reverse) zeroes its ReverseBits after every
// reverse dispatch, since the kernel may reuse the slot when the event is
// replayed; Engine itself does not clear it.
type ReverseBits struct {
	C0 bool
	C1 bool
	C2 bool
	C3 bool
}

// Reset clears every flag.
func (b *ReverseBits) Reset() {
	*b = ReverseBits{}
}
